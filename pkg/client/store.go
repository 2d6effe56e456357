package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Subject is the authenticated user's profile as returned by the server. It
// is only trusted after a login or refresh validated the credential.
type Subject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CredentialPair is the unit the store holds: both tokens plus the subject
// profile. The three fields live and die together; a partially populated pair
// never exists.
type CredentialPair struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Subject      *Subject `json:"subject,omitempty"`
}

// Store is the durable holder of the current credential pair. It performs no
// validation and no network calls. Get returns (nil, nil) when empty.
type Store interface {
	Get() (*CredentialPair, error)
	Set(pair *CredentialPair) error
	Clear() error
}

// MemStore keeps the credential pair in memory. Suitable for tests and
// short-lived processes.
type MemStore struct {
	mu   sync.Mutex
	pair *CredentialPair
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Get() (*CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pair == nil {
		return nil, nil
	}
	copied := *s.pair

	return &copied, nil
}

func (s *MemStore) Set(pair *CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *pair
	s.pair = &copied

	return nil
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = nil

	return nil
}

// FileStore persists the credential pair as a JSON file, so a session
// survives process restarts. Writes go to a temp file and are renamed into
// place; a crash mid-write never leaves a truncated credential behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed store at the given path. The parent
// directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create credential directory")
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) Get() (*CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to read credential file")
	}

	pair := new(CredentialPair)
	if err := json.Unmarshal(raw, pair); err != nil {
		return nil, errors.Wrap(err, "failed to decode credential file")
	}

	return pair, nil
}

func (s *FileStore) Set(pair *CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(pair)
	if err != nil {
		return errors.Wrap(err, "failed to encode credential pair")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "credentials-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp credential file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to write credential file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to close credential file")
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to restrict credential file permissions")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)

		return errors.Wrap(err, "failed to move credential file into place")
	}

	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove credential file")
	}

	return nil
}
