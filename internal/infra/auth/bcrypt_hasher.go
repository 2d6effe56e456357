package auth

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"inkwell/config"
	"inkwell/internal/domain/service"
)

const (
	defaultMinPasswordLength = 8
	// bcrypt only considers the first 72 bytes of the input.
	defaultMaxPasswordLength = 72
)

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost   int
	policy config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	policy := config.PasswordStrengthConfig{
		MinLength:        defaultMinPasswordLength,
		MaxLength:        defaultMaxPasswordLength,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
	}

	if cfg != nil {
		if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
			cost = cfg.Auth.BcryptCost
		}
		if cfg.PasswordStrength != nil {
			policy = *cfg.PasswordStrength
			if policy.MinLength <= 0 {
				policy.MinLength = defaultMinPasswordLength
			}
			if policy.MaxLength <= 0 {
				policy.MaxLength = defaultMaxPasswordLength
			}
		}
	}

	return &bcryptHasher{cost: cost, policy: policy}
}

// NewBcryptHasherWithCost creates a hasher with an explicit cost and the
// default strength policy. Mainly useful in tests, where a low cost keeps
// hashing fast.
func NewBcryptHasherWithCost(cost int) service.PasswordHasher {
	return &bcryptHasher{
		cost: cost,
		policy: config.PasswordStrengthConfig{
			MinLength:        defaultMinPasswordLength,
			MaxLength:        defaultMaxPasswordLength,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumbers:   true,
		},
	}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// The password is validated against the strength policy first, so weak
// passwords never reach the hash function.
func (h *bcryptHasher) Hash(password string) (string, error) {
	if err := h.ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt generate")
	}

	return string(bytes), nil
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength checks the plaintext password against the
// configured policy.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	if len(password) < h.policy.MinLength {
		return errors.Errorf("password must be at least %d characters long", h.policy.MinLength)
	}
	if len(password) > h.policy.MaxLength {
		return errors.Errorf("password must be at most %d characters long", h.policy.MaxLength)
	}
	if h.policy.RequireUppercase && !h.hasUppercase(password) {
		return errors.New("password must contain at least one uppercase letter")
	}
	if h.policy.RequireLowercase && !h.hasLowercase(password) {
		return errors.New("password must contain at least one lowercase letter")
	}
	if h.policy.RequireNumbers && !h.hasNumbers(password) {
		return errors.New("password must contain at least one number")
	}
	if h.containsForbiddenWords(password, forbiddenWords) {
		return errors.New("password contains forbidden words")
	}

	return nil
}

// forbiddenWords are trivially guessable fragments rejected regardless of
// the rest of the policy.
var forbiddenWords = []string{"password", "admin", "12345678", "qwerty"}

func (h *bcryptHasher) hasUppercase(s string) bool {
	return strings.ContainsFunc(s, unicode.IsUpper)
}

func (h *bcryptHasher) hasLowercase(s string) bool {
	return strings.ContainsFunc(s, unicode.IsLower)
}

func (h *bcryptHasher) hasNumbers(s string) bool {
	return strings.ContainsFunc(s, unicode.IsDigit)
}

func (h *bcryptHasher) containsForbiddenWords(password string, words []string) bool {
	lowered := strings.ToLower(password)
	for _, word := range words {
		if strings.Contains(lowered, word) {
			return true
		}
	}

	return false
}
