package client

import (
	"context"
	"net/http"
	"sync"
)

// RefreshFunc exchanges a refresh token for a new credential pair. It is the
// only network call the coordinator makes.
type RefreshFunc func(ctx context.Context, refreshToken string) (*CredentialPair, error)

type refreshResult struct {
	accessToken string
	err         error
}

// RefreshCoordinator guarantees single-flight refresh: no matter how many
// callers hit an expired credential concurrently, exactly one refresh call
// reaches the server. Callers that arrive while a refresh is in flight are
// queued and settle together with the in-flight result.
//
// On success the new pair is stored before any waiter is released, so a
// released caller always finds the fresh credential in the store. On failure
// the store is cleared (full logout) before the waiters are rejected.
type RefreshCoordinator struct {
	store   Store
	refresh RefreshFunc

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

// NewRefreshCoordinator creates a coordinator over the given store and
// refresh call.
func NewRefreshCoordinator(store Store, refresh RefreshFunc) *RefreshCoordinator {
	return &RefreshCoordinator{
		store:   store,
		refresh: refresh,
	}
}

// RequestRefresh returns a fresh access token, either by performing the
// refresh itself or by waiting on one already in flight. A queued caller has
// no independent timeout; it settles when the in-flight refresh settles.
func (c *RefreshCoordinator) RequestRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		// Buffered so settlement never blocks on a waiter.
		ch := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		result := <-ch

		return result.accessToken, result.err
	}
	c.refreshing = true
	c.mu.Unlock()

	accessToken, err := c.performRefresh(ctx)
	if err != nil {
		// Terminal for the session: never leave a stale credential behind.
		_ = c.store.Clear()
	}
	c.settle(accessToken, err)

	return accessToken, err
}

func (c *RefreshCoordinator) performRefresh(ctx context.Context) (string, error) {
	pair, err := c.store.Get()
	if err != nil {
		return "", err
	}
	if pair == nil || pair.RefreshToken == "" {
		return "", &APIError{
			StatusCode: http.StatusUnauthorized,
			Kind:       KindAuthentication,
			Message:    "no refresh token available",
		}
	}

	newPair, err := c.refresh(ctx, pair.RefreshToken)
	if err != nil {
		return "", err
	}

	// The refresh endpoint returns tokens only; the subject profile carries
	// over from the validated pair being replaced.
	if newPair.Subject == nil {
		newPair.Subject = pair.Subject
	}
	if err := c.store.Set(newPair); err != nil {
		return "", err
	}

	return newPair.AccessToken, nil
}

// settle releases every queued waiter in FIFO arrival order with the shared
// outcome and returns the coordinator to idle.
func (c *RefreshCoordinator) settle(accessToken string, err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{accessToken: accessToken, err: err}
	}
}
