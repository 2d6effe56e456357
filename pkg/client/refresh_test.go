package client

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *MemStore {
	t.Helper()

	store := NewMemStore()
	require.NoError(t, store.Set(&CredentialPair{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		Subject:      &Subject{ID: "subject-1", Name: "Alice", Email: "alice@example.com"},
	}))

	return store
}

// waitForWaiters polls until the coordinator has the expected number of
// queued callers.
func waitForWaiters(t *testing.T, c *RefreshCoordinator, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		queued := len(c.waiters)
		c.mu.Unlock()
		if queued == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("coordinator never reached %d queued waiters", want)
}

func waitForRefreshing(t *testing.T, c *RefreshCoordinator) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		refreshing := c.refreshing
		c.mu.Unlock()
		if refreshing {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("coordinator never entered the refreshing state")
}

func TestRefreshCoordinator_SingleFlight(t *testing.T) {
	const concurrentCallers = 8

	store := seedStore(t)
	release := make(chan struct{})

	var refreshCalls atomic.Int64
	coordinator := NewRefreshCoordinator(store, func(context.Context, string) (*CredentialPair, error) {
		refreshCalls.Add(1)
		<-release

		return &CredentialPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	})

	results := make(chan string, concurrentCallers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		token, err := coordinator.RequestRefresh(context.Background())
		assert.NoError(t, err)
		results <- token
	}()
	waitForRefreshing(t, coordinator)

	for range concurrentCallers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := coordinator.RequestRefresh(context.Background())
			assert.NoError(t, err)
			results <- token
		}()
	}
	waitForWaiters(t, coordinator, concurrentCallers-1)

	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, int64(1), refreshCalls.Load(), "concurrent callers must collapse into one refresh call")
	for token := range results {
		assert.Equal(t, "new-access", token)
	}

	pair, err := store.Get()
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "new-access", pair.AccessToken)
	assert.Equal(t, "new-refresh", pair.RefreshToken)
}

func TestRefreshCoordinator_FailureCascade(t *testing.T) {
	const concurrentCallers = 5

	store := seedStore(t)
	release := make(chan struct{})
	rejection := &APIError{StatusCode: http.StatusUnauthorized, Kind: KindAuthentication, Message: "refresh token revoked"}

	coordinator := NewRefreshCoordinator(store, func(context.Context, string) (*CredentialPair, error) {
		<-release

		return nil, rejection
	})

	errs := make(chan error, concurrentCallers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := coordinator.RequestRefresh(context.Background())
		errs <- err
	}()
	waitForRefreshing(t, coordinator)

	for range concurrentCallers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := coordinator.RequestRefresh(context.Background())
			errs <- err
		}()
	}
	waitForWaiters(t, coordinator, concurrentCallers-1)

	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.True(t, IsAuthenticationError(err), "every queued caller must observe the refresh failure")
	}

	// The store must be fully cleared, never left half-populated.
	pair, err := store.Get()
	require.NoError(t, err)
	assert.Nil(t, pair)
}

func TestRefreshCoordinator_NoRefreshToken(t *testing.T) {
	store := NewMemStore()

	var refreshCalls atomic.Int64
	coordinator := NewRefreshCoordinator(store, func(context.Context, string) (*CredentialPair, error) {
		refreshCalls.Add(1)

		return nil, nil
	})

	_, err := coordinator.RequestRefresh(context.Background())

	assert.True(t, IsAuthenticationError(err))
	assert.Equal(t, int64(0), refreshCalls.Load(), "no refresh call without a refresh token")
}

func TestRefreshCoordinator_SequentialRefreshes(t *testing.T) {
	store := seedStore(t)

	var refreshCalls atomic.Int64
	coordinator := NewRefreshCoordinator(store, func(context.Context, string) (*CredentialPair, error) {
		n := refreshCalls.Add(1)

		return &CredentialPair{AccessToken: "access-" + string(rune('0'+n)), RefreshToken: "refresh"}, nil
	})

	first, err := coordinator.RequestRefresh(context.Background())
	require.NoError(t, err)
	second, err := coordinator.RequestRefresh(context.Background())
	require.NoError(t, err)

	// Sequential calls each refresh; single-flight only collapses overlap.
	assert.Equal(t, int64(2), refreshCalls.Load())
	assert.NotEqual(t, first, second)
}

func TestRefreshCoordinator_CarriesSubjectForward(t *testing.T) {
	store := seedStore(t)

	coordinator := NewRefreshCoordinator(store, func(context.Context, string) (*CredentialPair, error) {
		return &CredentialPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
	})

	_, err := coordinator.RequestRefresh(context.Background())
	require.NoError(t, err)

	pair, err := store.Get()
	require.NoError(t, err)
	require.NotNil(t, pair)
	require.NotNil(t, pair.Subject)
	assert.Equal(t, "subject-1", pair.Subject.ID)
}
