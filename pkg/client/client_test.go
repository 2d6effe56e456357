package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"code":    status,
		"data":    data,
	})
}

func writeFailure(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    status,
		"message": message,
		"error":   map[string]string{"code": code},
	})
}

func bearerOf(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > len("Bearer ") {
		return header[len("Bearer "):]
	}

	return ""
}

func TestClient_LoginThenMe(t *testing.T) {
	subject := map[string]string{"id": "subject-1", "name": "Alice", "email": "alice@example.com"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["email"] != "alice@example.com" || body["password"] != "Str0ngPass" {
			writeFailure(w, http.StatusUnauthorized, "電子郵件或密碼錯誤", "INVALID_CREDENTIALS")

			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"token":        "access-1",
			"refreshToken": "refresh-1",
			"user":         subject,
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if bearerOf(r) != "access-1" {
			writeFailure(w, http.StatusUnauthorized, "未授權的存取", "UNAUTHORIZED")

			return
		}
		writeSuccess(w, http.StatusOK, subject)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemStore()
	c := New(server.URL, store)

	loggedIn, err := c.Login(context.Background(), "alice@example.com", "Str0ngPass")
	require.NoError(t, err)
	assert.Equal(t, "subject-1", loggedIn.ID)

	pair, err := store.Get()
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "access-1", pair.AccessToken)
	assert.Equal(t, "refresh-1", pair.RefreshToken)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, loggedIn.ID, me.ID, "the resolved subject matches the login subject")
}

func TestClient_RetriesOnceAfterRefresh(t *testing.T) {
	var protectedCalls, refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		protectedCalls.Add(1)
		if bearerOf(r) != "fresh-access" {
			writeFailure(w, http.StatusUnauthorized, "未授權的存取", "UNAUTHORIZED")

			return
		}
		writeSuccess(w, http.StatusOK, map[string]string{"id": "subject-1"})
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "stale-refresh", body["refreshToken"])
		writeSuccess(w, http.StatusOK, map[string]string{
			"token":        "fresh-access",
			"refreshToken": "fresh-refresh",
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemStore()
	require.NoError(t, store.Set(&CredentialPair{AccessToken: "stale-access", RefreshToken: "stale-refresh"}))

	c := New(server.URL, store)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "subject-1", me.ID)

	assert.Equal(t, int64(2), protectedCalls.Load(), "original call plus exactly one retry")
	assert.Equal(t, int64(1), refreshCalls.Load())

	pair, err := store.Get()
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, "fresh-refresh", pair.RefreshToken, "the rotated refresh token replaces the old one")
}

func TestClient_NeverRetriesTwice(t *testing.T) {
	var protectedCalls, refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, _ *http.Request) {
		protectedCalls.Add(1)
		// Even a fresh token is rejected.
		writeFailure(w, http.StatusUnauthorized, "未授權的存取", "UNAUTHORIZED")
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		writeSuccess(w, http.StatusOK, map[string]string{
			"token":        "fresh-access",
			"refreshToken": "fresh-refresh",
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemStore()
	require.NoError(t, store.Set(&CredentialPair{AccessToken: "stale-access", RefreshToken: "stale-refresh"}))

	c := New(server.URL, store)

	_, err := c.Me(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err), "the second rejection surfaces as-is")
	assert.Equal(t, int64(2), protectedCalls.Load(), "no third attempt")
	assert.Equal(t, int64(1), refreshCalls.Load())
}

func TestClient_RefreshFailureClearsStore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "未授權的存取", "UNAUTHORIZED")
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, _ *http.Request) {
		writeFailure(w, http.StatusUnauthorized, "無效的更新令牌", "REFRESH_TOKEN_INVALID")
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemStore()
	require.NoError(t, store.Set(&CredentialPair{AccessToken: "stale-access", RefreshToken: "revoked-refresh"}))

	c := New(server.URL, store)

	_, err := c.Me(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuthenticationError(err))

	pair, storeErr := store.Get()
	require.NoError(t, storeErr)
	assert.Nil(t, pair, "a failed refresh tears the session down completely")
}

func TestClient_ForbiddenIsNotRetried(t *testing.T) {
	var updateCalls, refreshCalls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /posts/post-1", func(w http.ResponseWriter, _ *http.Request) {
		updateCalls.Add(1)
		writeFailure(w, http.StatusForbidden, "您沒有權限執行此操作", "POST_OWNERSHIP_VIOLATION")
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		writeFailure(w, http.StatusUnauthorized, "無效的更新令牌", "REFRESH_TOKEN_INVALID")
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemStore()
	require.NoError(t, store.Set(&CredentialPair{AccessToken: "valid-access", RefreshToken: "valid-refresh"}))

	c := New(server.URL, store)

	_, err := c.UpdatePost(context.Background(), "post-1", PostDraft{Title: "new", Content: "body"})

	require.Error(t, err)
	assert.True(t, IsAuthorizationError(err), "an ownership rejection is not an authentication failure")
	assert.Equal(t, int64(1), updateCalls.Load(), "no retry on 403")
	assert.Equal(t, int64(0), refreshCalls.Load(), "no refresh on 403")

	pair, storeErr := store.Get()
	require.NoError(t, storeErr)
	assert.NotNil(t, pair, "the session survives an authorization error")
}

func TestClient_ConcurrentUnauthorizedCollapseIntoOneRefresh(t *testing.T) {
	const concurrentCallers = 6

	var refreshCalls atomic.Int64
	var arrival sync.WaitGroup
	arrival.Add(concurrentCallers)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if bearerOf(r) == "fresh-access" {
			writeSuccess(w, http.StatusOK, map[string]string{"id": "subject-1"})

			return
		}
		// Hold every first attempt until all have arrived, so the 401s
		// land together.
		arrival.Done()
		arrival.Wait()
		writeFailure(w, http.StatusUnauthorized, "未授權的存取", "UNAUTHORIZED")
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		// Give the losers of the refresh race time to queue up.
		time.Sleep(200 * time.Millisecond)
		writeSuccess(w, http.StatusOK, map[string]string{
			"token":        "fresh-access",
			"refreshToken": "fresh-refresh",
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewMemStore()
	require.NoError(t, store.Set(&CredentialPair{AccessToken: "stale-access", RefreshToken: "stale-refresh"}))

	c := New(server.URL, store)

	var wg sync.WaitGroup
	errs := make(chan error, concurrentCallers)
	for range concurrentCallers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Me(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "every caller succeeds after the shared refresh")
	}
	assert.Equal(t, int64(1), refreshCalls.Load(), "concurrent failures share one refresh call")
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // unreachable on purpose

	c := New(server.URL, NewMemStore())

	_, err := c.ListCategories(context.Background())

	require.Error(t, err)
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestClient_UnauthenticatedCallOmitsBearer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeSuccess(w, http.StatusOK, map[string]any{
			"items": []any{},
			"total": 0,
			"page":  1,
			"limit": 10,
		})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL, NewMemStore())

	page, err := c.ListPosts(context.Background(), ListPostsOptions{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
