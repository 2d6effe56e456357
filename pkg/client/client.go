// Package client is the Go SDK for the blog API. It owns the credential
// lifecycle: every call attaches the stored access token, a 401 triggers a
// single-flight token refresh, and the original call is resubmitted exactly
// once with the fresh credential. A 403 is an ownership rejection and is
// never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client calls the blog API on behalf of one credential pair.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       Store
	coordinator *RefreshCoordinator
	logger      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client against the given base URL, e.g.
// "http://localhost:8080/api". The store decides whether the session
// survives a restart; use NewFileStore for that, NewMemStore otherwise.
func New(baseURL string, store Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.coordinator = NewRefreshCoordinator(store, c.exchangeRefreshToken)

	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Details string `json:"details"`
}

// do runs one logical API call through the full pipeline. out may be nil for
// calls whose payload is irrelevant.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Err: err}
		}
		payload = encoded
	}

	token := c.currentAccessToken()

	status, env, err := c.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		// One retry, ever: a fresh credential that is still rejected
		// surfaces the second failure.
		c.logger.Debug("Access token rejected, refreshing", slog.String("path", path))

		newToken, refreshErr := c.coordinator.RequestRefresh(ctx)
		if refreshErr != nil {
			return refreshErr
		}

		status, env, err = c.send(ctx, method, path, payload, newToken)
		if err != nil {
			return err
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return apiErrorFrom(status, env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &TransportError{Err: err}
		}
	}

	return nil
}

// send performs one HTTP round trip and decodes the envelope. It never
// retries; retry policy lives in do.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) (int, *envelope, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	env := new(envelope)
	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return 0, nil, &TransportError{Err: err}
	}

	return resp.StatusCode, env, nil
}

func (c *Client) currentAccessToken() string {
	pair, err := c.store.Get()
	if err != nil || pair == nil {
		return ""
	}

	return pair.AccessToken
}

func apiErrorFrom(status int, env *envelope) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Kind:       kindForStatus(status),
		Message:    env.Message,
	}
	if env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Details = env.Error.Details
	}

	return apiErr
}

// --- Authentication ---

// tokenPair mirrors the login/refresh payload: the access token travels
// under "token".
type tokenPair struct {
	AccessToken  string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	User         *Subject `json:"user"`
}

// exchangeRefreshToken is the coordinator's refresh call. It deliberately
// bypasses do: a 401 here must not recurse into another refresh.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (*CredentialPair, error) {
	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	status, env, err := c.send(ctx, http.MethodPost, "/auth/refresh-token", payload, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiErrorFrom(status, env)
	}

	var pair tokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		return nil, &TransportError{Err: err}
	}

	return &CredentialPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Register creates a new account. It does not log in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Subject, error) {
	subject := new(Subject)
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, subject)
	if err != nil {
		return nil, err
	}

	return subject, nil
}

// Login authenticates and stores the resulting credential pair.
func (c *Client) Login(ctx context.Context, email, password string) (*Subject, error) {
	var pair tokenPair
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &pair)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(&CredentialPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Subject:      pair.User,
	}); err != nil {
		return nil, err
	}

	return pair.User, nil
}

// Logout revokes the stored refresh token and clears the store. The store is
// cleared even when revocation fails; the local session always ends.
func (c *Client) Logout(ctx context.Context) error {
	pair, err := c.store.Get()
	if err != nil {
		return err
	}

	var revokeErr error
	if pair != nil && pair.RefreshToken != "" {
		revokeErr = c.do(ctx, http.MethodPost, "/auth/logout", map[string]string{
			"refreshToken": pair.RefreshToken,
		}, nil)
	}

	if err := c.store.Clear(); err != nil {
		return err
	}

	return revokeErr
}

// Me returns the subject behind the current access token.
func (c *Client) Me(ctx context.Context) (*Subject, error) {
	subject := new(Subject)
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, subject); err != nil {
		return nil, err
	}

	return subject, nil
}

// --- Posts ---

// Category is a named tag referenced by posts.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Comment belongs to a post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	UserID     string    `json:"userId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Post is a blog entry.
type Post struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"authorId"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Category  *Category  `json:"category,omitempty"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	IsPinned  bool       `json:"isPinned"`
	Comments  []*Comment `json:"comments,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// PostPage is one page of a post listing.
type PostPage struct {
	Items []*Post `json:"items"`
	Count int     `json:"count"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

// ListPostsOptions filters and paginates a post listing. Zero values are
// omitted and fall back to server defaults.
type ListPostsOptions struct {
	Page       int
	Limit      int
	CategoryID string
	Search     string
	Sort       string
}

// PostDraft is the payload for creating or updating a post.
type PostDraft struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID string `json:"categoryId,omitempty"`
}

// ListPosts fetches one page of posts.
func (c *Client) ListPosts(ctx context.Context, opts ListPostsOptions) (*PostPage, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.CategoryID != "" {
		query.Set("category", opts.CategoryID)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}

	path := "/posts"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	page := new(PostPage)
	if err := c.do(ctx, http.MethodGet, path, nil, page); err != nil {
		return nil, err
	}

	return page, nil
}

// GetPost fetches a single post with its comments.
func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	post := new(Post)
	if err := c.do(ctx, http.MethodGet, "/posts/"+postID, nil, post); err != nil {
		return nil, err
	}

	return post, nil
}

// CreatePost creates a post owned by the current subject.
func (c *Client) CreatePost(ctx context.Context, draft PostDraft) (*Post, error) {
	post := new(Post)
	if err := c.do(ctx, http.MethodPost, "/posts", draft, post); err != nil {
		return nil, err
	}

	return post, nil
}

// UpdatePost replaces a post's fields. Author-only.
func (c *Client) UpdatePost(ctx context.Context, postID string, draft PostDraft) (*Post, error) {
	post := new(Post)
	if err := c.do(ctx, http.MethodPut, "/posts/"+postID, draft, post); err != nil {
		return nil, err
	}

	return post, nil
}

// DeletePost removes a post. Author-only.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+postID, nil, nil)
}

// TogglePin flips a post's pinned flag. Author-only.
func (c *Client) TogglePin(ctx context.Context, postID string) (*Post, error) {
	post := new(Post)
	if err := c.do(ctx, http.MethodPut, "/posts/"+postID+"/pin", nil, post); err != nil {
		return nil, err
	}

	return post, nil
}

// ListComments fetches a post's comments in arrival order.
func (c *Client) ListComments(ctx context.Context, postID string) ([]*Comment, error) {
	var comments []*Comment
	if err := c.do(ctx, http.MethodGet, "/posts/"+postID+"/comments", nil, &comments); err != nil {
		return nil, err
	}

	return comments, nil
}

// AddComment appends a comment to a post. Any authenticated subject may
// comment.
func (c *Client) AddComment(ctx context.Context, postID, content string) (*Comment, error) {
	comment := new(Comment)
	err := c.do(ctx, http.MethodPost, "/posts/"+postID+"/comments", map[string]string{
		"content": content,
	}, comment)
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// DeleteComment removes a comment. Permitted for the comment author or the
// parent post's author.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+postID+"/comments/"+commentID, nil, nil)
}

// --- Categories ---

// ListCategories fetches every category.
func (c *Client) ListCategories(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}

	return categories, nil
}

// CreateCategory creates a named category.
func (c *Client) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	category := new(Category)
	err := c.do(ctx, http.MethodPost, "/categories", map[string]string{
		"name":        name,
		"description": description,
	}, category)
	if err != nil {
		return nil, err
	}

	return category, nil
}
