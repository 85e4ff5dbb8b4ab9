package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"taskpad/internal/apperr"
)

// Client talks to the Taskpad API. Safe for concurrent use; token state
// is guarded so an in-flight refresh does not race sign-in/sign-out.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokenFile  *TokenFile // nil keeps tokens in memory only

	mu     sync.Mutex
	tokens Tokens
}

func NewClient(baseURL string, tokenFile *TokenFile) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokenFile:  tokenFile,
	}
	if tokenFile != nil {
		tokens, err := tokenFile.Load()
		if err != nil {
			return nil, err
		}
		c.tokens = tokens
	}
	return c, nil
}

// apiError is a non-2xx response from the API.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, accessToken string) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Network("Network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Error == "" {
			failure.Error = resp.Status
		}
		return &apiError{Status: resp.StatusCode, Code: failure.Code, Message: failure.Error}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Network("Malformed response", err)
		}
	}
	return nil
}

// authedDo performs an authenticated call, refreshing the access token
// once when the server rejects it.
func (c *Client) authedDo(ctx context.Context, method, path string, body, out any) error {
	err := c.do(ctx, method, path, body, out, c.accessToken())
	apiErr, ok := err.(*apiError)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		return err
	}
	if _, refreshErr := c.refresh(ctx); refreshErr != nil {
		return err
	}
	return c.do(ctx, method, path, body, out, c.accessToken())
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.AccessToken
}

func (c *Client) refreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.RefreshToken
}

func (c *Client) setTokens(tokens Tokens) {
	c.mu.Lock()
	c.tokens = tokens
	file := c.tokenFile
	c.mu.Unlock()
	if file != nil {
		if tokens == (Tokens{}) {
			_ = file.Clear()
		} else {
			_ = file.Save(tokens)
		}
	}
}

type sessionResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	ExpiresAt    int64  `json:"expiresAt"`
}

func (r sessionResponse) session() Session {
	return Session{
		Identity:  Identity{ID: r.UserID, Username: r.Username, Email: r.Email},
		ExpiresAt: time.Unix(r.ExpiresAt, 0),
	}
}

func (c *Client) refresh(ctx context.Context) (sessionResponse, error) {
	token := c.refreshToken()
	if token == "" {
		return sessionResponse{}, apperr.Auth("no refresh token", nil)
	}
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh", map[string]any{"refreshToken": token}, &resp, "")
	if err != nil {
		if _, ok := err.(*apiError); ok {
			// Refresh token rejected; the persisted session is dead.
			c.setTokens(Tokens{})
		}
		return sessionResponse{}, err
	}
	c.setTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return resp, nil
}

// CurrentSession reports the currently valid session, or nil when there
// is none. A transport failure is returned as an error; the guard
// treats it as absent.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	if c.accessToken() == "" && c.refreshToken() == "" {
		return nil, nil
	}

	var status struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId"`
		Username      string `json:"username"`
		Email         string `json:"email"`
		ExpiresAt     int64  `json:"expiresAt"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/session", nil, &status, c.accessToken()); err != nil {
		if _, ok := err.(*apiError); ok {
			return nil, nil
		}
		return nil, err
	}
	if status.Authenticated {
		return &Session{
			Identity:  Identity{ID: status.UserID, Username: status.Username, Email: status.Email},
			ExpiresAt: time.Unix(status.ExpiresAt, 0),
		}, nil
	}

	// Access token stale; try to resume from the refresh token.
	resp, err := c.refresh(ctx)
	if err != nil {
		return nil, nil
	}
	session := resp.session()
	return &session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, username string) (Identity, error) {
	var resp struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]any{
		"email":    email,
		"password": password,
		"username": username,
	}, &resp, "")
	if err != nil {
		if apiErr, ok := err.(*apiError); ok {
			return Identity{}, apperr.Auth(apiErr.Message, apiErr)
		}
		return Identity{}, err
	}
	return Identity{ID: resp.UserID, Username: resp.Username, Email: resp.Email}, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", map[string]any{
		"email":    email,
		"password": password,
	}, &resp, "")
	if err != nil {
		if apiErr, ok := err.(*apiError); ok {
			return Session{}, apperr.Auth(apiErr.Message, apiErr)
		}
		return Session{}, err
	}
	c.setTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	return resp.session(), nil
}

// SignOut revokes the refresh session remotely and drops local tokens
// regardless of the outcome.
func (c *Client) SignOut(ctx context.Context) error {
	token := c.refreshToken()
	err := c.do(ctx, http.MethodPost, "/api/auth/signout", map[string]any{"refreshToken": token}, nil, c.accessToken())
	c.setTokens(Tokens{})
	if err != nil {
		if apiErr, ok := err.(*apiError); ok {
			return apperr.Auth(apiErr.Message, apiErr)
		}
		return err
	}
	return nil
}

type taskWire struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsComplete  bool   `json:"isComplete"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func (t taskWire) task() Task {
	return Task{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		IsComplete:  t.IsComplete,
		CreatedAt:   time.Unix(t.CreatedAt, 0),
		UpdatedAt:   time.Unix(t.UpdatedAt, 0),
	}
}

func storeError(err error) error {
	if apiErr, ok := err.(*apiError); ok {
		return apperr.Store(apiErr.Message, apiErr)
	}
	return err
}

// ListTasks fetches the caller's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var resp struct {
		Tasks []taskWire `json:"tasks"`
	}
	if err := c.authedDo(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, storeError(err)
	}
	tasks := make([]Task, 0, len(resp.Tasks))
	for _, wire := range resp.Tasks {
		tasks = append(tasks, wire.task())
	}
	return tasks, nil
}

func (c *Client) InsertTask(ctx context.Context, title, description string) (Task, error) {
	var wire taskWire
	err := c.authedDo(ctx, http.MethodPost, "/api/tasks", map[string]any{
		"title":       title,
		"description": description,
	}, &wire)
	if err != nil {
		return Task{}, storeError(err)
	}
	return wire.task(), nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, fields TaskFields) error {
	body := map[string]any{}
	if fields.Title != nil {
		body["title"] = *fields.Title
	}
	if fields.Description != nil {
		body["description"] = *fields.Description
	}
	if fields.IsComplete != nil {
		body["isComplete"] = *fields.IsComplete
	}
	if !fields.UpdatedAt.IsZero() {
		body["updatedAt"] = fields.UpdatedAt.Unix()
	}
	if err := c.authedDo(ctx, http.MethodPut, "/api/tasks/"+id, body, nil); err != nil {
		return storeError(err)
	}
	return nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.authedDo(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil); err != nil {
		return storeError(err)
	}
	return nil
}
