// Package client is a Go client for the dashboard auth API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/podboard/backend/auth"
	"github.com/podboard/backend/models"
)

// Client talks to the /api namespace and holds the session token.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken starts the client with an existing session.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the server at baseURL, e.g. "http://localhost:3000".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response. It unwraps to the matching auth error.
type APIError struct {
	Status  int
	Message string
	Details string
	kind    error
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// UserChanges is the body of UpdateUser. Nil fields are left unchanged.
type UserChanges struct {
	Password *string      `json:"password,omitempty"`
	Role     *models.Role `json:"role,omitempty"`
}

// Token returns the current session token, empty when logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login authenticates and keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}

// Logout forgets the session token. Tokens are stateless, so there is no
// server call.
func (c *Client) Logout() {
	c.SetToken("")
}

// Me returns the principal of the current token.
func (c *Client) Me(ctx context.Context) (*auth.Principal, error) {
	var p auth.Principal
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListUsers returns all users, oldest first.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser adds a user. An empty role lets the server apply its default.
func (c *Client) CreateUser(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	body := struct {
		Username string      `json:"username"`
		Password string      `json:"password"`
		Role     models.Role `json:"role,omitempty"`
	}{username, password, role}

	var user models.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/users", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes another user's password and/or role.
func (c *Client) UpdateUser(ctx context.Context, id uint, changes UserChanges) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/auth/users/%d", id), changes, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes another user.
func (c *Client) DeleteUser(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := decodeError(resp, path)
		if errors.Is(apiErr, auth.ErrInvalidToken) {
			// The session is gone; make the caller log in again.
			c.SetToken("")
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response, path string) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = http.StatusText(resp.StatusCode)
	}

	e := &APIError{Status: resp.StatusCode, Message: payload.Error, Details: payload.Details}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		if payload.Error == "Cannot modify your own account" {
			e.kind = auth.ErrSelfModification
		} else {
			e.kind = auth.ErrValidation
		}
	case http.StatusUnauthorized:
		if path == "/api/auth/login" {
			e.kind = auth.ErrInvalidCredentials
		} else {
			e.kind = auth.ErrInvalidToken
		}
	case http.StatusForbidden:
		e.kind = auth.ErrForbidden
	case http.StatusNotFound:
		e.kind = auth.ErrNotFound
	case http.StatusConflict:
		e.kind = auth.ErrDuplicateUsername
	}
	return e
}
