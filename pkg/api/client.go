// Package api is a small client for the TaskNet REST API.
//
// Requests that need authentication go through an *http.Client whose
// transport attaches and refreshes credentials (see pkg/transport); login,
// registration and logout use a plain client since they must work without
// a valid access credential.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
)

const maxResponseBytes = 4 << 20

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRequest      = errors.New("api request failed")
	ErrResponse     = errors.New("invalid api response")
)

// StatusError is returned for non-2xx responses. A 401 matches
// ErrUnauthorized with errors.Is.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	base string
	http *http.Client
	anon *http.Client
}

type Option func(*Client)

// WithAnonymousClient sets the client used for unauthenticated calls.
// Defaults to http.DefaultClient.
func WithAnonymousClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.anon = c
		}
	}
}

// New returns a client for the API rooted at apiBase (for example
// "https://host/api"). authed carries the authenticated transport.
func New(apiBase string, authed *http.Client, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(apiBase, "/"),
		http: authed,
		anon: http.DefaultClient,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Base() string {
	return c.base
}

func (c *Client) url(path string) string {
	return c.base + "/" + strings.TrimLeft(path, "/")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type refreshBody struct {
	Refresh string `json:"refresh"`
}

type meResponse struct {
	Username string `json:"username"`
}

// Login exchanges a username and password for a credential pair.
func (c *Client) Login(ctx context.Context, username, password string) (credentials.Pair, error) {
	var out loginResponse
	err := c.send(ctx, c.anon, http.MethodPost, "/token/", loginRequest{username, password}, &out)
	if err != nil {
		return credentials.Pair{}, err
	}
	if out.Access == "" || out.Refresh == "" {
		return credentials.Pair{}, fmt.Errorf("%w: login response missing credentials", ErrResponse)
	}
	return credentials.Pair{Access: out.Access, Refresh: out.Refresh}, nil
}

// Register creates an account. Only servers with registration enabled
// accept it.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.send(ctx, c.anon, http.MethodPost, "/register/", loginRequest{username, password}, nil)
}

// Logout revokes refresh on the server.
func (c *Client) Logout(ctx context.Context, refresh string) error {
	return c.send(ctx, c.anon, http.MethodPost, "/token/blacklist/", refreshBody{refresh}, nil)
}

// Me returns the username the current access credential belongs to.
func (c *Client) Me(ctx context.Context) (string, error) {
	var out meResponse
	if err := c.Do(ctx, http.MethodGet, "/me/", nil, &out); err != nil {
		return "", err
	}
	return out.Username, nil
}

// Do sends an authenticated request. in, when non-nil, is sent as JSON; out,
// when non-nil, receives the decoded JSON response.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, c.http, method, path, in, out)
}

// Get sends an authenticated GET and returns the raw response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.roundTrip(ctx, c.http, http.MethodGet, path, nil)
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	body, err := c.roundTrip(ctx, hc, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrResponse, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, hc *http.Client, method, path string, in any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding body: %v", ErrRequest, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrResponse, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}
