package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxRefreshBody = 64 << 10

// Refresher exchanges a refresh credential for a new access credential.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (access string, err error)
}

// RefresherFunc adapts a function to the Refresher interface.
type RefresherFunc func(ctx context.Context, refreshToken string) (string, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return f(ctx, refreshToken)
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

// HTTPRefresher calls POST <base>/token/refresh/. It must be given a client
// that does not itself go through a Transport.
type HTTPRefresher struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRefresher builds a refresher for the API rooted at apiBase, for
// example "https://api.example.com/api". A nil client means
// http.DefaultClient.
func NewHTTPRefresher(
	apiBase string,
	client *http.Client,
) *HTTPRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRefresher{
		endpoint: strings.TrimRight(apiBase, "/") + "/token/refresh/",
		client:   client,
	}
}

func (r *HTTPRefresher) Endpoint() string {
	return r.endpoint
}

// Refresh returns an error wrapping ErrRefreshRequest, ErrRefreshRejected
// (as *RefreshError) or ErrRefreshResponse.
func (r *HTTPRefresher) Refresh(
	ctx context.Context,
	refreshToken string,
) (string, error) {
	body, err := json.Marshal(RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshRequest, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxRefreshBody))
	if err != nil {
		return "", fmt.Errorf("%w: couldn't read body: %v", ErrRefreshResponse, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", &RefreshError{
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	var response RefreshResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return "", fmt.Errorf("%w: couldn't decode json: %v", ErrRefreshResponse, err)
	}
	if response.Access == "" {
		return "", fmt.Errorf("%w: missing access credential", ErrRefreshResponse)
	}
	return response.Access, nil
}
