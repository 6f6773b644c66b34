package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
)

// UnauthorizedEvent is sent to the Notifier when a refresh fails and the
// stored credentials have been discarded.
const UnauthorizedEvent = "unauthorized"

// Notifier receives process-wide notifications such as UnauthorizedEvent.
type Notifier interface {
	Notify(event string)
}

type refreshResult struct {
	access string
	err    error
}

// Transport is an http.RoundTripper that attaches the stored access
// credential to every request and renews it on 401. It is safe for
// concurrent use; at most one refresh is in flight at any time.
type Transport struct {
	base           http.RoundTripper
	store          credentials.Store
	refresher      Refresher
	notifier       Notifier
	defaults       http.Header
	refreshTimeout time.Duration
	logLevel       LogLevel

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

func New(
	store credentials.Store,
	refresher Refresher,
	opts ...Option,
) *Transport {
	t := &Transport{
		base:           http.DefaultTransport,
		store:          store,
		refresher:      refresher,
		defaults:       make(http.Header),
		refreshTimeout: DefaultRefreshTimeout,
		logLevel:       LogLevelDefault,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Client returns an http.Client that sends all requests through t.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Prepare applies the default headers and, when an access credential is
// stored, sets the Authorization header to "Bearer <access>".
func (t *Transport) Prepare(req *http.Request) {
	t.prepare(req)
}

func (t *Transport) prepare(req *http.Request) string {
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for key, values := range t.defaults {
		if _, ok := req.Header[key]; !ok {
			req.Header[key] = slices.Clone(values)
		}
	}

	access, ok := t.store.Get(credentials.AccessKey)
	if !ok || access == "" {
		return ""
	}
	setBearer(req, access)
	return access
}

// Refreshing reports whether a refresh call is currently outstanding.
func (t *Transport) Refreshing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refreshing
}

// Waiting reports how many requests are queued behind the outstanding
// refresh.
func (t *Transport) Waiting() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	pending, err := newPendingRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.send(pending, "")
	if err != nil {
		return nil, err
	}
	return t.handle(pending, resp)
}

// send performs one attempt. A non-empty access overrides the stored one.
func (t *Transport) send(
	p *pendingRequest,
	access string,
) (*http.Response, error) {
	req, err := p.attempt()
	if err != nil {
		return nil, err
	}

	p.sentAccess = t.prepare(req)
	if access != "" {
		setBearer(req, access)
		p.sentAccess = access
	}

	t.log(LogLevelDebug, "%s %s (authenticated: %v, retry: %v)",
		req.Method, req.URL.Redacted(), p.sentAccess != "", p.retried)
	return t.base.RoundTrip(req)
}

func (t *Transport) handle(
	p *pendingRequest,
	resp *http.Response,
) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized || p.retried {
		return resp, nil
	}
	refresh, ok := t.store.Get(credentials.RefreshKey)
	if !ok || refresh == "" {
		return resp, nil
	}

	p.retried = true
	discard(resp)

	access, err := t.awaitAccess(p, refresh)
	if err != nil {
		return nil, err
	}
	return t.send(p, access)
}

// awaitAccess returns the access credential p should be retried with,
// either by running the refresh itself or by waiting on the one in flight.
func (t *Transport) awaitAccess(
	p *pendingRequest,
	refresh string,
) (string, error) {
	t.mu.Lock()
	if t.refreshing {
		waiter := make(chan refreshResult, 1)
		t.waiters = append(t.waiters, waiter)
		queued := len(t.waiters)
		t.mu.Unlock()

		t.log(LogLevelDebug, "refresh in flight; waiting (%d queued)", queued)
		result := <-waiter
		return result.access, result.err
	}

	// the credential was already replaced after this attempt went out
	if current, ok := t.store.Get(credentials.AccessKey); ok && current != "" && current != p.sentAccess {
		t.mu.Unlock()
		t.log(LogLevelDebug, "access credential changed since request was sent; retrying")
		return current, nil
	}

	t.refreshing = true
	t.mu.Unlock()

	return t.refreshAccess(p.req.Context(), refresh)
}

// refreshAccess runs the single in-flight refresh. It must only be called by
// the goroutine that moved the transport into the refreshing state.
func (t *Transport) refreshAccess(
	ctx context.Context,
	refresh string,
) (access string, err error) {
	defer func() {
		// only reached without a result when the refresher panicked
		if access == "" && err == nil {
			err = ErrRefreshAborted
		}
		t.settle(access, err)
	}()

	ctx = context.WithoutCancel(ctx)
	if t.refreshTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.refreshTimeout)
		defer cancel()
	}

	t.log(LogLevelInfo, "access credential rejected; refreshing")
	access, err = t.refresher.Refresh(ctx, refresh)
	if err == nil && access == "" {
		err = fmt.Errorf("%w: empty access credential", ErrRefreshResponse)
	}
	if err == nil {
		if setErr := t.store.Set(credentials.AccessKey, access); setErr != nil {
			err = fmt.Errorf("%w: %v", ErrRefreshPersist, setErr)
		}
	}
	if err != nil {
		t.log(LogLevelError, "refresh failed, discarding credentials: %v", err)
		if clearErr := credentials.Clear(t.store); clearErr != nil {
			t.log(LogLevelError, "failed to clear credentials: %v", clearErr)
		}
		if t.notifier != nil {
			t.notifier.Notify(UnauthorizedEvent)
		}
		return "", err
	}

	t.log(LogLevelInfo, "access credential refreshed")
	return access, nil
}

// settle hands the refresh outcome to every waiter in queue order and
// returns the transport to idle. Draining and the state change happen under
// one lock so no request can queue behind a refresh that already settled.
func (t *Transport) settle(access string, err error) {
	t.mu.Lock()
	waiters := t.waiters
	t.waiters = nil
	t.refreshing = false
	t.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- refreshResult{access: access, err: err}
	}
	if len(waiters) > 0 {
		t.log(LogLevelDebug, "released %d waiting requests", len(waiters))
	}
}

func setBearer(req *http.Request, access string) {
	req.Header.Set("Authorization", "Bearer "+access)
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
