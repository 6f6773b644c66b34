package transport_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/tasknet/pkg/credentials"
	"git.sr.ht/~jakintosh/tasknet/pkg/transport"
	"golang.org/x/sync/errgroup"
)

// fakeAPI accepts one access credential on /api/tasks/ and serves a
// configurable /api/token/refresh/.
type fakeAPI struct {
	mu           sync.Mutex
	valid        string
	seen         []string
	refreshCalls int
	refreshed    []string

	refreshStatus int
	refreshBody   string
	beforeRefresh func()

	server *httptest.Server
}

func newFakeAPI(t *testing.T, valid string) *fakeAPI {
	t.Helper()
	a := &fakeAPI{
		valid:         valid,
		refreshStatus: http.StatusOK,
		refreshBody:   `{"access": "` + valid + `"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token/refresh/", a.refresh)
	mux.HandleFunc("/api/tasks/", a.tasks)
	a.server = httptest.NewServer(mux)
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	var req transport.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	a.mu.Lock()
	a.refreshCalls++
	a.refreshed = append(a.refreshed, req.Refresh)
	hook := a.beforeRefresh
	a.mu.Unlock()

	if hook != nil {
		hook()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(a.refreshStatus)
	w.Write([]byte(a.refreshBody))
}

func (a *fakeAPI) tasks(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	a.mu.Lock()
	a.seen = append(a.seen, auth)
	a.mu.Unlock()

	if auth != "Bearer "+a.valid {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Given token not valid for any token type"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`[]`))
}

// poll is waitFor for handler goroutines, which must not call t.Fatal.
func poll(cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

func (a *fakeAPI) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.refreshCalls
}

func (a *fakeAPI) count(auth string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	c := 0
	for _, s := range a.seen {
		if s == auth {
			c++
		}
	}
	return c
}

func (a *fakeAPI) transport(store credentials.Store, opts ...transport.Option) *transport.Transport {
	refresher := transport.NewHTTPRefresher(a.server.URL+"/api", a.server.Client())
	opts = append([]transport.Option{transport.WithBase(a.server.Client().Transport)}, opts...)
	return transport.New(store, refresher, opts...)
}

func TestScenario_ConcurrentRequestsShareOneRefresh(t *testing.T) {
	t.Parallel()
	const n = 3
	api := newFakeAPI(t, "A2")
	store := setupStore(t, credentials.Pair{Access: "A1", Refresh: "R1"})
	notifier := &recordingNotifier{}
	tr := api.transport(store, transport.WithNotifier(notifier))
	client := tr.Client()

	// refresh answers once the other requests are queued, after a delay
	api.beforeRefresh = func() {
		poll(func() bool { return tr.Waiting() == n-1 })
		time.Sleep(20 * time.Millisecond)
	}

	var g errgroup.Group
	for range n {
		g.Go(func() error {
			resp, err := client.Get(api.server.URL + "/api/tasks/")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return errors.New(resp.Status)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	// one refresh, three retries with the new credential, credential stored
	if calls := api.calls(); calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
	if api.refreshed[0] != "R1" {
		t.Errorf("refreshed with %q, want R1", api.refreshed[0])
	}
	if c := api.count("Bearer A1"); c != n {
		t.Errorf("requests with A1 = %d, want %d", c, n)
	}
	if c := api.count("Bearer A2"); c != n {
		t.Errorf("requests with A2 = %d, want %d", c, n)
	}
	if got := credentials.Load(store); got != (credentials.Pair{Access: "A2", Refresh: "R1"}) {
		t.Errorf("stored pair = %+v, want {A2 R1}", got)
	}
	if c := notifier.count(transport.UnauthorizedEvent); c != 0 {
		t.Errorf("unauthorized notifications = %d, want 0", c)
	}

	// later requests pick up the new credential directly
	req, _ := http.NewRequest(http.MethodGet, api.server.URL+"/api/tasks/", nil)
	tr.Prepare(req)
	if got := req.Header.Get("Authorization"); got != "Bearer A2" {
		t.Errorf("Authorization = %q, want Bearer A2", got)
	}
}

func TestScenario_RefreshRejectedLogsOut(t *testing.T) {
	t.Parallel()
	const n = 2
	api := newFakeAPI(t, "A2")
	api.refreshStatus = http.StatusBadRequest
	api.refreshBody = `{"detail": "Token is invalid or expired"}`
	store := setupStore(t, credentials.Pair{Access: "A1", Refresh: "R1"})
	notifier := &recordingNotifier{}
	tr := api.transport(store, transport.WithNotifier(notifier))
	client := tr.Client()

	api.beforeRefresh = func() {
		poll(func() bool { return tr.Waiting() == n-1 })
	}

	var g errgroup.Group
	errs := make([]error, n)
	for i := range n {
		g.Go(func() error {
			resp, err := client.Get(api.server.URL + "/api/tasks/")
			if err == nil {
				resp.Body.Close()
			}
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	// both requests fail with the refresh rejection
	for i, err := range errs {
		var refreshErr *transport.RefreshError
		if !errors.As(err, &refreshErr) {
			t.Errorf("request %d: expected *RefreshError, got %v", i, err)
			continue
		}
		if refreshErr.StatusCode != http.StatusBadRequest {
			t.Errorf("request %d: status = %d, want 400", i, refreshErr.StatusCode)
		}
	}

	// storage emptied, one notification, one refresh
	if _, ok := store.Get(credentials.AccessKey); ok {
		t.Error("access credential still stored")
	}
	if _, ok := store.Get(credentials.RefreshKey); ok {
		t.Error("refresh credential still stored")
	}
	if c := notifier.count(transport.UnauthorizedEvent); c != 1 {
		t.Errorf("unauthorized notifications = %d, want 1", c)
	}
	if calls := api.calls(); calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
}

func TestScenario_PersistentUnauthorizedIsNotRetriedTwice(t *testing.T) {
	t.Parallel()
	api := newFakeAPI(t, "never-valid")
	api.refreshBody = `{"access": "A2"}`
	store := setupStore(t, credentials.Pair{Access: "A1", Refresh: "R1"})
	client := api.transport(store).Client()

	// the retried request's 401 reaches the caller
	resp, err := client.Get(api.server.URL + "/api/tasks/")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if calls := api.calls(); calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
	if c := api.count("Bearer A2"); c != 1 {
		t.Errorf("retries = %d, want 1", c)
	}
}
