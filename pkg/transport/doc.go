// Package transport provides an http.RoundTripper that authenticates requests
// with a stored bearer credential and silently renews it when the server
// answers 401.
//
// # Quick Start
//
// Wrap a credential store and a refresher, then hand the transport to an
// http.Client:
//
//	store := credentials.NewMemoryStore()
//	refresher := transport.NewHTTPRefresher("https://api.example.com/api", nil)
//	t := transport.New(store, refresher,
//	    transport.WithNotifier(bus),
//	    transport.WithDefaultHeader("Content-Type", "application/json"),
//	)
//	client := t.Client()
//
// # Request Augmentation
//
// Before every request the access credential is read from the store and, if
// present, sent as "Authorization: Bearer <access>". With no credential the
// request goes out unauthenticated.
//
// # Refresh Coalescing
//
// When a response is 401, a refresh credential is stored and the request has
// not been retried yet, the transport exchanges the refresh credential for a
// new access credential and retries the request once. At most one refresh is
// in flight per Transport: requests that hit a 401 while a refresh is running
// wait for its outcome instead of issuing their own.
//
//   - On success the new access credential is stored and every waiting request
//     is resubmitted with it.
//   - On failure both credentials are removed from the store, every waiting
//     request fails with the same error, and the notifier receives
//     UnauthorizedEvent.
//
// A request whose retry also answers 401 gets that response back; it is never
// retried twice.
//
// # Error Handling
//
// Refresh failures are reported as:
//
//	resp, err := client.Do(req)
//	switch {
//	case errors.Is(err, transport.ErrRefreshRejected):
//	    // refresh endpoint answered non-2xx; see *RefreshError for the status
//	case errors.Is(err, transport.ErrRefreshRequest):
//	    // refresh endpoint unreachable
//	case errors.Is(err, transport.ErrRefreshResponse):
//	    // refresh endpoint answered with an unusable body
//	}
//
// Any other error or non-401 response is passed through untouched.
package transport
