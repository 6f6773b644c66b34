package transport

import (
	"net/http"
	"time"
)

const DefaultRefreshTimeout = 30 * time.Second

type Option func(*Transport)

// WithBase sets the RoundTripper that actually sends requests. Defaults to
// http.DefaultTransport.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithNotifier sets who is told about UnauthorizedEvent.
func WithNotifier(n Notifier) Option {
	return func(t *Transport) {
		t.notifier = n
	}
}

// WithDefaultHeader adds a header sent on every request that does not already
// carry it. Authorization is always taken from the credential store and
// cannot be defaulted.
func WithDefaultHeader(key string, value string) Option {
	return func(t *Transport) {
		if http.CanonicalHeaderKey(key) == "Authorization" {
			return
		}
		t.defaults.Add(key, value)
	}
}

// WithRefreshTimeout bounds a single refresh call. Zero or less means no
// bound beyond the base transport's own.
func WithRefreshTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.refreshTimeout = d
	}
}

func WithLogLevel(level LogLevel) Option {
	return func(t *Transport) {
		t.logLevel = level
	}
}
