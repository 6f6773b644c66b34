package api

import (
	"context"
	"net/http"
	"strings"
)

type contextKey int

const handleKey contextKey = iota

type MeResponse struct {
	Username string `json:"username"`
}

// RequireBearer rejects requests without a valid "Bearer <access>"
// Authorization header and passes the owning handle to next.
func (a *API) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			logApiErr(r, "missing authorization")
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeStatus(w, http.StatusUnauthorized, ErrorResponse{
				Detail: "Authentication credentials were not provided.",
			})
			return
		}

		scheme, access, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || access == "" {
			logApiErr(r, "malformed authorization")
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeStatus(w, http.StatusUnauthorized, ErrorResponse{
				Detail: "Authorization header must contain two space-delimited values",
				Code:   "bad_authorization_header",
			})
			return
		}

		handle, err := a.service.Authorize(access)
		if err != nil {
			logApiErr(r, err.Error())
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeStatus(w, http.StatusUnauthorized, ErrorResponse{
				Detail: "Given token not valid for any token type",
				Code:   CodeTokenNotValid,
			})
			return
		}

		ctx := context.WithValue(r.Context(), handleKey, handle)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleFrom returns the handle RequireBearer attached to ctx.
func HandleFrom(ctx context.Context) (string, bool) {
	handle, ok := ctx.Value(handleKey).(string)
	return handle, ok
}

func (a *API) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handle, ok := HandleFrom(r.Context())
		if !ok {
			writeStatus(w, http.StatusUnauthorized, ErrorResponse{
				Detail: "Authentication credentials were not provided.",
			})
			return
		}
		returnJson(MeResponse{Username: handle}, w)
	}
}
