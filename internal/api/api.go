// Package api implements the HTTP handlers of the TaskNet dev API server.
// Request and response bodies follow the token endpoints the TaskNet
// backend exposes, so the client can be exercised against it unchanged.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"mime"
	"net/http"

	"git.sr.ht/~jakintosh/tasknet/internal/service"
)

const (
	Prefix       = "/api"
	maxBodyBytes = 1 << 20
)

const (
	CodeTokenNotValid = "token_not_valid"
)

type API struct {
	service *service.Service
}

func New(svc *service.Service) *API {
	return &API{service: svc}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			logApiErr(r, fmt.Sprintf("unsupported content type '%s'", ct))
			writeStatus(w, http.StatusUnsupportedMediaType, ErrorResponse{
				Detail: fmt.Sprintf("Unsupported media type \"%s\" in request.", ct),
			})
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logApiErr(r, "bad json request")
		writeStatus(w, http.StatusBadRequest, ErrorResponse{Detail: "JSON parse error"})
		return false
	}
	return true
}

func returnJson(data any, w http.ResponseWriter) {
	writeStatus(w, http.StatusOK, data)
}

func writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("api: couldn't encode response: %v", err)
	}
}

// writeError maps service errors to responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logApiErr(r, err.Error())

	switch {
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrInvalidCredentials):
		writeStatus(w, http.StatusUnauthorized, ErrorResponse{
			Detail: "No active account found with the given credentials",
		})
	case errors.Is(err, service.ErrTokenInvalid):
		writeStatus(w, http.StatusUnauthorized, ErrorResponse{
			Detail: "Token is invalid or expired",
			Code:   CodeTokenNotValid,
		})
	case errors.Is(err, service.ErrHandleExists):
		writeStatus(w, http.StatusBadRequest, ErrorResponse{
			Detail: "A user with that username already exists.",
		})
	case errors.Is(err, service.ErrInvalidHandle),
		errors.Is(err, service.ErrInvalidPassword):
		writeStatus(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
	default:
		writeStatus(w, http.StatusInternalServerError, ErrorResponse{Detail: "internal error"})
	}
}

func logApiErr(r *http.Request, msg string) {
	log.Printf("%s %s: %s\n", r.Method, r.RequestURI, msg)
}
