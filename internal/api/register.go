package api

import (
	"net/http"
)

type RegistrationRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegistrationResponse struct {
	Username string `json:"username"`
}

func (a *API) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegistrationRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		if err := a.service.Register(req.Username, req.Password); err != nil {
			writeError(w, r, err)
			return
		}

		writeStatus(w, http.StatusCreated, RegistrationResponse{Username: req.Username})
	}
}
