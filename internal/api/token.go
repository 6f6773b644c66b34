package api

import (
	"net/http"
)

type ObtainPairRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ObtainPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type BlacklistRequest struct {
	Refresh string `json:"refresh"`
}

func (a *API) ObtainPair() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ObtainPairRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if req.Username == "" || req.Password == "" {
			logApiErr(r, "missing username or password")
			writeStatus(w, http.StatusBadRequest, ErrorResponse{
				Detail: "username and password are required",
			})
			return
		}

		pair, err := a.service.ObtainPair(req.Username, req.Password)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(ObtainPairResponse{Access: pair.Access, Refresh: pair.Refresh}, w)
	}
}

func (a *API) Refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if req.Refresh == "" {
			logApiErr(r, "missing refresh")
			writeStatus(w, http.StatusBadRequest, ErrorResponse{Detail: "refresh is required"})
			return
		}

		access, err := a.service.RefreshAccess(req.Refresh)
		if err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(RefreshResponse{Access: access}, w)
	}
}

func (a *API) Blacklist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BlacklistRequest
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}
		if req.Refresh == "" {
			logApiErr(r, "missing refresh")
			writeStatus(w, http.StatusBadRequest, ErrorResponse{Detail: "refresh is required"})
			return
		}

		if err := a.service.Revoke(req.Refresh); err != nil {
			writeError(w, r, err)
			return
		}

		returnJson(struct{}{}, w)
	}
}
