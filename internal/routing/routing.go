// Package routing wires the dev server's API handlers onto a gorilla/mux
// router.
package routing

import (
	"git.sr.ht/~jakintosh/tasknet/internal/api"
	"github.com/gorilla/mux"
)

func BuildRouter(a *api.API) *mux.Router {
	r := mux.NewRouter()

	// routes for api
	s := r.PathPrefix(api.Prefix).Subrouter()
	s.HandleFunc("/token/", a.ObtainPair()).Methods("POST")
	s.HandleFunc("/token/refresh/", a.Refresh()).Methods("POST")
	s.HandleFunc("/token/blacklist/", a.Blacklist()).Methods("POST")
	s.HandleFunc("/register/", a.Register()).Methods("POST")
	s.Handle("/me/", a.RequireBearer(a.Me())).Methods("GET")

	return r
}
