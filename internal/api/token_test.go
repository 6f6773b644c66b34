package api_test

import (
	"net/http"
	"testing"

	"git.sr.ht/~jakintosh/tasknet/internal/api"
	"git.sr.ht/~jakintosh/tasknet/internal/testutil"
)

func TestObtainPair_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password123")

	// valid login returns access and refresh
	body := `{
		"username": "alice",
		"password": "password123"
	}`
	var response api.ObtainPairResponse
	result := testutil.PostJSON(env.Router, "/api/token/", body, &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	if response.Access == "" || response.Refresh == "" {
		t.Errorf("expected a full pair, got %+v", response)
	}
}

func TestObtainPair_WrongPassword(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password123")

	// wrong password and unknown user look the same
	for _, body := range []string{
		`{"username": "alice", "password": "wrong"}`,
		`{"username": "nobody", "password": "password123"}`,
	} {
		result := testutil.PostJSON(env.Router, "/api/token/", body, nil)
		testutil.ExpectStatus(t, http.StatusUnauthorized, result)
		testutil.ExpectDetail(t, "No active account found with the given credentials", result)
	}
}

func TestObtainPair_MissingFields(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// missing password returns 400
	result := testutil.PostJSON(env.Router, "/api/token/", `{"username": "alice"}`, nil)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestObtainPair_UnsupportedContentType(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// non-JSON content type is rejected
	result := testutil.Post(env.Router, "/api/token/", "data", nil,
		testutil.Header{Key: "Content-Type", Value: "text/plain"})
	testutil.ExpectStatus(t, http.StatusUnsupportedMediaType, result)
}

func TestRefresh_Success(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password")
	pair := env.LoginTestUser(t, "alice", "password")

	// valid refresh returns a new access credential
	body := `{
		"refresh": "` + pair.Refresh + `"
	}`
	var response api.RefreshResponse
	result := testutil.PostJSON(env.Router, "/api/token/refresh/", body, &response)
	testutil.ExpectStatus(t, http.StatusOK, result)
	if response.Access == "" || response.Access == pair.Access {
		t.Errorf("expected a new access credential, got %q", response.Access)
	}

	// the new access credential authorizes requests
	var me api.MeResponse
	result = testutil.Get(env.Router, "/api/me/", &me, testutil.BearerHeader(response.Access))
	testutil.ExpectStatus(t, http.StatusOK, result)
	if me.Username != "alice" {
		t.Errorf("username = %s, want alice", me.Username)
	}
}

func TestRefresh_NotRotated(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password")
	pair := env.LoginTestUser(t, "alice", "password")

	// the same refresh works twice
	body := `{"refresh": "` + pair.Refresh + `"}`
	result := testutil.PostJSON(env.Router, "/api/token/refresh/", body, nil)
	testutil.ExpectStatus(t, http.StatusOK, result)
	result = testutil.PostJSON(env.Router, "/api/token/refresh/", body, nil)
	testutil.ExpectStatus(t, http.StatusOK, result)
}

func TestRefresh_InvalidToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// unknown token returns 401 token_not_valid
	body := `{
		"refresh": "invalid-token"
	}`
	result := testutil.PostJSON(env.Router, "/api/token/refresh/", body, nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
	testutil.ExpectDetail(t, "Token is invalid or expired", result)
}

func TestRefresh_MissingToken(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// empty body object returns 400
	result := testutil.PostJSON(env.Router, "/api/token/refresh/", `{}`, nil)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestRefresh_InvalidJSON(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// malformed JSON returns 400
	result := testutil.PostJSON(env.Router, "/api/token/refresh/", "bad-json", nil)
	testutil.ExpectStatus(t, http.StatusBadRequest, result)
}

func TestBlacklist_RevokesRefresh(t *testing.T) {
	t.Parallel()
	env := testutil.SetupTestEnvWithRouter(t)

	// setup env
	env.RegisterTestUser(t, "alice", "password")
	pair := env.LoginTestUser(t, "alice", "password")
	body := `{"refresh": "` + pair.Refresh + `"}`

	// blacklisting succeeds once
	result := testutil.PostJSON(env.Router, "/api/token/blacklist/", body, nil)
	testutil.ExpectStatus(t, http.StatusOK, result)

	// the refresh no longer works, and cannot be blacklisted again
	result = testutil.PostJSON(env.Router, "/api/token/refresh/", body, nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
	result = testutil.PostJSON(env.Router, "/api/token/blacklist/", body, nil)
	testutil.ExpectStatus(t, http.StatusUnauthorized, result)
}
