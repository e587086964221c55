package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func newAuthServer(t *testing.T, loginStatus, refreshStatus int) (*httptest.Server, *int, *int) {
	logins := 0
	refreshes := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins++
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "SN-001", body["loginIdentifier"])
		assert.Equal(t, "secret", body["password"])
		w.WriteHeader(loginStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
		})
	})
	mux.HandleFunc("/api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		refreshes++
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "refresh-1", body["refreshToken"])
		w.WriteHeader(refreshStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"accessToken": "access-2",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &logins, &refreshes
}

func newTestSession(t *testing.T, srv *httptest.Server) *SessionManager {
	return NewSessionManager(srv.Client(), srv.URL,
		Credentials{Serial: "SN-001", Password: "secret"}, zaptest.NewLogger(t))
}

func TestSessionManagerEnsureTokenLogsInOnce(t *testing.T) {
	srv, logins, _ := newAuthServer(t, http.StatusOK, http.StatusOK)
	sm := newTestSession(t, srv)

	token, err := sm.EnsureToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access-1", token)

	// second call hits the cache
	token, err = sm.EnsureToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, *logins)
}

func TestSessionManagerRefreshReplacesAccessToken(t *testing.T) {
	srv, _, refreshes := newAuthServer(t, http.StatusOK, http.StatusOK)
	sm := newTestSession(t, srv)

	_, err := sm.Login(context.Background())
	assert.NoError(t, err)

	token, err := sm.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, 1, *refreshes)
}

func TestSessionManagerRefreshWithoutTokenFallsBackToLogin(t *testing.T) {
	srv, logins, refreshes := newAuthServer(t, http.StatusOK, http.StatusOK)
	sm := newTestSession(t, srv)

	token, err := sm.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, *logins)
	assert.Equal(t, 0, *refreshes)
}

func TestSessionManagerRefreshFailureClearsSession(t *testing.T) {
	srv, logins, _ := newAuthServer(t, http.StatusOK, http.StatusUnauthorized)
	sm := newTestSession(t, srv)

	_, err := sm.Login(context.Background())
	assert.NoError(t, err)

	_, err = sm.Refresh(context.Background())
	assert.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, "refresh", authErr.Op)

	// session was cleared, EnsureToken must log in again
	token, err := sm.EnsureToken(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 2, *logins)
}

func TestSessionManagerLoginFailure(t *testing.T) {
	srv, _, _ := newAuthServer(t, http.StatusForbidden, http.StatusOK)
	sm := newTestSession(t, srv)

	_, err := sm.EnsureToken(context.Background())
	assert.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, "login", authErr.Op)
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
}
