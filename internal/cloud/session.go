package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// Session is the in-memory access/refresh token pair. It is owned by a
// SessionManager and never shared as a global.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// Credentials authenticate the device itself: the serial number doubles as the
// login identifier.
type Credentials struct {
	Serial   string
	Password string
}

// SessionManager owns the single process-wide session. Every method holds the
// mutex for the full token exchange, so concurrent callers that need a token
// while a refresh is in flight wait for that refresh instead of starting a
// second one.
type SessionManager struct {
	mu      sync.Mutex
	http    *http.Client
	authURL string
	creds   Credentials
	session Session
	logger  *zap.Logger
}

func NewSessionManager(httpClient *http.Client, authURL string, creds Credentials, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		http:    httpClient,
		authURL: authURL,
		creds:   creds,
		logger:  logger.With(zap.String("service", "session")),
	}
}

// EnsureToken returns the cached access token, performing a full login when
// the session is empty.
func (s *SessionManager) EnsureToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.AccessToken != "" {
		return s.session.AccessToken, nil
	}
	return s.loginLocked(ctx)
}

// Login performs a fresh login, replacing any cached session.
func (s *SessionManager) Login(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLocked(ctx)
}

// Refresh exchanges the refresh token for a new access token. On any failure
// both tokens are cleared so the next EnsureToken performs a full login.
func (s *SessionManager) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.RefreshToken == "" {
		// nothing to refresh, fall back to login
		return s.loginLocked(ctx)
	}

	body := map[string]string{"refreshToken": s.session.RefreshToken}
	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	status, err := s.postJSON(ctx, s.authURL+"/api/auth/refresh-token", body, &resp)
	if err != nil || status < 200 || status >= 300 {
		s.session = Session{}
		s.logger.Warn("token refresh failed, session cleared", zap.Int("status", status), zap.Error(err))
		return "", &AuthError{Op: "refresh", StatusCode: status, Err: err}
	}
	s.session.AccessToken = resp.AccessToken
	s.logger.Debug("access token refreshed")
	return s.session.AccessToken, nil
}

// Clear drops both tokens.
func (s *SessionManager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
}

func (s *SessionManager) loginLocked(ctx context.Context) (string, error) {
	body := map[string]string{
		"loginIdentifier": s.creds.Serial,
		"password":        s.creds.Password,
	}
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	status, err := s.postJSON(ctx, s.authURL+"/api/auth/login", body, &resp)
	if err != nil || status < 200 || status >= 300 {
		s.session = Session{}
		s.logger.Warn("device login failed", zap.Int("status", status), zap.Error(err))
		return "", &AuthError{Op: "login", StatusCode: status, Err: err}
	}
	s.session = Session{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	s.logger.Info("device logged in")
	return s.session.AccessToken, nil
}

func (s *SessionManager) postJSON(ctx context.Context, url string, body any, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode auth response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
