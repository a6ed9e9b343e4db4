package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeogida/yeogida-backend/internal/config"
	"github.com/yeogida/yeogida-backend/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string {
		return map[string]string{
			"JWT_SECRET":           "server-test-secret-0123456789",
			"DB_PATH":              ":memory:",
			"CORS_ALLOWED_ORIGINS": "http://localhost:3000",
		}[k]
	})
	require.NoError(t, err)

	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *Server) do(method, path, body, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestServer_AuthBoundaries(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/carpools", http.StatusOK},
		{http.MethodGet, "/reviews", http.StatusOK},
		{http.MethodGet, "/rankings", http.StatusOK},
		{http.MethodPost, "/carpools", http.StatusUnauthorized},
		{http.MethodPost, "/reviews", http.StatusUnauthorized},
		{http.MethodGet, "/courses", http.StatusUnauthorized},
		{http.MethodGet, "/users/me", http.StatusUnauthorized},
		{http.MethodGet, "/users/me/favorites", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := s.do(tt.method, tt.path, "", "")
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestServer_BearerRoundTrip(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.CreateAccount(context.Background(), &model.Account{
		ID: "4242", Nickname: "traveler", IsActive: true,
	}))
	pair, err := s.tokens.Issue("4242")
	require.NoError(t, err)

	rr := s.do(http.MethodGet, "/users/me", "", pair.Access)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"nickname":"traveler"`)

	// A refresh token is not an access credential.
	rr = s.do(http.MethodGet, "/users/me", "", pair.Refresh)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/carpools",
		`{"title":"ride","departure":"Seoul","destination":"Busan","departureTime":"2025-05-01T09:00:00+09:00"}`,
		pair.Access)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestServer_CommentOnMissingReview(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodPost, "/reviews/1/comments", `{"content":"hi"}`, "")
	// OptionalAuth lets the request through; the missing review is reported
	// before the anonymous caller is.
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/carpools", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_KakaoLoginRedirect(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(http.MethodGet, "/auth/login/kakao", "", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "https://kauth.kakao.com/oauth/authorize"))
}
