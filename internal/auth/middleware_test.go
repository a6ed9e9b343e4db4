package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareTokens(t *testing.T) *TokenService {
	t.Helper()
	tokens, err := NewTokenService("middleware-test-secret-0123", 30*time.Minute, 168*time.Hour)
	require.NoError(t, err)
	return tokens
}

func echoAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := AccountIDFromContext(r.Context())
	if !ok {
		id = "anonymous"
	}
	w.Write([]byte(id))
}

func TestRequireAuth(t *testing.T) {
	tokens := newMiddlewareTokens(t)
	pair, err := tokens.Issue("1001")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid access token", "Bearer " + pair.Access, http.StatusOK, "1001"},
		{"lowercase scheme", "bearer " + pair.Access, http.StatusOK, "1001"},
		{"refresh token", "Bearer " + pair.Refresh, http.StatusUnauthorized, ""},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + pair.Access, http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
	}

	h := RequireAuth(tokens)(http.HandlerFunc(echoAccount))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rr.Body.String())
				return
			}
			assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			assert.JSONEq(t, unauthorizedBody, rr.Body.String())
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tokens := newMiddlewareTokens(t)
	pair, err := tokens.Issue("1001")
	require.NoError(t, err)

	h := OptionalAuth(tokens)(http.HandlerFunc(echoAccount))

	for header, want := range map[string]string{
		"Bearer " + pair.Access: "1001",
		"Bearer expired-or-bad": "anonymous",
		"":                      "anonymous",
	} {
		req := httptest.NewRequest(http.MethodPost, "/reviews/1/comments", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, want, rr.Body.String())
	}
}
