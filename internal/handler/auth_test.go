package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/handler"
)

const frontendURL = "http://localhost:3000/login/success"

func newAuthHandler(e *testEnv) *handler.AuthHandler {
	return handler.NewAuthHandler(e.authService(), frontendURL, e.logger)
}

// =========================================================================
// BROWSER REDIRECTS
// =========================================================================

func TestAuthHandler_KakaoLoginRedirects(t *testing.T) {
	h := newAuthHandler(newTestEnv(t))

	rr := serve(h.HandleKakaoLogin, http.MethodGet, "/auth/login/kakao", "/auth/login/kakao", "", "")

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c
		}
	}
	require.NotNil(t, state, "oauth_state cookie not set")
	assert.True(t, state.HttpOnly)
	assert.NotEmpty(t, state.Value)

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", loc.Host)
	assert.Equal(t, state.Value, loc.Query().Get("state"))
}

func callback(h *handler.AuthHandler, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	h.HandleKakaoCallback(rr, req)
	return rr
}

func TestAuthHandler_KakaoCallback(t *testing.T) {
	h := newAuthHandler(newTestEnv(t))
	cookie := &http.Cookie{Name: "oauth_state", Value: "s1"}

	t.Run("matching state forwards the code", func(t *testing.T) {
		rr := callback(h, "/auth/kakao/callback?code=abc&state=s1", cookie)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, frontendURL+"?code=abc", rr.Header().Get("Location"))
	})

	t.Run("state mismatch", func(t *testing.T) {
		rr := callback(h, "/auth/kakao/callback?code=abc&state=other", cookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("no cookie skips the state check", func(t *testing.T) {
		rr := callback(h, "/auth/kakao/callback?code=abc", nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, frontendURL+"?code=abc", rr.Header().Get("Location"))
	})

	t.Run("consent denied", func(t *testing.T) {
		rr := callback(h, "/auth/kakao/callback?error=access_denied", nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, frontendURL+"?error=access_denied", rr.Header().Get("Location"))
	})

	t.Run("missing code", func(t *testing.T) {
		rr := callback(h, "/auth/kakao/callback", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

// =========================================================================
// TOKEN ENDPOINTS
// =========================================================================

func TestAuthHandler_LoginProcess(t *testing.T) {
	e := newTestEnv(t)
	h := newAuthHandler(e)

	rr := serve(h.HandleLoginProcess, http.MethodPost, "/auth/kakao/login/process",
		"/auth/kakao/login/process", `{"code":"abc"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	pair := decode[auth.TokenPair](t, rr)
	id, err := e.tokens.ValidateAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "4242", id)

	account, err := e.db.GetAccountByID(context.Background(), "4242")
	require.NoError(t, err)
	assert.Equal(t, "traveler", account.Nickname)
}

func TestAuthHandler_LoginProcessFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		provErr  error
		status   int
		wantCode string
	}{
		{"provider timeout", `{"code":"abc"}`, apperror.ProviderTimeout("timed out"), http.StatusRequestTimeout, "ProviderTimeout"},
		{"provider rejected", `{"code":"abc"}`, apperror.ProviderRejected("KOE320"), http.StatusBadRequest, "ProviderRejected"},
		{"empty code", `{"code":""}`, nil, http.StatusBadRequest, "ValidationError"},
		{"malformed body", `{"code":`, nil, http.StatusBadRequest, "ValidationError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.provider.err = tt.provErr
			h := newAuthHandler(e)

			rr := serve(h.HandleLoginProcess, http.MethodPost, "/auth/kakao/login/process",
				"/auth/kakao/login/process", tt.body, "")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, rr))
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newTestEnv(t)
	h := newAuthHandler(e)
	pair, err := e.tokens.Issue("4242")
	require.NoError(t, err)

	rr := serve(h.HandleRefresh, http.MethodPost, "/auth/token/refresh", "/auth/token/refresh",
		`{"refresh":"`+pair.Refresh+`"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[auth.TokenPair](t, rr).Access)

	// An access token is not a refresh token.
	rr = serve(h.HandleRefresh, http.MethodPost, "/auth/token/refresh", "/auth/token/refresh",
		`{"refresh":"`+pair.Access+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "InvalidOrExpiredToken", errorCode(t, rr))
}

func TestAuthHandler_PasswordLogin(t *testing.T) {
	e := newTestEnv(t)
	h := newAuthHandler(e)
	_, err := e.authService().CreateSuperuser(context.Background(), "admin", "admin", "admin@example.com", "correct horse")
	require.NoError(t, err)

	rr := serve(h.HandlePasswordLogin, http.MethodPost, "/auth/token", "/auth/token",
		`{"email":"admin@example.com","password":"correct horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	id, err := e.tokens.ValidateAccess(decode[auth.TokenPair](t, rr).Access)
	require.NoError(t, err)
	assert.Equal(t, "admin", id)

	rr = serve(h.HandlePasswordLogin, http.MethodPost, "/auth/token", "/auth/token",
		`{"email":"admin@example.com","password":"wrong password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
