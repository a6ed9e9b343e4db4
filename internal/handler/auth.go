package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/yeogida/yeogida-backend/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler manages the Kakao login flow and token endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleKakaoLogin    → redirect the browser to Kakao's authorize page
//   - HandleKakaoCallback → bounce the authorization code to the frontend
//   - HandleLoginProcess  → exchange the code, reconcile, issue tokens
//   - HandleRefresh       → rotate a token pair
//   - HandlePasswordLogin → staff email/password login
//
// The frontend owns the callback page: Kakao redirects here, we redirect to
// FRONTEND_LOGIN_SUCCESS_URI with the code, and the SPA POSTs the code back
// to /auth/kakao/login/process to receive its tokens.
type AuthHandler struct {
	auth        *service.AuthService
	frontendURL string
	logger      *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, frontendURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:        authService,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// HandleKakaoLogin redirects the user to Kakao's authorization page.
//
// HTTP: GET /auth/login/kakao
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorize URL; the callback compares the two.
func (h *AuthHandler) HandleKakaoLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleKakaoCallback receives Kakao's redirect and forwards the code to the
// frontend.
//
// HTTP: GET /auth/kakao/callback?code=xxx&state=yyy
//
// The state is checked only when our cookie is present: logins started by the
// frontend talking to Kakao directly never passed through HandleKakaoLogin.
func (h *AuthHandler) HandleKakaoCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if cookie, err := r.Cookie(stateCookie); err == nil && cookie.Value != "" {
		if query.Get("state") != cookie.Value {
			h.logger.Warn("auth callback: state mismatch",
				slog.String("expected", cookie.Value),
				slog.String("got", query.Get("state")),
			)
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:  "ValidationError",
				Detail: "invalid OAuth state",
			})
			return
		}
		// Single use.
		http.SetCookie(w, &http.Cookie{
			Name:   stateCookie,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}

	// The user denied consent.
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendRedirect(url.Values{"error": {errParam}}), http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "ValidationError",
			Detail: "missing OAuth code",
		})
		return
	}

	http.Redirect(w, r, h.frontendRedirect(url.Values{"code": {code}}), http.StatusSeeOther)
}

func (h *AuthHandler) frontendRedirect(params url.Values) string {
	u, err := url.Parse(h.frontendURL)
	if err != nil {
		return h.frontendURL + "?" + params.Encode()
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type loginProcessRequest struct {
	Code string `json:"code"`
}

// HandleLoginProcess completes a Kakao login.
//
// HTTP: POST /auth/kakao/login/process
// REQUEST BODY: {"code": "..."}
// RESPONSE: {"access": "...", "refresh": "..."}
func (h *AuthHandler) HandleLoginProcess(w http.ResponseWriter, r *http.Request) {
	var req loginProcessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Tokens)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// HandleRefresh rotates a token pair.
//
// HTTP: POST /auth/token/refresh
// REQUEST BODY: {"refresh": "..."}
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.auth.Refresh(req.Refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type passwordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandlePasswordLogin logs a staff account in with email and password.
//
// HTTP: POST /auth/token
func (h *AuthHandler) HandlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	var req passwordLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.PasswordLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.Tokens)
}
