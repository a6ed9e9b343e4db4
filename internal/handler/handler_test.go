package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/handler"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository/sqlite"
	"github.com/yeogida/yeogida-backend/internal/service"
)

// stubProvider stands in for Kakao: every code yields the same profile.
type stubProvider struct {
	profile *auth.ExternalProfile
	err     error
}

func (s *stubProvider) AuthURL(state string) string {
	return "https://kauth.kakao.com/oauth/authorize?client_id=test&state=" + state
}

func (s *stubProvider) Exchange(ctx context.Context, code string) (*auth.ExternalProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := *s.profile
	return &p, nil
}

// testEnv is the real service stack on an in-memory database.
type testEnv struct {
	db       *sqlite.DB
	tokens   *auth.TokenService
	provider *stubProvider
	logger   *slog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", 0, 0)
	require.NoError(t, err)

	return &testEnv{
		db:     db,
		tokens: tokens,
		provider: &stubProvider{profile: &auth.ExternalProfile{
			ID: "4242", Nickname: "traveler", Email: "traveler@example.com",
		}},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (e *testEnv) authService() *service.AuthService {
	return service.NewAuthService(e.db, e.provider, e.tokens, auth.NewPasswordServiceForTest(4), e.logger)
}

func (e *testEnv) seedAccount(t *testing.T, id, nickname string, staff bool) {
	t.Helper()
	require.NoError(t, e.db.CreateAccount(context.Background(), &model.Account{
		ID: id, Nickname: nickname, IsActive: true, IsStaff: staff,
	}))
}

// serve routes one request through a chi router holding a single route, so
// URL parameters resolve the way they do in production. A non-empty
// accountID marks the request as authenticated.
func serve(h http.HandlerFunc, method, pattern, target, body, accountID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if accountID != "" {
		req = req.WithContext(auth.WithAccountID(req.Context(), accountID))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rr).Error
}
