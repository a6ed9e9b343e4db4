package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A package-private type means
// only this package can create the key, so no other package can read or
// shadow the account id by accident.
type contextKey string

const accountIDKey contextKey = "accountID"

// unauthorizedBody matches the error envelope the handlers write.
const unauthorizedBody = `{"error":"Unauthorized","detail":"valid authentication required"}`

// RequireAuth rejects requests without a valid access token with 401 and
// stores the account id in the request context otherwise.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it.
// Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := extractAccountID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="yeogida"`)
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(unauthorizedBody))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

// OptionalAuth records the caller when a valid token is present and lets
// anonymous requests through untouched. An invalid token is treated as no
// token.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if accountID, err := extractAccountID(r, tokens); err == nil {
				r = r.WithContext(WithAccountID(r.Context(), accountID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithAccountID returns a copy of ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountIDFromContext returns (id, true) for authenticated requests and
// ("", false) for anonymous ones.
//
// Usage in handlers:
//
//	accountID, ok := auth.AccountIDFromContext(r.Context())
//	if !ok {
//	    // anonymous
//	}
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// extractAccountID reads "Authorization: Bearer <token>" and validates the
// token as an access token.
func extractAccountID(r *http.Request, tokens *TokenService) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("auth: missing bearer token")
	}
	return tokens.ValidateAccess(strings.TrimSpace(token))
}
