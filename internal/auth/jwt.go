// Package auth issues and verifies session tokens, talks to the Kakao OAuth
// endpoints, and hashes staff passwords.
//
// SESSION FLOW OVERVIEW:
//  1. The SPA sends the Kakao authorization code to POST /auth/kakao/login/process
//  2. KakaoProvider trades the code for a Kakao token, then for a profile
//  3. The account reconciler creates or updates the local account
//  4. TokenService issues an access/refresh pair for that account
//  5. API calls carry "Authorization: Bearer <access>"; RequireAuth validates
//     it and puts the account id in the request context
//  6. When the access token expires the client trades its refresh token at
//     POST /auth/token/refresh and receives a fresh pair
//
// Both tokens are HS256 JWTs. Validation never touches the database: the
// signature, issuer, expiry and token type are all the server checks.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yeogida/yeogida-backend/internal/apperror"
)

const (
	issuer = "yeogida"

	// DefaultAccessTTL and DefaultRefreshTTL apply when the config leaves the
	// lifetimes unset.
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// tokenType separates access tokens from refresh tokens. A refresh token is
// never accepted as an access credential and vice versa.
type tokenType string

const (
	typeAccess  tokenType = "access"
	typeRefresh tokenType = "refresh"
)

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenService signs and verifies session tokens with one HMAC secret.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService. Zero TTLs fall back to the defaults.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// claims is the JWT payload: the registered claims (sub = account id) plus
// the token type.
type claims struct {
	Type tokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Issue creates a fresh access/refresh pair for the account.
func (s *TokenService) Issue(accountID string) (TokenPair, error) {
	access, err := s.sign(accountID, typeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(accountID, typeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh verifies a refresh token and rotates both tokens. Every failure
// (bad signature, wrong issuer, expired, an access token passed by mistake)
// comes back as InvalidOrExpiredToken.
func (s *TokenService) Refresh(refreshToken string) (TokenPair, error) {
	accountID, err := s.verify(refreshToken, typeRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", apperror.InvalidOrExpiredToken(), err)
	}
	return s.Issue(accountID)
}

// ValidateAccess returns the account id carried by a valid access token.
func (s *TokenService) ValidateAccess(token string) (string, error) {
	return s.verify(token, typeAccess)
}

// sign builds and signs one token.
//
// Signing algorithm: HS256 (HMAC-SHA256), the same key signs and verifies.
func (s *TokenService) sign(accountID string, typ tokenType, ttl time.Duration) (string, error) {
	now := s.now()
	c := claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing %s token: %w", typ, err)
	}
	return signed, nil
}

// verify parses tokenStr and checks signature, algorithm, issuer, expiry and
// type. It returns the subject.
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, a token signed with "none" might be
// accepted. jwt.WithValidMethods prevents this.
func (s *TokenService) verify(tokenStr string, want tokenType) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Type != want {
		return "", fmt.Errorf("auth: expected %s token, got %q", want, c.Type)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
