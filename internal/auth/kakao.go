package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/kakao"

	"github.com/yeogida/yeogida-backend/internal/apperror"
)

const (
	defaultProfileURL     = "https://kapi.kakao.com/v2/user/me"
	defaultTokenTimeout   = 10 * time.Second
	defaultProfileTimeout = 5 * time.Second

	// maxErrorBody bounds how much of an unstructured provider error body is
	// echoed back to the client.
	maxErrorBody = 500
)

// ExternalProfile is the normalized identity Kakao vouches for. Email,
// Nickname and ProfileImageURL are empty unless the user consented to share
// them.
type ExternalProfile struct {
	ID              string
	Email           string
	Nickname        string
	ProfileImageURL string
}

// KakaoConfig holds the app credentials registered with Kakao Developers.
// The URL and timeout fields exist so tests can point the provider at an
// httptest server; zero values mean the real Kakao endpoints and the default
// timeouts.
type KakaoConfig struct {
	ClientID     string // the app's REST API key
	ClientSecret string // optional; only sent when set
	RedirectURL  string

	AuthURL    string
	TokenURL   string
	ProfileURL string

	TokenTimeout   time.Duration
	ProfileTimeout time.Duration

	HTTPClient *http.Client
}

// KakaoProvider runs the server side of the Kakao Authorization Code flow:
//  1. the browser is sent to AuthURL and comes back with a one-time code
//  2. Exchange posts the code to the token endpoint (server-to-server)
//  3. the Kakao access token is used once, to read /v2/user/me
//
// The Kakao access token is discarded afterwards; sessions use our own JWTs.
type KakaoProvider struct {
	config         *oauth2.Config
	profileURL     string
	tokenTimeout   time.Duration
	profileTimeout time.Duration
	client         *http.Client
}

func NewKakaoProvider(cfg KakaoConfig) *KakaoProvider {
	endpoint := kakao.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// Kakao wants client_id (and client_secret) in the form body, not in a
	// Basic auth header.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	p := &KakaoProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
		},
		profileURL:     cfg.ProfileURL,
		tokenTimeout:   cfg.TokenTimeout,
		profileTimeout: cfg.ProfileTimeout,
		client:         cfg.HTTPClient,
	}
	if p.profileURL == "" {
		p.profileURL = defaultProfileURL
	}
	if p.tokenTimeout <= 0 {
		p.tokenTimeout = defaultTokenTimeout
	}
	if p.profileTimeout <= 0 {
		p.profileTimeout = defaultProfileTimeout
	}
	if p.client == nil {
		p.client = http.DefaultClient
	}
	return p
}

// AuthURL returns the Kakao authorize URL the browser is redirected to.
//
// STATE PARAMETER:
// state is a random value also stored in a cookie; the callback compares the
// two so a third party cannot complete a login flow in the user's browser.
func (p *KakaoProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for the user's Kakao profile.
//
// Both provider calls run on a context detached from the caller's
// cancellation and bounded by their own timeouts, so a client hanging up
// mid-login does not leave the code half-consumed. Every failure comes back
// as an *apperror.AppError; raw transport errors stay in the logs.
func (p *KakaoProvider) Exchange(ctx context.Context, code string) (*ExternalProfile, error) {
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, p.client)

	token, err := p.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.fetchProfile(ctx, token)
}

func (p *KakaoProvider) exchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, p.tokenTimeout)
	defer cancel()

	token, err := p.config.Exchange(ctx, code)
	if err == nil {
		return token, nil
	}

	var retrieveErr *oauth2.RetrieveError
	switch {
	case isTimeout(err):
		return nil, fmt.Errorf("auth: kakao token request: %w",
			apperror.ProviderTimeout("the Kakao token endpoint did not respond in time"))
	case errors.As(err, &retrieveErr):
		return nil, fmt.Errorf("auth: kakao token request: %w",
			apperror.ProviderRejected(rejectionMessage(retrieveErr)))
	case isTransport(err):
		return nil, fmt.Errorf("auth: kakao token request: %v: %w", err,
			apperror.ProviderRejected("could not reach the Kakao token endpoint"))
	default:
		// 2xx with a body oauth2 could not use: unparseable or no access_token.
		return nil, fmt.Errorf("auth: kakao token response: %v: %w", err,
			apperror.ProviderResponseInvalid("Kakao returned an unusable token response"))
	}
}

// rejectionMessage prefers Kakao's structured error fields and falls back to
// the raw body.
func rejectionMessage(e *oauth2.RetrieveError) string {
	if e.ErrorCode != "" {
		msg := "Kakao rejected the authorization code: " + e.ErrorCode
		if e.ErrorDescription != "" {
			msg += " - " + e.ErrorDescription
		}
		return msg
	}
	status := 0
	if e.Response != nil {
		status = e.Response.StatusCode
	}
	return fmt.Sprintf("Kakao rejected the authorization code (status %d): %s", status, truncate(string(e.Body), maxErrorBody))
}

// kakaoUser is the part of /v2/user/me we read. The *_needs_agreement flags
// are pointers because a missing flag must be treated as "not agreed".
type kakaoUser struct {
	ID      json.Number `json:"id"`
	Account struct {
		HasEmail                      bool   `json:"has_email"`
		EmailNeedsAgreement           *bool  `json:"email_needs_agreement"`
		Email                         string `json:"email"`
		ProfileNicknameNeedsAgreement *bool  `json:"profile_nickname_needs_agreement"`
		ProfileImageNeedsAgreement    *bool  `json:"profile_image_needs_agreement"`
		Profile                       struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

func (p *KakaoProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*ExternalProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.profileTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building kakao profile request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("auth: kakao profile request: %w",
				apperror.ProviderTimeout("the Kakao profile endpoint did not respond in time"))
		}
		return nil, fmt.Errorf("auth: kakao profile request: %v: %w", err,
			apperror.ProfileFetchFailed("could not reach the Kakao profile endpoint"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("auth: kakao profile request: %w",
			apperror.ProfileFetchFailed(fmt.Sprintf("Kakao profile request failed (status %d): %s", resp.StatusCode, body)))
	}

	var u kakaoUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("auth: reading kakao profile: %w",
				apperror.ProviderTimeout("the Kakao profile endpoint did not respond in time"))
		}
		return nil, fmt.Errorf("auth: decoding kakao profile: %v: %w", err,
			apperror.ProfileFetchFailed("Kakao returned an unreadable profile"))
	}

	return normalize(u)
}

// normalize applies the consent rules: a field is used only when Kakao says
// the user agreed to share it.
func normalize(u kakaoUser) (*ExternalProfile, error) {
	id, err := u.ID.Int64()
	if err != nil || id <= 0 {
		return nil, apperror.ProfileIncomplete("the Kakao profile has no user id")
	}

	p := &ExternalProfile{ID: u.ID.String()}
	a := u.Account
	if a.HasEmail && agreed(a.EmailNeedsAgreement) {
		p.Email = a.Email
	}
	if agreed(a.ProfileNicknameNeedsAgreement) {
		p.Nickname = a.Profile.Nickname
	}
	if agreed(a.ProfileImageNeedsAgreement) {
		p.ProfileImageURL = a.Profile.ProfileImageURL
	}
	return p, nil
}

// agreed reports whether a needs_agreement flag is present and false.
func agreed(needsAgreement *bool) bool {
	return needsAgreement != nil && !*needsAgreement
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTransport(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
