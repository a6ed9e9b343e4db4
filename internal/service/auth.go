// Package service holds the business rules. It sits between the HTTP
// handlers and the storage interfaces:
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces ownership, orchestrates
//	Repository      → reads/writes the database
//
// Services take repository interfaces, never *sqlite.DB, so the reconciler
// tests run against an in-memory fake. The authenticated account id always arrives as an
// explicit parameter; nothing here reads request state.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

// ProfileExchanger is the OAuth side of login. *auth.KakaoProvider
// implements it; tests use a stub.
type ProfileExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.ExternalProfile, error)
}

// AuthService turns provider logins and staff passwords into session tokens.
type AuthService struct {
	accounts  repository.AccountRepository
	provider  ProfileExchanger
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	provider ProfileExchanger,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		provider:  provider,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// LoginResult bundles the resolved account and its fresh token pair.
type LoginResult struct {
	Account *model.Account
	Tokens  auth.TokenPair
}

// AuthURL is where the browser goes to start a Kakao login.
func (s *AuthService) AuthURL(state string) string {
	return s.provider.AuthURL(state)
}

// Login runs the whole Kakao flow for one authorization code: exchange,
// reconcile, issue.
func (s *AuthService) Login(ctx context.Context, code string) (*LoginResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperror.ValidationFailed("code", "authorization code is required")
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("kakao exchange failed",
			slog.String("code", string(apperror.CodeOf(err))),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	account, err := s.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing tokens for %s: %w", account.ID, err)
	}

	s.logger.Info("account logged in via kakao", slog.String("accountID", account.ID))
	return &LoginResult{Account: account, Tokens: tokens}, nil
}

// Reconcile maps an external profile onto exactly one local account.
//
//  1. Known id: merge the non-empty provider fields that differ, reactivate
//     an inactive account, and write only when something changed.
//  2. Unknown id: reject an email that belongs to another account, reject a
//     missing nickname, otherwise create the account in one INSERT.
//  3. Whatever the path, an account that ends up inactive is refused.
//
// Two logins racing for the same new id are serialised by the primary key:
// the loser's INSERT fails with a conflict and it falls back to the update
// path once.
func (s *AuthService) Reconcile(ctx context.Context, p *auth.ExternalProfile) (*model.Account, error) {
	if p == nil || p.ID == "" {
		return nil, apperror.ProfileIncomplete("the provider profile has no user id")
	}

	account, err := s.accounts.GetAccountByID(ctx, p.ID)
	switch {
	case err == nil:
		account, err = s.updateFromProfile(ctx, account, p)
	case errors.Is(err, apperror.ErrNotFound):
		account, err = s.createFromProfile(ctx, p)
	default:
		return nil, fmt.Errorf("service/auth: looking up account %s: %w", p.ID, err)
	}
	if err != nil {
		return nil, err
	}

	if !account.IsActive {
		return nil, apperror.AccountDisabled(account.ID)
	}
	return account, nil
}

func (s *AuthService) updateFromProfile(ctx context.Context, account *model.Account, p *auth.ExternalProfile) (*model.Account, error) {
	changes := mergeProfile(*account, p)
	if changes.Empty() {
		return account, nil
	}

	if err := s.accounts.UpdateAccount(ctx, account.ID, changes); err != nil {
		if errors.Is(err, apperror.ErrConflict) && changes.Email != nil {
			return nil, apperror.DuplicateEmail(*changes.Email)
		}
		return nil, fmt.Errorf("service/auth: updating account %s: %w", account.ID, err)
	}

	// Read back what storage kept; the active check runs on the stored row.
	updated, err := s.accounts.GetAccountByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: reloading account %s: %w", account.ID, err)
	}
	s.logger.Info("account updated from provider profile", slog.String("accountID", account.ID))
	return updated, nil
}

func (s *AuthService) createFromProfile(ctx context.Context, p *auth.ExternalProfile) (*model.Account, error) {
	if p.Email != "" {
		_, err := s.accounts.GetAccountByEmail(ctx, p.Email)
		switch {
		case err == nil:
			return nil, apperror.DuplicateEmail(p.Email)
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("service/auth: checking email: %w", err)
		}
	}
	if strings.TrimSpace(p.Nickname) == "" {
		return nil, apperror.NicknameRequired()
	}

	account := &model.Account{
		ID:              p.ID,
		Nickname:        p.Nickname,
		Email:           p.Email,
		ProfileImageURL: p.ProfileImageURL,
		IsActive:        true,
	}
	err := s.accounts.CreateAccount(ctx, account)
	if err == nil {
		s.logger.Info("account created from provider profile", slog.String("accountID", account.ID))
		return account, nil
	}
	if !errors.Is(err, apperror.ErrConflict) {
		return nil, fmt.Errorf("service/auth: creating account %s: %w", p.ID, err)
	}

	// Lost a race, or the email was claimed in between.
	existing, getErr := s.accounts.GetAccountByID(ctx, p.ID)
	if getErr != nil {
		if errors.Is(getErr, apperror.ErrNotFound) && p.Email != "" {
			return nil, apperror.DuplicateEmail(p.Email)
		}
		return nil, fmt.Errorf("service/auth: creating account %s: %w", p.ID, err)
	}
	s.logger.Info("concurrent account creation, updating instead", slog.String("accountID", p.ID))
	return s.updateFromProfile(ctx, existing, p)
}

// mergeProfile lists the provider fields that should overwrite the stored
// account: only non-empty values that differ. A field the user did not
// consent to share arrives empty and therefore never blanks a stored value.
func mergeProfile(a model.Account, p *auth.ExternalProfile) model.AccountChanges {
	var c model.AccountChanges
	if p.Email != "" && p.Email != a.Email {
		c.Email = &p.Email
	}
	if p.Nickname != "" && p.Nickname != a.Nickname {
		c.Nickname = &p.Nickname
	}
	if p.ProfileImageURL != "" && p.ProfileImageURL != a.ProfileImageURL {
		c.ProfileImageURL = &p.ProfileImageURL
	}
	if !a.IsActive {
		active := true
		c.IsActive = &active
	}
	return c
}

// Refresh rotates a token pair. No database access.
func (s *AuthService) Refresh(refreshToken string) (auth.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return auth.TokenPair{}, apperror.ValidationFailed("refresh", "refresh token is required")
	}
	return s.tokens.Refresh(refreshToken)
}

// PasswordLogin authenticates a staff account by email and password. Kakao
// accounts have no password and always fail here.
func (s *AuthService) PasswordLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	account, err := s.accounts.GetAccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		return nil, invalid
	}
	if !account.IsStaff {
		return nil, invalid
	}
	if !account.IsActive {
		return nil, apperror.AccountDisabled(account.ID)
	}

	tokens, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing tokens for %s: %w", account.ID, err)
	}
	s.logger.Info("staff logged in with password", slog.String("accountID", account.ID))
	return &LoginResult{Account: account, Tokens: tokens}, nil
}

// CreateSuperuser creates a staff account that logs in with a password.
func (s *AuthService) CreateSuperuser(ctx context.Context, id, nickname, email, password string) (*model.Account, error) {
	id, nickname, email = strings.TrimSpace(id), strings.TrimSpace(nickname), strings.TrimSpace(email)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "account id is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required for password login")
	}
	if nickname == "" {
		nickname = "admin"
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	account := &model.Account{
		ID:           id,
		Nickname:     nickname,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.Conflict("account", id)
		}
		return nil, fmt.Errorf("service/auth: creating superuser: %w", err)
	}

	s.logger.Info("superuser created", slog.String("accountID", id))
	return account, nil
}

// SetPassword replaces the password of an existing account.
func (s *AuthService) SetPassword(ctx context.Context, id, password string) error {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return apperror.ValidationFailed("password", err.Error())
	}
	if err := s.accounts.SetPasswordHash(ctx, id, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", slog.String("accountID", id))
	return nil
}
