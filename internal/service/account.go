package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

const MaxNicknameLength = 50

// ProfilePatch is what an account may change about itself. Email, activity
// and the review-derived fields are not editable here.
type ProfilePatch struct {
	Nickname     *string
	ProfileImage *string
}

// AccountService is the /users/me self-service surface.
type AccountService struct {
	accounts repository.AccountRepository
	courses  repository.CourseRepository
	regions  repository.RegionRepository
	logger   *slog.Logger
}

func NewAccountService(
	accounts repository.AccountRepository,
	courses repository.CourseRepository,
	regions repository.RegionRepository,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{accounts: accounts, courses: courses, regions: regions, logger: logger}
}

func (s *AccountService) Me(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accounts.GetAccountByID(ctx, accountID)
}

// Update applies the allow-listed profile fields. An empty patch returns the
// account unchanged.
func (s *AccountService) Update(ctx context.Context, accountID string, patch ProfilePatch) (*model.Account, error) {
	var changes model.AccountChanges
	if patch.Nickname != nil {
		nickname := strings.TrimSpace(*patch.Nickname)
		if nickname == "" {
			return nil, apperror.ValidationFailed("nickname", "nickname cannot be empty")
		}
		if utf8.RuneCountInString(nickname) > MaxNicknameLength {
			return nil, apperror.ValidationFailed("nickname",
				fmt.Sprintf("nickname must be %d characters or less", MaxNicknameLength))
		}
		changes.Nickname = &nickname
	}
	if patch.ProfileImage != nil {
		image := strings.TrimSpace(*patch.ProfileImage)
		changes.ProfileImageURL = &image
	}

	if err := s.accounts.UpdateAccount(ctx, accountID, changes); err != nil {
		return nil, err
	}
	if !changes.Empty() {
		s.logger.Info("profile updated", slog.String("accountID", accountID))
	}
	return s.accounts.GetAccountByID(ctx, accountID)
}

// Delete removes the account and everything it owns.
func (s *AccountService) Delete(ctx context.Context, accountID string) error {
	if err := s.accounts.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.String("accountID", accountID))
	return nil
}

// Favorites lists favorite courses, most recently favorited first. A
// non-positive limit returns all of them.
func (s *AccountService) Favorites(ctx context.Context, accountID string, limit int) ([]model.FavoriteCourse, error) {
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	favorites, err := s.courses.ListFavorites(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return favorites, nil
}

func (s *AccountService) VisitedRegions(ctx context.Context, accountID string) ([]model.VisitedRegion, error) {
	return s.regions.ListVisitedRegions(ctx, accountID)
}

func (s *AccountService) RecordVisit(ctx context.Context, accountID, regionCode string) error {
	regionCode = strings.TrimSpace(regionCode)
	if regionCode == "" {
		return apperror.ValidationFailed("regionCode", "region code is required")
	}
	return s.regions.RecordVisit(ctx, accountID, regionCode)
}
