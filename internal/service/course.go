package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var courseSortKeys = sortKeys{
	"id":     repository.ColumnID,
	"rating": repository.ColumnRating,
	"name":   repository.ColumnName,
}

type CourseQuery struct {
	Location string
	Keyword  string // matched against the course name
	SortBy   string
	Order    string
	Page
}

// CourseService serves the curated course catalogue and per-account
// favorites. Only staff may add courses.
type CourseService struct {
	repo     repository.CourseRepository
	accounts repository.AccountRepository
	logger   *slog.Logger
}

func NewCourseService(repo repository.CourseRepository, accounts repository.AccountRepository, logger *slog.Logger) *CourseService {
	return &CourseService{repo: repo, accounts: accounts, logger: logger}
}

func (s *CourseService) List(ctx context.Context, q CourseQuery) ([]model.Course, error) {
	sort, err := parseFieldSort(q.SortBy, q.Order, "id", false, courseSortKeys)
	if err != nil {
		return nil, err
	}

	courses, err := s.repo.ListCourses(ctx, repository.CourseFilter{
		Location:    strings.TrimSpace(q.Location),
		Keyword:     strings.TrimSpace(q.Keyword),
		Sort:        sort,
		ListOptions: q.Page.options(DefaultListLimit),
	})
	if err != nil {
		s.logger.Error("failed to list courses", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return courses, nil
}

func (s *CourseService) Get(ctx context.Context, id int64) (*model.Course, error) {
	return s.repo.GetCourse(ctx, id)
}

func (s *CourseService) Create(ctx context.Context, callerID string, c model.Course) (*model.Course, error) {
	caller, err := s.accounts.GetAccountByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff {
		return nil, apperror.Forbidden("only staff can add courses")
	}

	c.ID = 0
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, apperror.ValidationFailed("name", "course name is required")
	}
	if c.Rating < 0 || c.Rating > 5 {
		return nil, apperror.ValidationFailed("rating", "rating must be between 0 and 5")
	}
	if c.EstimatedCost.Amount < 0 {
		return nil, apperror.ValidationFailed("estimatedCost", "estimated cost cannot be negative")
	}
	if c.EstimatedCost.Currency == "" {
		c.EstimatedCost.Currency = "KRW"
	}
	for i, site := range c.Sites {
		if strings.TrimSpace(site.Name) == "" {
			return nil, apperror.ValidationFailed("sites", fmt.Sprintf("site %d has no name", i+1))
		}
	}

	if err := s.repo.CreateCourse(ctx, &c); err != nil {
		return nil, fmt.Errorf("creating course: %w", err)
	}
	s.logger.Info("course created", slog.Int64("id", c.ID), slog.String("by", callerID))
	return s.repo.GetCourse(ctx, c.ID)
}

// Favorite and Unfavorite are idempotent. Both report NotFound for a course
// that does not exist.
func (s *CourseService) Favorite(ctx context.Context, accountID string, courseID int64) error {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	return s.repo.AddFavorite(ctx, accountID, courseID)
}

func (s *CourseService) Unfavorite(ctx context.Context, accountID string, courseID int64) error {
	if _, err := s.repo.GetCourse(ctx, courseID); err != nil {
		return err
	}
	return s.repo.RemoveFavorite(ctx, accountID, courseID)
}
