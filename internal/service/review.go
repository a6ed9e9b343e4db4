package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var reviewSortKeys = sortKeys{
	"created_at": repository.ColumnCreatedAt,
	"likes":      repository.ColumnLikes,
	"views":      repository.ColumnViews,
}

// ReviewQuery is a review listing request. SearchType picks what Keyword is
// matched against: "title" or "author" (the author's nickname).
type ReviewQuery struct {
	SearchType string
	Keyword    string
	Region     string
	SortBy     string
	Order      string
	Page
}

type ReviewInput struct {
	Title   string
	Content string
	Region  string
	Place   string
}

type ReviewPatch struct {
	Title   *string
	Content *string
	Region  *string
	Place   *string
}

// ReviewService handles reviews, their likes and comments.
//
// When devMode is on, comments posted without a token are attributed to the
// earliest account so the frontend can be exercised before login works.
type ReviewService struct {
	repo     repository.ReviewRepository
	accounts repository.AccountRepository
	devMode  bool
	logger   *slog.Logger
}

func NewReviewService(repo repository.ReviewRepository, accounts repository.AccountRepository, devMode bool, logger *slog.Logger) *ReviewService {
	return &ReviewService{repo: repo, accounts: accounts, devMode: devMode, logger: logger}
}

func (s *ReviewService) List(ctx context.Context, q ReviewQuery) ([]model.Review, error) {
	sort, err := parseFieldSort(q.SortBy, q.Order, "created_at", true, reviewSortKeys)
	if err != nil {
		return nil, err
	}

	filter := repository.ReviewFilter{
		Region:      strings.TrimSpace(q.Region),
		Sort:        sort,
		ListOptions: q.Page.options(DefaultListLimit),
	}
	if keyword := strings.TrimSpace(q.Keyword); keyword != "" {
		switch q.SearchType {
		case "title", "":
			filter.Title = keyword
		case "author":
			filter.Author = keyword
		default:
			return nil, apperror.ValidationFailed("searchType", "searchType must be title or author")
		}
	}

	reviews, err := s.repo.ListReviews(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list reviews", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return reviews, nil
}

// View returns the review and counts the read.
func (s *ReviewService) View(ctx context.Context, id int64) (*model.Review, error) {
	return s.repo.ViewReview(ctx, id)
}

func (s *ReviewService) Create(ctx context.Context, authorID string, in ReviewInput) (*model.Review, error) {
	r := &model.Review{
		AuthorID: authorID,
		Title:    strings.TrimSpace(in.Title),
		Content:  strings.TrimSpace(in.Content),
		Region:   strings.TrimSpace(in.Region),
		Place:    strings.TrimSpace(in.Place),
	}
	if err := validateReview(r); err != nil {
		return nil, err
	}

	if err := s.repo.CreateReview(ctx, r); err != nil {
		s.logger.Error("failed to create review",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating review: %w", err)
	}
	s.logger.Info("review created", slog.Int64("id", r.ID), slog.String("authorID", authorID))
	return s.repo.GetReview(ctx, r.ID)
}

func (s *ReviewService) Update(ctx context.Context, id int64, callerID string, patch ReviewPatch) (*model.Review, error) {
	r, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.AuthorID != callerID {
		return nil, apperror.Forbidden("only the author can edit this review")
	}

	if patch.Title != nil {
		r.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		r.Content = strings.TrimSpace(*patch.Content)
	}
	if patch.Region != nil {
		r.Region = strings.TrimSpace(*patch.Region)
	}
	if patch.Place != nil {
		r.Place = strings.TrimSpace(*patch.Place)
	}
	if err := validateReview(r); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateReview(ctx, r); err != nil {
		return nil, fmt.Errorf("updating review %d: %w", id, err)
	}
	s.logger.Info("review updated", slog.Int64("id", id))
	return s.repo.GetReview(ctx, id)
}

func (s *ReviewService) Delete(ctx context.Context, id int64, callerID string) error {
	r, err := s.repo.GetReview(ctx, id)
	if err != nil {
		return err
	}
	if r.AuthorID != callerID {
		return apperror.Forbidden("only the author can delete this review")
	}
	if err := s.repo.DeleteReview(ctx, id); err != nil {
		return err
	}
	s.logger.Info("review deleted", slog.Int64("id", id))
	return nil
}

func (s *ReviewService) Like(ctx context.Context, id int64) (int, error) {
	return s.repo.AdjustReviewLikes(ctx, id, 1)
}

func (s *ReviewService) Unlike(ctx context.Context, id int64) (int, error) {
	return s.repo.AdjustReviewLikes(ctx, id, -1)
}

func (s *ReviewService) ListComments(ctx context.Context, reviewID int64) ([]model.ReviewComment, error) {
	if _, err := s.repo.GetReview(ctx, reviewID); err != nil {
		return nil, err
	}
	return s.repo.ListReviewComments(ctx, reviewID)
}

// AddComment posts a comment. callerID is empty for anonymous requests.
func (s *ReviewService) AddComment(ctx context.Context, reviewID int64, callerID, content string) (*model.ReviewComment, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetReview(ctx, reviewID); err != nil {
		return nil, err
	}

	authorID, err := s.commentAuthor(ctx, callerID)
	if err != nil {
		return nil, err
	}

	c := &model.ReviewComment{ReviewID: reviewID, AuthorID: authorID, Content: content}
	if err := s.repo.CreateReviewComment(ctx, c); err != nil {
		return nil, fmt.Errorf("commenting on review %d: %w", reviewID, err)
	}
	if author, err := s.accounts.GetAccountByID(ctx, authorID); err == nil {
		c.Author = author.Nickname
	}
	return c, nil
}

func (s *ReviewService) commentAuthor(ctx context.Context, callerID string) (string, error) {
	if callerID != "" {
		return callerID, nil
	}
	if !s.devMode {
		return "", apperror.Unauthorized("log in to comment")
	}
	first, err := s.accounts.FirstAccount(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("no account exists to attribute an anonymous comment to")
		}
		return "", fmt.Errorf("finding dev-mode comment author: %w", err)
	}
	s.logger.Debug("anonymous comment attributed to first account", slog.String("accountID", first.ID))
	return first.ID, nil
}

func validateReview(r *model.Review) error {
	switch {
	case r.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case utf8.RuneCountInString(r.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case r.Content == "":
		return apperror.ValidationFailed("content", "content is required")
	}
	return nil
}
