package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

const (
	MaxTitleLength   = 200
	MaxCommentLength = 2000
)

var carpoolSortKeys = sortKeys{
	"departure_time": repository.ColumnDepartureTime,
	"created_at":     repository.ColumnCreatedAt,
}

// CarpoolQuery is a carpool listing request as the client sent it.
type CarpoolQuery struct {
	Departure   string
	Destination string
	Sort        string // "departure_time", "-departure_time", "created_at", "-created_at"
	Page
}

// CarpoolInput is the body of a carpool create. DepartureTime is RFC 3339.
type CarpoolInput struct {
	Title          string
	Description    string
	Departure      string
	Destination    string
	DepartureTime  string
	SeatsAvailable int
}

// CarpoolPatch is a partial update; nil fields stay as they are.
type CarpoolPatch struct {
	Title          *string
	Description    *string
	Departure      *string
	Destination    *string
	DepartureTime  *string
	SeatsAvailable *int
}

type CarpoolService struct {
	repo   repository.CarpoolRepository
	logger *slog.Logger
}

func NewCarpoolService(repo repository.CarpoolRepository, logger *slog.Logger) *CarpoolService {
	return &CarpoolService{repo: repo, logger: logger}
}

func (s *CarpoolService) List(ctx context.Context, q CarpoolQuery) ([]model.Carpool, error) {
	sort, err := parseSignedSort(q.Sort, "departure_time", carpoolSortKeys)
	if err != nil {
		return nil, err
	}

	carpools, err := s.repo.ListCarpools(ctx, repository.CarpoolFilter{
		Departure:   strings.TrimSpace(q.Departure),
		Destination: strings.TrimSpace(q.Destination),
		Sort:        sort,
		ListOptions: q.Page.options(DefaultListLimit),
	})
	if err != nil {
		s.logger.Error("failed to list carpools", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing carpools: %w", err)
	}
	return carpools, nil
}

// Get returns the carpool with its comments, newest first.
func (s *CarpoolService) Get(ctx context.Context, id int64) (*model.Carpool, error) {
	c, err := s.repo.GetCarpool(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.repo.ListCarpoolComments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading comments of carpool %d: %w", id, err)
	}
	c.Comments = comments
	return c, nil
}

func (s *CarpoolService) Create(ctx context.Context, driverID string, in CarpoolInput) (*model.Carpool, error) {
	c := &model.Carpool{
		DriverID:       driverID,
		Title:          strings.TrimSpace(in.Title),
		Description:    strings.TrimSpace(in.Description),
		Departure:      strings.TrimSpace(in.Departure),
		Destination:    strings.TrimSpace(in.Destination),
		SeatsAvailable: in.SeatsAvailable,
	}
	at, err := parseDepartureTime(in.DepartureTime)
	if err != nil {
		return nil, err
	}
	c.DepartureTime = at
	if err := validateCarpool(c); err != nil {
		return nil, err
	}

	if err := s.repo.CreateCarpool(ctx, c); err != nil {
		s.logger.Error("failed to create carpool",
			slog.String("driverID", driverID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating carpool: %w", err)
	}

	s.logger.Info("carpool created",
		slog.Int64("id", c.ID),
		slog.String("driverID", driverID),
	)
	return s.repo.GetCarpool(ctx, c.ID)
}

// Update applies the patch field by field. Only the driver may edit.
func (s *CarpoolService) Update(ctx context.Context, id int64, callerID string, patch CarpoolPatch) (*model.Carpool, error) {
	c, err := s.repo.GetCarpool(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.DriverID != callerID {
		return nil, apperror.Forbidden("only the driver can edit this carpool")
	}

	if patch.Title != nil {
		c.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		c.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Departure != nil {
		c.Departure = strings.TrimSpace(*patch.Departure)
	}
	if patch.Destination != nil {
		c.Destination = strings.TrimSpace(*patch.Destination)
	}
	if patch.DepartureTime != nil {
		at, err := parseDepartureTime(*patch.DepartureTime)
		if err != nil {
			return nil, err
		}
		c.DepartureTime = at
	}
	if patch.SeatsAvailable != nil {
		c.SeatsAvailable = *patch.SeatsAvailable
	}
	if err := validateCarpool(c); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateCarpool(ctx, c); err != nil {
		return nil, fmt.Errorf("updating carpool %d: %w", id, err)
	}
	s.logger.Info("carpool updated", slog.Int64("id", id))
	return s.repo.GetCarpool(ctx, id)
}

func (s *CarpoolService) Delete(ctx context.Context, id int64, callerID string) error {
	c, err := s.repo.GetCarpool(ctx, id)
	if err != nil {
		return err
	}
	if c.DriverID != callerID {
		return apperror.Forbidden("only the driver can delete this carpool")
	}
	if err := s.repo.DeleteCarpool(ctx, id); err != nil {
		return err
	}
	s.logger.Info("carpool deleted", slog.Int64("id", id))
	return nil
}

// Like and Unlike return the new like count. Unlike at zero stays at zero.
func (s *CarpoolService) Like(ctx context.Context, id int64) (int, error) {
	return s.repo.AdjustCarpoolLikes(ctx, id, 1)
}

func (s *CarpoolService) Unlike(ctx context.Context, id int64) (int, error) {
	return s.repo.AdjustCarpoolLikes(ctx, id, -1)
}

func (s *CarpoolService) ListComments(ctx context.Context, carpoolID int64) ([]model.CarpoolComment, error) {
	if _, err := s.repo.GetCarpool(ctx, carpoolID); err != nil {
		return nil, err
	}
	return s.repo.ListCarpoolComments(ctx, carpoolID)
}

func (s *CarpoolService) AddComment(ctx context.Context, carpoolID int64, authorID, content string) (*model.CarpoolComment, error) {
	content, err := validateComment(content)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCarpool(ctx, carpoolID); err != nil {
		return nil, err
	}

	comment := &model.CarpoolComment{CarpoolID: carpoolID, AuthorID: authorID, Content: content}
	if err := s.repo.CreateCarpoolComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("commenting on carpool %d: %w", carpoolID, err)
	}
	return s.repo.GetCarpoolComment(ctx, carpoolID, comment.ID)
}

// DeleteComment removes a comment. The comment must belong to carpoolID and
// only its author may delete it.
func (s *CarpoolService) DeleteComment(ctx context.Context, carpoolID, commentID int64, callerID string) error {
	comment, err := s.repo.GetCarpoolComment(ctx, carpoolID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != callerID {
		return apperror.Forbidden("only the author can delete this comment")
	}
	return s.repo.DeleteCarpoolComment(ctx, carpoolID, commentID)
}

func parseDepartureTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperror.ValidationFailed("departureTime", "departure time is required")
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperror.ValidationFailed("departureTime",
			"departure time must be RFC 3339, e.g. 2025-05-01T09:00:00+09:00")
	}
	return at, nil
}

func validateCarpool(c *model.Carpool) error {
	switch {
	case c.Title == "":
		return apperror.ValidationFailed("title", "title is required")
	case utf8.RuneCountInString(c.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case c.Departure == "":
		return apperror.ValidationFailed("departure", "departure is required")
	case c.Destination == "":
		return apperror.ValidationFailed("destination", "destination is required")
	case c.SeatsAvailable < 0:
		return apperror.ValidationFailed("seatsAvailable", "seats available cannot be negative")
	}
	return nil
}

func validateComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "comment is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", apperror.ValidationFailed("content",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}
	return content, nil
}
