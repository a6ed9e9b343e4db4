// Package repository declares the storage interfaces the services depend on.
//
// Services only ever see these interfaces; the SQLite implementation lives in
// repository/sqlite and the service tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/yeogida/yeogida-backend/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Sort names a column and a direction. Column must be one of the sortable
// column constants below; implementations reject anything else.
type Sort struct {
	Column string
	Desc   bool
}

// Sortable columns.
const (
	ColumnID            = "id"
	ColumnCreatedAt     = "created_at"
	ColumnDepartureTime = "departure_time"
	ColumnLikes         = "likes"
	ColumnViews         = "views"
	ColumnRating        = "rating"
	ColumnName          = "name"
	ColumnLevel         = "level"
	ColumnReviewCount   = "review_count"
	ColumnLikeCount     = "like_count"
)

type AccountRepository interface {
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	// FirstAccount returns the earliest created account.
	FirstAccount(ctx context.Context) (*model.Account, error)
	// CreateAccount inserts a new account. A duplicate id or email fails with
	// an apperror.ErrConflict error and writes nothing.
	CreateAccount(ctx context.Context, account *model.Account) error
	UpdateAccount(ctx context.Context, id string, changes model.AccountChanges) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	DeleteAccount(ctx context.Context, id string) error
}

type CarpoolFilter struct {
	Departure   string
	Destination string
	Sort        Sort
	ListOptions
}

type CarpoolRepository interface {
	CreateCarpool(ctx context.Context, carpool *model.Carpool) error
	GetCarpool(ctx context.Context, id int64) (*model.Carpool, error)
	ListCarpools(ctx context.Context, filter CarpoolFilter) ([]model.Carpool, error)
	UpdateCarpool(ctx context.Context, carpool *model.Carpool) error
	DeleteCarpool(ctx context.Context, id int64) error
	// AdjustCarpoolLikes adds delta to the like counter, never going below
	// zero, and returns the new count.
	AdjustCarpoolLikes(ctx context.Context, id int64, delta int) (int, error)

	CreateCarpoolComment(ctx context.Context, comment *model.CarpoolComment) error
	GetCarpoolComment(ctx context.Context, carpoolID, commentID int64) (*model.CarpoolComment, error)
	ListCarpoolComments(ctx context.Context, carpoolID int64) ([]model.CarpoolComment, error)
	DeleteCarpoolComment(ctx context.Context, carpoolID, commentID int64) error
}

type CourseFilter struct {
	Location string
	Keyword  string
	Sort     Sort
	ListOptions
}

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	ListCourses(ctx context.Context, filter CourseFilter) ([]model.Course, error)

	// AddFavorite is idempotent: favoriting twice keeps the first timestamp.
	AddFavorite(ctx context.Context, userID string, courseID int64) error
	RemoveFavorite(ctx context.Context, userID string, courseID int64) error
	// ListFavorites returns favorites newest first. limit <= 0 means all.
	ListFavorites(ctx context.Context, userID string, limit int) ([]model.FavoriteCourse, error)
}

type ReviewFilter struct {
	Title  string // substring of the title
	Author string // substring of the author's nickname
	Region string
	Sort   Sort
	ListOptions
}

type ReviewRepository interface {
	// CreateReview inserts the review and bumps the author's review count
	// and level in the same transaction.
	CreateReview(ctx context.Context, review *model.Review) error
	GetReview(ctx context.Context, id int64) (*model.Review, error)
	// ViewReview increments the view counter and returns the updated review.
	ViewReview(ctx context.Context, id int64) (*model.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)
	UpdateReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, id int64) error
	// AdjustReviewLikes adds delta to the like counter, never going below
	// zero, mirrors the change on the author's like count and returns the
	// new review count.
	AdjustReviewLikes(ctx context.Context, id int64, delta int) (int, error)

	CreateReviewComment(ctx context.Context, comment *model.ReviewComment) error
	ListReviewComments(ctx context.Context, reviewID int64) ([]model.ReviewComment, error)
}

type RankingRepository interface {
	ListRankedUsers(ctx context.Context, sort Sort, limit int) ([]model.RankedUser, error)
}

type RegionRepository interface {
	ListVisitedRegions(ctx context.Context, userID string) ([]model.VisitedRegion, error)
	// RecordVisit bumps the visit count for the region, creating the row on
	// the first visit.
	RecordVisit(ctx context.Context, userID, regionCode string) error
}
