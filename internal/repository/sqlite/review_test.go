package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

func createTestReview(t *testing.T, db *DB, authorID, title, region string) *model.Review {
	t.Helper()
	r := &model.Review{
		AuthorID: authorID,
		Title:    title,
		Content:  "worth the trip",
		Region:   region,
		Place:    "somewhere",
	}
	if err := db.CreateReview(context.Background(), r); err != nil {
		t.Fatalf("failed to create test review: %v", err)
	}
	return r
}

func TestCreateReview_CreditsAuthor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")

	for i := 0; i < 5; i++ {
		createTestReview(t, db, "1", "review", "Busan")
	}

	a, err := db.GetAccountByID(ctx, "1")
	if err != nil {
		t.Fatalf("GetAccountByID() error = %v", err)
	}
	if a.ReviewCount != 5 {
		t.Errorf("ReviewCount = %d, want 5", a.ReviewCount)
	}
	if a.Level != 2 {
		t.Errorf("Level = %d, want 2", a.Level)
	}
}

func TestDeleteReview_DebitsAuthor(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")
	r := createTestReview(t, db, "1", "review", "Busan")

	if err := db.DeleteReview(ctx, r.ID); err != nil {
		t.Fatalf("DeleteReview() error = %v", err)
	}
	a, _ := db.GetAccountByID(ctx, "1")
	if a.ReviewCount != 0 || a.Level != 1 {
		t.Errorf("after delete: ReviewCount = %d, Level = %d", a.ReviewCount, a.Level)
	}

	if err := db.DeleteReview(ctx, r.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteReview() error = %v, want ErrNotFound", err)
	}
}

func TestViewReview_CountsViews(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")
	r := createTestReview(t, db, "1", "review", "Busan")

	db.ViewReview(ctx, r.ID)
	got, err := db.ViewReview(ctx, r.ID)
	if err != nil {
		t.Fatalf("ViewReview() error = %v", err)
	}
	if got.Views != 2 {
		t.Errorf("Views = %d, want 2", got.Views)
	}

	// GetReview does not count.
	got, _ = db.GetReview(ctx, r.ID)
	if got.Views != 2 {
		t.Errorf("Views after GetReview = %d, want 2", got.Views)
	}

	if _, err := db.ViewReview(ctx, 999); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ViewReview() on missing review error = %v, want ErrNotFound", err)
	}
}

func TestListReviews_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "Alice", "")
	createTestAccount(t, db, "2", "bob", "")
	createTestReview(t, db, "1", "Jeju sunrise", "Jeju")
	createTestReview(t, db, "2", "Jeju food", "Jeju")
	createTestReview(t, db, "2", "Busan port", "Busan")

	tests := []struct {
		name   string
		filter repository.ReviewFilter
		want   int
	}{
		{"title", repository.ReviewFilter{Title: "jeju"}, 2},
		{"author nickname", repository.ReviewFilter{Author: "ALICE"}, 1},
		{"region", repository.ReviewFilter{Region: "busan"}, 1},
		{"combined", repository.ReviewFilter{Title: "jeju", Author: "bob"}, 1},
		{"no match", repository.ReviewFilter{Region: "Seoul"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Sort = repository.Sort{Column: repository.ColumnCreatedAt, Desc: true}
			got, err := db.ListReviews(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListReviews() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestAdjustReviewLikes_MovesAuthorLikeCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")
	r := createTestReview(t, db, "1", "review", "Busan")

	// Unlike at zero changes nothing.
	likes, err := db.AdjustReviewLikes(ctx, r.ID, -1)
	if err != nil {
		t.Fatalf("AdjustReviewLikes() error = %v", err)
	}
	if likes != 0 {
		t.Errorf("likes = %d, want 0", likes)
	}
	a, _ := db.GetAccountByID(ctx, "1")
	if a.LikeCount != 0 {
		t.Errorf("LikeCount = %d, want 0", a.LikeCount)
	}

	db.AdjustReviewLikes(ctx, r.ID, 1)
	db.AdjustReviewLikes(ctx, r.ID, 1)
	likes, _ = db.AdjustReviewLikes(ctx, r.ID, -1)
	if likes != 1 {
		t.Errorf("likes = %d, want 1", likes)
	}
	a, _ = db.GetAccountByID(ctx, "1")
	if a.LikeCount != 1 {
		t.Errorf("LikeCount = %d, want 1", a.LikeCount)
	}
}

func TestAdjustReviewLikes_ClampsAndReportsMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")
	r := createTestReview(t, db, "1", "review", "Busan")

	db.AdjustReviewLikes(ctx, r.ID, 2)
	likes, err := db.AdjustReviewLikes(ctx, r.ID, -5)
	if err != nil {
		t.Fatalf("AdjustReviewLikes() error = %v", err)
	}
	if likes != 0 {
		t.Errorf("likes = %d, want 0", likes)
	}
	a, _ := db.GetAccountByID(ctx, "1")
	if a.LikeCount != 0 {
		t.Errorf("LikeCount = %d, want 0", a.LikeCount)
	}

	_, err = db.AdjustReviewLikes(ctx, r.ID+100, 1)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing review: error = %v, want ErrNotFound", err)
	}
}

func TestAdjustReviewLikes_Concurrent(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "likes.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")
	r := createTestReview(t, db, "1", "review", "Busan")
	c := createTestCarpool(t, db, "1", "Seoul", "Busan", time.Now().Add(24*time.Hour))

	const n = 50
	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2*n)
	)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := db.AdjustReviewLikes(ctx, r.ID, 1); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := db.AdjustCarpoolLikes(ctx, c.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent like error = %v", err)
	}

	got, err := db.GetReview(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetReview() error = %v", err)
	}
	if got.Likes != n {
		t.Errorf("review likes = %d, want %d", got.Likes, n)
	}
	a, _ := db.GetAccountByID(ctx, "1")
	if a.LikeCount != n {
		t.Errorf("LikeCount = %d, want %d", a.LikeCount, n)
	}
}

func TestReviewComments_OldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestAccount(t, db, "1", "writer", "")
	r := createTestReview(t, db, "1", "review", "Busan")

	first := &model.ReviewComment{ReviewID: r.ID, AuthorID: "1", Content: "first"}
	second := &model.ReviewComment{ReviewID: r.ID, AuthorID: "1", Content: "second"}
	for _, c := range []*model.ReviewComment{first, second} {
		if err := db.CreateReviewComment(ctx, c); err != nil {
			t.Fatalf("CreateReviewComment() error = %v", err)
		}
	}

	got, err := db.ListReviewComments(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListReviewComments() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != first.ID {
		t.Errorf("comments = %+v, want oldest first", got)
	}
	if got[0].Author != "writer" {
		t.Errorf("Author = %q", got[0].Author)
	}
}
