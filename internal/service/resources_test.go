package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository/sqlite"
)

// The resource services are thin over the store, so they are tested against
// a real in-memory database rather than a fake per repository.
func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAccount(t *testing.T, db *sqlite.DB, id, nickname string, staff bool) {
	t.Helper()
	require.NoError(t, db.CreateAccount(context.Background(), &model.Account{
		ID: id, Nickname: nickname, IsActive: true, IsStaff: staff,
	}))
}

// =========================================================================
// LISTING PARAMETERS
// =========================================================================

func TestParseSignedSort(t *testing.T) {
	s, err := parseSignedSort("-departure_time", "departure_time", carpoolSortKeys)
	require.NoError(t, err)
	assert.Equal(t, "departure_time", s.Column)
	assert.True(t, s.Desc)

	s, err = parseSignedSort("", "departure_time", carpoolSortKeys)
	require.NoError(t, err)
	assert.False(t, s.Desc)

	_, err = parseSignedSort("price", "departure_time", carpoolSortKeys)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestParseFieldSort(t *testing.T) {
	s, err := parseFieldSort("", "", "created_at", true, reviewSortKeys)
	require.NoError(t, err)
	assert.True(t, s.Desc)

	s, err = parseFieldSort("likes", "ASC", "created_at", true, reviewSortKeys)
	require.NoError(t, err)
	assert.Equal(t, "likes", s.Column)
	assert.False(t, s.Desc)

	_, err = parseFieldSort("likes", "sideways", "created_at", true, reviewSortKeys)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	_, err = parseFieldSort("author_id", "", "created_at", true, reviewSortKeys)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestPageOptions(t *testing.T) {
	assert.Equal(t, 20, Page{}.options(DefaultListLimit).Limit)
	assert.Equal(t, 100, Page{Limit: 5000}.options(DefaultListLimit).Limit)
	assert.Equal(t, 0, Page{Offset: -3}.options(DefaultListLimit).Offset)
	assert.Equal(t, 10, Page{}.options(DefaultRankingLimit).Limit)
}

// =========================================================================
// CARPOOLS
// =========================================================================

func TestCarpoolService_CreateValidates(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "driver", false)
	svc := NewCarpoolService(db, discardLogger())
	ctx := context.Background()

	valid := CarpoolInput{
		Title: "to the beach", Departure: "Seoul", Destination: "Gangneung",
		DepartureTime: "2030-07-01T08:00:00+09:00", SeatsAvailable: 3,
	}

	c, err := svc.Create(ctx, "1", valid)
	require.NoError(t, err)
	assert.Equal(t, "driver", c.DriverNickname)

	bad := []func(in *CarpoolInput){
		func(in *CarpoolInput) { in.Title = " " },
		func(in *CarpoolInput) { in.Departure = "" },
		func(in *CarpoolInput) { in.Destination = "" },
		func(in *CarpoolInput) { in.SeatsAvailable = -1 },
		func(in *CarpoolInput) { in.DepartureTime = "tomorrow morning" },
	}
	for i, mutate := range bad {
		in := valid
		mutate(&in)
		_, err := svc.Create(ctx, "1", in)
		assert.True(t, errors.Is(err, apperror.ErrValidation), "case %d: %v", i, err)
	}
}

func TestValidation_CountsCharactersNotBytes(t *testing.T) {
	// Each Hangul syllable is three bytes in UTF-8.
	title := strings.Repeat("여", MaxTitleLength)
	require.Greater(t, len(title), MaxTitleLength)

	assert.NoError(t, validateCarpool(&model.Carpool{Title: title, Departure: "서울", Destination: "부산"}))
	assert.NoError(t, validateReview(&model.Review{Title: title, Content: "좋아요", Region: "부산", Place: "해운대"}))
	_, err := validateComment(strings.Repeat("댓", MaxCommentLength))
	assert.NoError(t, err)

	err = validateCarpool(&model.Carpool{Title: title + "여", Departure: "서울", Destination: "부산"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	_, err = validateComment(strings.Repeat("댓", MaxCommentLength+1))
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	db := newTestStore(t)
	seedAccount(t, db, "1", "traveler", false)
	accounts := NewAccountService(db, db, db, discardLogger())
	nickname := strings.Repeat("닉", MaxNicknameLength)
	got, err := accounts.Update(context.Background(), "1", ProfilePatch{Nickname: &nickname})
	require.NoError(t, err)
	assert.Equal(t, nickname, got.Nickname)
}

func TestCarpoolService_ListSeoulDescending(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "driver", false)
	svc := NewCarpoolService(db, discardLogger())
	ctx := context.Background()

	for _, in := range []CarpoolInput{
		{Title: "a", Departure: "Seoul Station", Destination: "Busan", DepartureTime: "2030-01-01T09:00:00Z"},
		{Title: "b", Departure: "Incheon", Destination: "Seoul", DepartureTime: "2030-01-05T09:00:00Z"},
		{Title: "c", Departure: "seoul forest", Destination: "Jeju", DepartureTime: "2030-01-03T09:00:00Z"},
	} {
		_, err := svc.Create(ctx, "1", in)
		require.NoError(t, err)
	}

	got, err := svc.List(ctx, CarpoolQuery{Departure: "Seoul", Sort: "-departure_time"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Title)
	assert.Equal(t, "a", got[1].Title)

	_, err = svc.List(ctx, CarpoolQuery{Sort: "seats"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestCarpoolService_OwnerOnly(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "driver", false)
	seedAccount(t, db, "2", "stranger", false)
	svc := NewCarpoolService(db, discardLogger())
	ctx := context.Background()

	c, err := svc.Create(ctx, "1", CarpoolInput{
		Title: "ride", Departure: "Seoul", Destination: "Busan", DepartureTime: "2030-01-01T09:00:00Z",
	})
	require.NoError(t, err)

	title := "hijacked"
	_, err = svc.Update(ctx, c.ID, "2", CarpoolPatch{Title: &title})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
	assert.True(t, errors.Is(svc.Delete(ctx, c.ID, "2"), apperror.ErrForbidden))

	seats := 1
	updated, err := svc.Update(ctx, c.ID, "1", CarpoolPatch{SeatsAvailable: &seats})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SeatsAvailable)
	assert.Equal(t, "ride", updated.Title, "fields not in the patch are kept")

	require.NoError(t, svc.Delete(ctx, c.ID, "1"))
	_, err = svc.Get(ctx, c.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestCarpoolService_LikesAndComments(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "driver", false)
	seedAccount(t, db, "2", "rider", false)
	svc := NewCarpoolService(db, discardLogger())
	ctx := context.Background()

	c, err := svc.Create(ctx, "1", CarpoolInput{
		Title: "ride", Departure: "Seoul", Destination: "Busan", DepartureTime: "2030-01-01T09:00:00Z",
	})
	require.NoError(t, err)

	likes, err := svc.Unlike(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, likes)
	likes, _ = svc.Like(ctx, c.ID)
	assert.Equal(t, 1, likes)
	likes, _ = svc.Unlike(ctx, c.ID)
	assert.Equal(t, 0, likes)

	comment, err := svc.AddComment(ctx, c.ID, "2", "any seats left?")
	require.NoError(t, err)
	assert.Equal(t, "rider", comment.Author)

	_, err = svc.AddComment(ctx, c.ID, "2", "   ")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	_, err = svc.AddComment(ctx, 999, "2", "hello")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	detail, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 1)

	assert.True(t, errors.Is(svc.DeleteComment(ctx, c.ID, comment.ID, "1"), apperror.ErrForbidden))
	require.NoError(t, svc.DeleteComment(ctx, c.ID, comment.ID, "2"))
}

// =========================================================================
// COURSES
// =========================================================================

func TestCourseService(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "staff", "admin", true)
	seedAccount(t, db, "user", "traveler", false)
	svc := NewCourseService(db, db, discardLogger())
	ctx := context.Background()

	course := model.Course{
		Name: "Jeju east", Location: "Jeju", Rating: 4.5,
		Theme: []string{"nature"}, Sites: []model.Site{{Name: "Seongsan", Type: "nature"}},
	}
	_, err := svc.Create(ctx, "user", course)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	created, err := svc.Create(ctx, "staff", course)
	require.NoError(t, err)
	assert.Equal(t, "KRW", created.EstimatedCost.Currency)
	assert.Len(t, created.Sites, 1)

	course.Rating = 7
	_, err = svc.Create(ctx, "staff", course)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	list, err := svc.List(ctx, CourseQuery{Location: "jeju", SortBy: "rating", Order: "desc"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.List(ctx, CourseQuery{SortBy: "price"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	require.NoError(t, svc.Favorite(ctx, "user", created.ID))
	require.NoError(t, svc.Favorite(ctx, "user", created.ID))
	assert.True(t, errors.Is(svc.Favorite(ctx, "user", 999), apperror.ErrNotFound))
	require.NoError(t, svc.Unfavorite(ctx, "user", created.ID))
	require.NoError(t, svc.Unfavorite(ctx, "user", created.ID))
}

// =========================================================================
// REVIEWS
// =========================================================================

func TestReviewService_Lifecycle(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "writer", false)
	seedAccount(t, db, "2", "reader", false)
	svc := NewReviewService(db, db, false, discardLogger())
	ctx := context.Background()

	r, err := svc.Create(ctx, "1", ReviewInput{Title: "Busan nights", Content: "great", Region: "Busan"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "1", ReviewInput{Title: "no content"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	viewed, err := svc.View(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, viewed.Views)

	list, err := svc.List(ctx, ReviewQuery{SearchType: "author", Keyword: "WRIT"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = svc.List(ctx, ReviewQuery{SearchType: "place", Keyword: "x"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	title := "stolen"
	_, err = svc.Update(ctx, r.ID, "2", ReviewPatch{Title: &title})
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	likes, err := svc.Like(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)
	writer, _ := db.GetAccountByID(ctx, "1")
	assert.Equal(t, 1, writer.LikeCount)
	assert.Equal(t, 1, writer.ReviewCount)

	require.NoError(t, svc.Delete(ctx, r.ID, "1"))
	writer, _ = db.GetAccountByID(ctx, "1")
	assert.Equal(t, 0, writer.ReviewCount)
}

func TestReviewService_AnonymousComments(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "first", false)
	seedAccount(t, db, "2", "second", false)
	ctx := context.Background()

	strict := NewReviewService(db, db, false, discardLogger())
	r, err := strict.Create(ctx, "2", ReviewInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	_, err = strict.AddComment(ctx, r.ID, "", "hello")
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))

	dev := NewReviewService(db, db, true, discardLogger())
	c, err := dev.AddComment(ctx, r.ID, "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "1", c.AuthorID)
	assert.Equal(t, "first", c.Author)

	c, err = dev.AddComment(ctx, r.ID, "2", "signed")
	require.NoError(t, err)
	assert.Equal(t, "2", c.AuthorID)

	comments, err := dev.ListComments(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 2)
}

// =========================================================================
// RANKINGS AND ACCOUNTS
// =========================================================================

func TestRankingService(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "a", false)
	seedAccount(t, db, "2", "b", false)
	reviews := NewReviewService(db, db, false, discardLogger())
	_, err := reviews.Create(context.Background(), "2", ReviewInput{Title: "t", Content: "c"})
	require.NoError(t, err)

	svc := NewRankingService(db, discardLogger())
	got, err := svc.List(context.Background(), RankingQuery{SortBy: "reviewCount"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].UserID)
	assert.Equal(t, 1, got[0].Rank)

	_, err = svc.List(context.Background(), RankingQuery{SortBy: "views"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestAccountService(t *testing.T) {
	db := newTestStore(t)
	seedAccount(t, db, "1", "before", false)
	svc := NewAccountService(db, db, db, discardLogger())
	ctx := context.Background()

	nickname := "after"
	got, err := svc.Update(ctx, "1", ProfilePatch{Nickname: &nickname})
	require.NoError(t, err)
	assert.Equal(t, "after", got.Nickname)

	empty := " "
	_, err = svc.Update(ctx, "1", ProfilePatch{Nickname: &empty})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	require.NoError(t, svc.RecordVisit(ctx, "1", "11"))
	assert.True(t, errors.Is(svc.RecordVisit(ctx, "1", "00"), apperror.ErrNotFound))
	visited, err := svc.VisitedRegions(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, visited, 1)

	favorites, err := svc.Favorites(ctx, "1", 0)
	require.NoError(t, err)
	assert.Empty(t, favorites)

	require.NoError(t, svc.Delete(ctx, "1"))
	_, err = svc.Me(ctx, "1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
