package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

// =========================================================================
// HELPERS
// =========================================================================

// newTestDB opens a fresh in-memory database with the full schema.
// t.Cleanup closes it when the test (and its subtests) finish.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestAccount(t *testing.T, db *DB, id, nickname, email string) *model.Account {
	t.Helper()
	a := &model.Account{ID: id, Nickname: nickname, Email: email, IsActive: true}
	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("failed to create test account %s: %v", id, err)
	}
	return a
}

func createTestCarpool(t *testing.T, db *DB, driverID, departure, destination string, at time.Time) *model.Carpool {
	t.Helper()
	c := &model.Carpool{
		DriverID:       driverID,
		Title:          departure + " to " + destination,
		Departure:      departure,
		Destination:    destination,
		DepartureTime:  at,
		SeatsAvailable: 3,
	}
	if err := db.CreateCarpool(context.Background(), c); err != nil {
		t.Fatalf("failed to create test carpool: %v", err)
	}
	return c
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Seoul", "%Seoul%"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
		{`c:\`, `%c:\\%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOrderBy_RejectsUnknownColumn(t *testing.T) {
	_, err := orderBy(repository.Sort{Column: "password_hash"}, "", repository.ColumnLikes)
	if err == nil {
		t.Fatal("orderBy() should refuse a column outside the allow-list")
	}

	got, err := orderBy(repository.Sort{Column: repository.ColumnLikes, Desc: true}, "r", repository.ColumnLikes)
	if err != nil {
		t.Fatalf("orderBy() error = %v", err)
	}
	if want := " ORDER BY r.likes DESC, r.id ASC"; got != want {
		t.Errorf("orderBy() = %q, want %q", got, want)
	}
}
