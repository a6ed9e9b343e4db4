// Package sqlite implements the repository interfaces on top of SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure-Go SQLite (no cgo), so the binary cross-compiles and the tests
// run against a real SQL engine using an in-memory database.
//
// One *DB value implements every repository interface. Each resource lives in
// its own file (account.go, carpool.go, ...), sharing the connection pool and
// the helpers at the bottom of this file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yeogida/yeogida-backend/internal/repository"
)

// DB wraps a *sql.DB connection pool.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// PRAGMAS:
// foreign_keys and busy_timeout are per-connection settings, so they go in the
// DSN (_pragma=...) and the driver applies them to every pooled connection.
// journal_mode=WAL is persisted in the file and only needs to be set once.
// _txlock=immediate makes BEGIN take the write lock, so concurrent
// transactions queue on busy_timeout instead of failing mid-transaction.
//
// ":memory:" databases exist per connection; the pool is pinned to a single
// connection so every query sees the same in-memory database.
func New(dbPath string) (*DB, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if strings.Contains(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. Every statement is idempotent (IF NOT EXISTS,
// INSERT OR IGNORE), so it runs on every start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id                TEXT PRIMARY KEY,
				nickname          TEXT NOT NULL,
				email             TEXT UNIQUE,
				profile_image_url TEXT,
				password_hash     TEXT NOT NULL DEFAULT '',
				is_active         BOOLEAN NOT NULL DEFAULT 1,
				is_staff          BOOLEAN NOT NULL DEFAULT 0,
				is_superuser      BOOLEAN NOT NULL DEFAULT 0,
				level             INTEGER NOT NULL DEFAULT 1,
				review_count      INTEGER NOT NULL DEFAULT 0 CHECK (review_count >= 0),
				like_count        INTEGER NOT NULL DEFAULT 0 CHECK (like_count >= 0),
				badge             TEXT NOT NULL DEFAULT '',
				created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"carpools", `
			CREATE TABLE IF NOT EXISTS carpools (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				driver_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title           TEXT NOT NULL,
				description     TEXT NOT NULL DEFAULT '',
				departure       TEXT NOT NULL,
				destination     TEXT NOT NULL,
				departure_time  DATETIME NOT NULL,
				seats_available INTEGER NOT NULL DEFAULT 4 CHECK (seats_available >= 0),
				likes           INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
				created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_carpools_departure_time ON carpools(departure_time);
			CREATE INDEX IF NOT EXISTS idx_carpools_driver_id ON carpools(driver_id);`},
		{"carpool_comments", `
			CREATE TABLE IF NOT EXISTS carpool_comments (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				carpool_id INTEGER NOT NULL REFERENCES carpools(id) ON DELETE CASCADE,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_carpool_comments_carpool_id ON carpool_comments(carpool_id);`},
		{"courses", `
			CREATE TABLE IF NOT EXISTS courses (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				name        TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				duration    TEXT NOT NULL DEFAULT '',
				location    TEXT NOT NULL DEFAULT '',
				theme       TEXT NOT NULL DEFAULT '[]',
				image_url   TEXT NOT NULL DEFAULT '',
				rating      REAL NOT NULL DEFAULT 0,
				currency    TEXT NOT NULL DEFAULT 'KRW',
				amount      INTEGER NOT NULL DEFAULT 0
			);
			CREATE TABLE IF NOT EXISTS course_sites (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				name      TEXT NOT NULL,
				type      TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_course_sites_course_id ON course_sites(course_id);
			CREATE TABLE IF NOT EXISTS favorite_courses (
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				course_id  INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE (user_id, course_id)
			);`},
		{"reviews", `
			CREATE TABLE IF NOT EXISTS reviews (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title      TEXT NOT NULL,
				content    TEXT NOT NULL,
				region     TEXT NOT NULL DEFAULT '',
				place      TEXT NOT NULL DEFAULT '',
				likes      INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
				views      INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_reviews_author_id ON reviews(author_id);
			CREATE TABLE IF NOT EXISTS review_comments (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				review_id  INTEGER NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
				author_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content    TEXT NOT NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"regions", `
			CREATE TABLE IF NOT EXISTS regions (
				code TEXT PRIMARY KEY,
				name TEXT NOT NULL
			);
			CREATE TABLE IF NOT EXISTS user_visited_regions (
				user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				region_code     TEXT NOT NULL REFERENCES regions(code),
				visit_count     INTEGER NOT NULL DEFAULT 0,
				last_visited_at DATETIME,
				UNIQUE (user_id, region_code)
			);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s schema: %w", step.name, err)
		}
	}

	for _, r := range seedRegions {
		if _, err := db.conn.Exec(
			`INSERT OR IGNORE INTO regions (code, name) VALUES (?, ?)`, r.code, r.name,
		); err != nil {
			return fmt.Errorf("seeding region %s: %w", r.code, err)
		}
	}

	return nil
}

// seedRegions are the first-level administrative divisions of Korea, keyed by
// their statistical area code.
var seedRegions = []struct{ code, name string }{
	{"11", "서울특별시"},
	{"26", "부산광역시"},
	{"27", "대구광역시"},
	{"28", "인천광역시"},
	{"29", "광주광역시"},
	{"30", "대전광역시"},
	{"31", "울산광역시"},
	{"36", "세종특별자치시"},
	{"41", "경기도"},
	{"43", "충청북도"},
	{"44", "충청남도"},
	{"46", "전라남도"},
	{"47", "경상북도"},
	{"48", "경상남도"},
	{"50", "제주특별자치도"},
	{"51", "강원특별자치도"},
	{"52", "전북특별자치도"},
}

// =========================================================================
// SHARED HELPERS
// =========================================================================

// withTx runs fn inside a transaction, committing on success and rolling back
// on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// orderBy builds an ORDER BY clause. The column must be one of allowed;
// anything else is refused, never interpolated. Ties are broken by id so
// pages stay stable. alias qualifies the columns when the query joins.
func orderBy(s repository.Sort, alias string, allowed ...string) (string, error) {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	for _, col := range allowed {
		if s.Column != col {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		if col == repository.ColumnID {
			return fmt.Sprintf(" ORDER BY %sid %s", prefix, dir), nil
		}
		return fmt.Sprintf(" ORDER BY %s%s %s, %sid ASC", prefix, col, dir, prefix), nil
	}
	return "", fmt.Errorf("sqlite: column %q is not sortable here", s.Column)
}

// limitOffset clamps pagination: default page size 20, at most 100.
func limitOffset(opts repository.ListOptions) (int, int) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// likePattern wraps a user search term in a LIKE pattern, escaping the LIKE
// wildcards. Use with `LOWER(col) LIKE LOWER(?) ESCAPE '\'`: case folding
// happens in SQLite on both sides, and SQLite's LOWER folds ASCII only, so
// "É" matches "É" but not "é".
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// utc normalises timestamps before storage so text ordering matches time
// ordering.
func utc(t time.Time) time.Time {
	return t.UTC()
}
