package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var _ repository.CourseRepository = (*DB)(nil)

const courseColumns = `c.id, c.name, c.description, c.duration, c.location, c.theme,
	c.image_url, c.rating, c.currency, c.amount`

// scanCourse reads one course row. theme is stored as a JSON array of strings.
func scanCourse(row rowScanner, extra ...any) (*model.Course, error) {
	var (
		c     model.Course
		theme string
	)
	dest := []any{
		&c.ID, &c.Name, &c.Description, &c.Duration, &c.Location, &theme,
		&c.ImageURL, &c.Rating, &c.EstimatedCost.Currency, &c.EstimatedCost.Amount,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(theme), &c.Theme); err != nil {
		return nil, fmt.Errorf("decoding theme of course %d: %w", c.ID, err)
	}
	if c.Theme == nil {
		c.Theme = []string{}
	}
	c.Sites = []model.Site{}
	return &c, nil
}

// CreateCourse inserts the course and its sites in one transaction.
func (db *DB) CreateCourse(ctx context.Context, c *model.Course) error {
	if c.Theme == nil {
		c.Theme = []string{}
	}
	theme, err := json.Marshal(c.Theme)
	if err != nil {
		return fmt.Errorf("sqlite: encoding course theme: %w", err)
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO courses (name, description, duration, location, theme,
				image_url, rating, currency, amount)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Name, c.Description, c.Duration, c.Location, string(theme),
			c.ImageURL, c.Rating, c.EstimatedCost.Currency, c.EstimatedCost.Amount,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating course: %w", err)
		}
		if c.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading course id: %w", err)
		}

		for i := range c.Sites {
			site := &c.Sites[i]
			result, err := tx.ExecContext(ctx,
				`INSERT INTO course_sites (course_id, name, type) VALUES (?, ?, ?)`,
				c.ID, site.Name, site.Type,
			)
			if err != nil {
				return fmt.Errorf("sqlite: creating site %q: %w", site.Name, err)
			}
			if site.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("sqlite: reading site id: %w", err)
			}
		}
		return nil
	})
}

func (db *DB) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	c, err := scanCourse(db.conn.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses c WHERE c.id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("course", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting course %d: %w", id, err)
	}
	if err := db.attachSites(ctx, []*model.Course{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (db *DB) ListCourses(ctx context.Context, f repository.CourseFilter) ([]model.Course, error) {
	order, err := orderBy(f.Sort, "c",
		repository.ColumnID, repository.ColumnRating, repository.ColumnName)
	if err != nil {
		return nil, err
	}
	limit, offset := limitOffset(f.ListOptions)

	query := `SELECT ` + courseColumns + ` FROM courses c WHERE 1 = 1`
	var args []any
	if f.Location != "" {
		query += ` AND LOWER(c.location) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Location))
	}
	if f.Keyword != "" {
		query += ` AND LOWER(c.name) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Keyword))
	}
	query += order + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing courses: %w", err)
	}
	defer rows.Close()

	var ptrs []*model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning course row: %w", err)
		}
		ptrs = append(ptrs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating courses: %w", err)
	}
	rows.Close()

	if err := db.attachSites(ctx, ptrs); err != nil {
		return nil, err
	}

	courses := make([]model.Course, 0, len(ptrs))
	for _, c := range ptrs {
		courses = append(courses, *c)
	}
	return courses, nil
}

// attachSites loads the sites of all given courses with a single query.
func (db *DB) attachSites(ctx context.Context, courses []*model.Course) error {
	if len(courses) == 0 {
		return nil
	}

	byID := make(map[int64]*model.Course, len(courses))
	placeholders := make([]string, 0, len(courses))
	args := make([]any, 0, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
		placeholders = append(placeholders, "?")
		args = append(args, c.ID)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, course_id, name, type FROM course_sites
		 WHERE course_id IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY id`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading course sites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s        model.Site
			courseID int64
		)
		if err := rows.Scan(&s.ID, &courseID, &s.Name, &s.Type); err != nil {
			return fmt.Errorf("sqlite: scanning site row: %w", err)
		}
		if c, ok := byID[courseID]; ok {
			c.Sites = append(c.Sites, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating sites: %w", err)
	}
	return nil
}

// =========================================================================
// FAVORITES
// =========================================================================

// AddFavorite relies on UNIQUE (user_id, course_id): a repeat favorite is
// ignored and keeps its original timestamp.
func (db *DB) AddFavorite(ctx context.Context, userID string, courseID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorite_courses (user_id, course_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: favoriting course %d: %w", courseID, err)
	}
	return nil
}

// RemoveFavorite is a no-op when the course was not a favorite.
func (db *DB) RemoveFavorite(ctx context.Context, userID string, courseID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM favorite_courses WHERE user_id = ? AND course_id = ?`,
		userID, courseID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: unfavoriting course %d: %w", courseID, err)
	}
	return nil
}

func (db *DB) ListFavorites(ctx context.Context, userID string, limit int) ([]model.FavoriteCourse, error) {
	query := `SELECT ` + courseColumns + `, f.created_at
		FROM favorite_courses f
		JOIN courses c ON c.id = f.course_id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, f.rowid DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites of %s: %w", userID, err)
	}
	defer rows.Close()

	var (
		ptrs []*model.Course
		at   []time.Time
	)
	for rows.Next() {
		var favoritedAt time.Time
		c, err := scanCourse(rows, &favoritedAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning favorite row: %w", err)
		}
		ptrs = append(ptrs, c)
		at = append(at, favoritedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating favorites: %w", err)
	}
	rows.Close()

	if err := db.attachSites(ctx, ptrs); err != nil {
		return nil, err
	}

	favorites := make([]model.FavoriteCourse, 0, len(ptrs))
	for i, c := range ptrs {
		favorites = append(favorites, model.FavoriteCourse{Course: *c, FavoritedAt: at[i]})
	}
	return favorites, nil
}
