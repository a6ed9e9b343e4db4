package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var _ repository.CarpoolRepository = (*DB)(nil)

const carpoolSelect = `
	SELECT c.id, c.driver_id, u.nickname, c.title, c.description, c.departure,
	       c.destination, c.departure_time, c.seats_available, c.likes, c.created_at
	FROM carpools c
	JOIN users u ON u.id = c.driver_id`

func scanCarpool(row rowScanner) (*model.Carpool, error) {
	var c model.Carpool
	if err := row.Scan(
		&c.ID, &c.DriverID, &c.DriverNickname, &c.Title, &c.Description, &c.Departure,
		&c.Destination, &c.DepartureTime, &c.SeatsAvailable, &c.Likes, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) CreateCarpool(ctx context.Context, c *model.Carpool) error {
	c.CreatedAt = time.Now().UTC()
	c.DepartureTime = utc(c.DepartureTime)

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO carpools (driver_id, title, description, departure, destination,
			departure_time, seats_available, likes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		c.DriverID, c.Title, c.Description, c.Departure, c.Destination,
		c.DepartureTime, c.SeatsAvailable, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating carpool: %w", err)
	}
	c.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading carpool id: %w", err)
	}
	c.Likes = 0
	return nil
}

func (db *DB) GetCarpool(ctx context.Context, id int64) (*model.Carpool, error) {
	c, err := scanCarpool(db.conn.QueryRowContext(ctx, carpoolSelect+` WHERE c.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("carpool", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting carpool %d: %w", id, err)
	}
	return c, nil
}

// ListCarpools filters by case-insensitive substring on departure and
// destination, then sorts and paginates.
func (db *DB) ListCarpools(ctx context.Context, f repository.CarpoolFilter) ([]model.Carpool, error) {
	order, err := orderBy(f.Sort, "c",
		repository.ColumnDepartureTime, repository.ColumnCreatedAt, repository.ColumnID)
	if err != nil {
		return nil, err
	}
	limit, offset := limitOffset(f.ListOptions)

	query := carpoolSelect + ` WHERE 1 = 1`
	var args []any
	if f.Departure != "" {
		query += ` AND LOWER(c.departure) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Departure))
	}
	if f.Destination != "" {
		query += ` AND LOWER(c.destination) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Destination))
	}
	query += order + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing carpools: %w", err)
	}
	defer rows.Close()

	carpools := make([]model.Carpool, 0, limit)
	for rows.Next() {
		c, err := scanCarpool(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning carpool row: %w", err)
		}
		carpools = append(carpools, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating carpools: %w", err)
	}
	return carpools, nil
}

func (db *DB) UpdateCarpool(ctx context.Context, c *model.Carpool) error {
	c.DepartureTime = utc(c.DepartureTime)
	result, err := db.conn.ExecContext(ctx,
		`UPDATE carpools
		 SET title = ?, description = ?, departure = ?, destination = ?,
		     departure_time = ?, seats_available = ?
		 WHERE id = ?`,
		c.Title, c.Description, c.Departure, c.Destination,
		c.DepartureTime, c.SeatsAvailable, c.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating carpool %d: %w", c.ID, err)
	}
	return requireRow(result, "carpool", strconv.FormatInt(c.ID, 10))
}

func (db *DB) DeleteCarpool(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM carpools WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting carpool %d: %w", id, err)
	}
	return requireRow(result, "carpool", strconv.FormatInt(id, 10))
}

// AdjustCarpoolLikes updates the counter in one statement; MAX(..., 0) keeps
// concurrent unlikes from driving it negative.
func (db *DB) AdjustCarpoolLikes(ctx context.Context, id int64, delta int) (int, error) {
	var likes int
	err := db.conn.QueryRowContext(ctx,
		`UPDATE carpools SET likes = MAX(likes + ?, 0) WHERE id = ? RETURNING likes`,
		delta, id,
	).Scan(&likes)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("carpool", strconv.FormatInt(id, 10))
		}
		return 0, fmt.Errorf("sqlite: adjusting likes on carpool %d: %w", id, err)
	}
	return likes, nil
}

// =========================================================================
// COMMENTS
// =========================================================================

const carpoolCommentSelect = `
	SELECT cc.id, cc.carpool_id, cc.author_id, u.nickname, cc.content, cc.created_at
	FROM carpool_comments cc
	JOIN users u ON u.id = cc.author_id`

func scanCarpoolComment(row rowScanner) (*model.CarpoolComment, error) {
	var c model.CarpoolComment
	if err := row.Scan(&c.ID, &c.CarpoolID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (db *DB) CreateCarpoolComment(ctx context.Context, c *model.CarpoolComment) error {
	c.CreatedAt = time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO carpool_comments (carpool_id, author_id, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		c.CarpoolID, c.AuthorID, c.Content, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on carpool %d: %w", c.CarpoolID, err)
	}
	c.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading comment id: %w", err)
	}
	return nil
}

func (db *DB) GetCarpoolComment(ctx context.Context, carpoolID, commentID int64) (*model.CarpoolComment, error) {
	c, err := scanCarpoolComment(db.conn.QueryRowContext(ctx,
		carpoolCommentSelect+` WHERE cc.id = ? AND cc.carpool_id = ?`, commentID, carpoolID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", strconv.FormatInt(commentID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting comment %d: %w", commentID, err)
	}
	return c, nil
}

// ListCarpoolComments returns the comments newest first.
func (db *DB) ListCarpoolComments(ctx context.Context, carpoolID int64) ([]model.CarpoolComment, error) {
	rows, err := db.conn.QueryContext(ctx,
		carpoolCommentSelect+` WHERE cc.carpool_id = ? ORDER BY cc.created_at DESC, cc.id DESC`,
		carpoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments on carpool %d: %w", carpoolID, err)
	}
	defer rows.Close()

	comments := []model.CarpoolComment{}
	for rows.Next() {
		c, err := scanCarpoolComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

func (db *DB) DeleteCarpoolComment(ctx context.Context, carpoolID, commentID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM carpool_comments WHERE id = ? AND carpool_id = ?`, commentID, carpoolID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %d: %w", commentID, err)
	}
	return requireRow(result, "comment", strconv.FormatInt(commentID, 10))
}
