package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var _ repository.ReviewRepository = (*DB)(nil)

const reviewSelect = `
	SELECT r.id, r.author_id, u.nickname, r.title, r.content, r.region, r.place,
	       r.likes, r.views, r.created_at
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

func scanReview(row rowScanner) (*model.Review, error) {
	var r model.Review
	if err := row.Scan(
		&r.ID, &r.AuthorID, &r.Author, &r.Title, &r.Content, &r.Region, &r.Place,
		&r.Likes, &r.Views, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReview inserts the review and credits the author in one transaction.
// level is recomputed from the new review count in the same UPDATE (SQLite
// evaluates every SET expression against the old row).
func (db *DB) CreateReview(ctx context.Context, r *model.Review) error {
	r.CreatedAt = time.Now().UTC()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO reviews (author_id, title, content, region, place, likes, views, created_at)
			 VALUES (?, ?, ?, ?, ?, 0, 0, ?)`,
			r.AuthorID, r.Title, r.Content, r.Region, r.Place, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: creating review: %w", err)
		}
		if r.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: reading review id: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users
			 SET review_count = review_count + 1,
			     level = 1 + (review_count + 1) / 5
			 WHERE id = ?`,
			r.AuthorID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: crediting review to %s: %w", r.AuthorID, err)
		}
		return nil
	})
}

func (db *DB) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	r, err := scanReview(db.conn.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("review", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting review %d: %w", id, err)
	}
	return r, nil
}

func (db *DB) ViewReview(ctx context.Context, id int64) (*model.Review, error) {
	result, err := db.conn.ExecContext(ctx, `UPDATE reviews SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting view on review %d: %w", id, err)
	}
	if err := requireRow(result, "review", strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	return db.GetReview(ctx, id)
}

func (db *DB) ListReviews(ctx context.Context, f repository.ReviewFilter) ([]model.Review, error) {
	order, err := orderBy(f.Sort, "r",
		repository.ColumnCreatedAt, repository.ColumnLikes, repository.ColumnViews, repository.ColumnID)
	if err != nil {
		return nil, err
	}
	limit, offset := limitOffset(f.ListOptions)

	query := reviewSelect + ` WHERE 1 = 1`
	var args []any
	if f.Title != "" {
		query += ` AND LOWER(r.title) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Title))
	}
	if f.Author != "" {
		query += ` AND LOWER(u.nickname) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Author))
	}
	if f.Region != "" {
		query += ` AND LOWER(r.region) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, likePattern(f.Region))
	}
	query += order + ` LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0, limit)
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning review row: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reviews: %w", err)
	}
	return reviews, nil
}

func (db *DB) UpdateReview(ctx context.Context, r *model.Review) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE reviews SET title = ?, content = ?, region = ?, place = ? WHERE id = ?`,
		r.Title, r.Content, r.Region, r.Place, r.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating review %d: %w", r.ID, err)
	}
	return requireRow(result, "review", strconv.FormatInt(r.ID, 10))
}

// DeleteReview removes the review and takes the credit back from its author,
// never below zero.
func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var authorID string
		err := tx.QueryRowContext(ctx,
			`DELETE FROM reviews WHERE id = ? RETURNING author_id`, id,
		).Scan(&authorID)
		if err != nil {
			if err == sql.ErrNoRows {
				return apperror.NotFound("review", strconv.FormatInt(id, 10))
			}
			return fmt.Errorf("sqlite: deleting review %d: %w", id, err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users
			 SET review_count = MAX(review_count - 1, 0),
			     level = 1 + MAX(review_count - 1, 0) / 5
			 WHERE id = ?`,
			authorID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: debiting review from %s: %w", authorID, err)
		}
		return nil
	})
}

// AdjustReviewLikes clamps the review's counter at zero and moves the
// author's like count by the amount the review counter actually changed, so an
// unlike at zero touches neither.
//
// The first statement is the UPDATE so the transaction takes the write lock
// before it reads anything. A transaction that reads first cannot be
// upgraded under WAL once another writer commits, and fails with SQLITE_BUSY
// regardless of busy_timeout.
func (db *DB) AdjustReviewLikes(ctx context.Context, id int64, delta int) (int, error) {
	var likes int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var authorID string
		applied := delta
		err := tx.QueryRowContext(ctx,
			`UPDATE reviews SET likes = likes + ? WHERE id = ? AND likes + ? >= 0
			 RETURNING likes, author_id`,
			delta, id, delta,
		).Scan(&likes, &authorID)
		if errors.Is(err, sql.ErrNoRows) {
			// Either the review is missing or the change would go below zero.
			var before int
			err = tx.QueryRowContext(ctx,
				`SELECT likes, author_id FROM reviews WHERE id = ?`, id,
			).Scan(&before, &authorID)
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("review", strconv.FormatInt(id, 10))
			}
			if err != nil {
				return fmt.Errorf("sqlite: reading likes of review %d: %w", id, err)
			}
			likes, applied = 0, -before
			if applied != 0 {
				if _, err := tx.ExecContext(ctx,
					`UPDATE reviews SET likes = 0 WHERE id = ?`, id,
				); err != nil {
					return fmt.Errorf("sqlite: clearing likes of review %d: %w", id, err)
				}
			}
		} else if err != nil {
			return fmt.Errorf("sqlite: updating likes of review %d: %w", id, err)
		}

		if applied == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET like_count = MAX(like_count + ?, 0) WHERE id = ?`,
			applied, authorID,
		); err != nil {
			return fmt.Errorf("sqlite: updating like count of %s: %w", authorID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return likes, nil
}

// =========================================================================
// COMMENTS
// =========================================================================

func (db *DB) CreateReviewComment(ctx context.Context, c *model.ReviewComment) error {
	c.CreatedAt = time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO review_comments (review_id, author_id, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		c.ReviewID, c.AuthorID, c.Content, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment on review %d: %w", c.ReviewID, err)
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("sqlite: reading comment id: %w", err)
	}
	return nil
}

// ListReviewComments returns comments oldest first, the order a thread reads.
func (db *DB) ListReviewComments(ctx context.Context, reviewID int64) ([]model.ReviewComment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT rc.id, rc.review_id, rc.author_id, u.nickname, rc.content, rc.created_at
		 FROM review_comments rc
		 JOIN users u ON u.id = rc.author_id
		 WHERE rc.review_id = ?
		 ORDER BY rc.created_at ASC, rc.id ASC`,
		reviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments on review %d: %w", reviewID, err)
	}
	defer rows.Close()

	comments := []model.ReviewComment{}
	for rows.Next() {
		var c model.ReviewComment
		if err := rows.Scan(&c.ID, &c.ReviewID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}
