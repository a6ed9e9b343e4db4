package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var (
	_ repository.RankingRepository = (*DB)(nil)
	_ repository.RegionRepository  = (*DB)(nil)
)

// ListRankedUsers orders active accounts by the given column and numbers them
// from 1. limit is clamped like any other listing.
func (db *DB) ListRankedUsers(ctx context.Context, sort repository.Sort, limit int) ([]model.RankedUser, error) {
	order, err := orderBy(sort, "",
		repository.ColumnLevel, repository.ColumnReviewCount, repository.ColumnLikeCount)
	if err != nil {
		return nil, err
	}
	limit, _ = limitOffset(repository.ListOptions{Limit: limit})

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, nickname, level, review_count, like_count, badge, profile_image_url
		 FROM users
		 WHERE is_active = 1`+order+` LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing rankings: %w", err)
	}
	defer rows.Close()

	ranked := make([]model.RankedUser, 0, limit)
	for rows.Next() {
		var (
			u     model.RankedUser
			image sql.NullString
		)
		if err := rows.Scan(&u.UserID, &u.Nickname, &u.Level, &u.ReviewCount,
			&u.LikeCount, &u.Badge, &image); err != nil {
			return nil, fmt.Errorf("sqlite: scanning ranking row: %w", err)
		}
		u.ProfileImage = image.String
		u.Rank = len(ranked) + 1
		ranked = append(ranked, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rankings: %w", err)
	}
	return ranked, nil
}

// =========================================================================
// VISITED REGIONS
// =========================================================================

func (db *DB) ListVisitedRegions(ctx context.Context, userID string) ([]model.VisitedRegion, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT r.code, r.name, v.visit_count, v.last_visited_at
		 FROM user_visited_regions v
		 JOIN regions r ON r.code = v.region_code
		 WHERE v.user_id = ?
		 ORDER BY r.code`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing visited regions of %s: %w", userID, err)
	}
	defer rows.Close()

	visited := []model.VisitedRegion{}
	for rows.Next() {
		var (
			v    model.VisitedRegion
			last sql.NullTime
		)
		if err := rows.Scan(&v.RegionCode, &v.RegionName, &v.VisitCount, &last); err != nil {
			return nil, fmt.Errorf("sqlite: scanning visited region row: %w", err)
		}
		if last.Valid {
			t := last.Time
			v.LastVisitedAt = &t
		}
		visited = append(visited, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating visited regions: %w", err)
	}
	return visited, nil
}

// RecordVisit upserts the visit row. An unknown region code is NotFound.
func (db *DB) RecordVisit(ctx context.Context, userID, regionCode string) error {
	var exists int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM regions WHERE code = ?`, regionCode,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("sqlite: looking up region %s: %w", regionCode, err)
	}
	if exists == 0 {
		return apperror.NotFound("region", regionCode)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO user_visited_regions (user_id, region_code, visit_count, last_visited_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT (user_id, region_code)
		 DO UPDATE SET visit_count = visit_count + 1, last_visited_at = excluded.last_visited_at`,
		userID, regionCode, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording visit to %s: %w", regionCode, err)
	}
	return nil
}
