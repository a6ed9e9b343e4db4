package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X.
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, nickname, email, profile_image_url, password_hash,
	is_active, is_staff, is_superuser, level, review_count, like_count, badge,
	created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a            model.Account
		email, image sql.NullString
	)
	err := row.Scan(
		&a.ID, &a.Nickname, &email, &image, &a.PasswordHash,
		&a.IsActive, &a.IsStaff, &a.IsSuperuser,
		&a.Level, &a.ReviewCount, &a.LikeCount, &a.Badge,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Email = email.String
	a.ProfileImageURL = image.String
	return &a, nil
}

func (db *DB) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return a, nil
}

// GetAccountByEmail matches email exactly. Emails are stored as received from
// the provider.
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE email = ?`, email,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", email)
		}
		return nil, fmt.Errorf("sqlite: getting account by email: %w", err)
	}
	return a, nil
}

func (db *DB) FirstAccount(ctx context.Context) (*model.Account, error) {
	a, err := scanAccount(db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users ORDER BY created_at ASC, id ASC LIMIT 1`,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", "first")
		}
		return nil, fmt.Errorf("sqlite: getting first account: %w", err)
	}
	return a, nil
}

// CreateAccount inserts the account in a single statement, so a failure
// leaves nothing behind. The caller sets ID; timestamps are set here.
//
// A UNIQUE/PRIMARY KEY failure (same id, or an email another account already
// has) comes back as apperror.Conflict so the reconciler can tell a lost
// race from a broken database.
func (db *DB) CreateAccount(ctx context.Context, a *model.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Level == 0 {
		a.Level = model.LevelFor(a.ReviewCount)
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, nickname, email, profile_image_url, password_hash,
			is_active, is_staff, is_superuser, level, review_count, like_count, badge,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Nickname, nullString(a.Email), nullString(a.ProfileImageURL), a.PasswordHash,
		a.IsActive, a.IsStaff, a.IsSuperuser, a.Level, a.ReviewCount, a.LikeCount, a.Badge,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlite: inserting account: %w", apperror.Conflict("account", a.ID))
		}
		return fmt.Errorf("sqlite: inserting account %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAccount writes only the fields present in changes.
//
// The SET clause is assembled from a fixed list of column names; values are
// always bound parameters.
func (db *DB) UpdateAccount(ctx context.Context, id string, changes model.AccountChanges) error {
	if changes.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	if changes.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, nullString(*changes.Email))
	}
	if changes.Nickname != nil {
		sets = append(sets, "nickname = ?")
		args = append(args, *changes.Nickname)
	}
	if changes.ProfileImageURL != nil {
		sets = append(sets, "profile_image_url = ?")
		args = append(args, nullString(*changes.ProfileImageURL))
	}
	if changes.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *changes.IsActive)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlite: updating account: %w", apperror.Conflict("account", id))
		}
		return fmt.Errorf("sqlite: updating account %s: %w", id, err)
	}
	return requireRow(result, "account", id)
}

func (db *DB) SetPasswordHash(ctx context.Context, id, hash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting password for account %s: %w", id, err)
	}
	return requireRow(result, "account", id)
}

// DeleteAccount removes the account. Carpools, reviews, comments, favorites
// and visit records go with it (ON DELETE CASCADE).
func (db *DB) DeleteAccount(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", id, err)
	}
	return requireRow(result, "account", id)
}

// requireRow turns "0 rows affected" into a NotFound error.
func requireRow(result sql.Result, resource, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
