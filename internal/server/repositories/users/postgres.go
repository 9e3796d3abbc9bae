// Package users provides the PostgreSQL repository for board members,
// including the idempotent upsert of the sentinel system account.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
)

// userColumns must match the Scan order in scanUser.
const userColumns = `id, name, email, password_hash, verified_at, role, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u        models.User
		hash     sql.NullString
		verified sql.NullTime
		role     string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &hash, &verified, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if hash.Valid {
		u.PasswordHash = &hash.String
	}
	if verified.Valid {
		u.VerifiedAt = &verified.Time
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Role = r
	return &u, nil
}

// Create inserts user. A taken email yields common.ErrAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (id, name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, string(user.Role)).Scan(&user.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetSystemUser looks the sentinel up by role. The partial unique index on
// role = 'SYSTEM' guarantees at most one row.
func (r *PostgresRepository) GetSystemUser(ctx context.Context) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = 'SYSTEM'`
	return scanUser(r.db.QueryRowContext(ctx, query))
}

// UpsertSystemUser returns the account registered under the reserved email,
// creating it on first use. The unique constraint on email makes concurrent
// first-time calls converge on a single row; id is used only when inserting.
// The no-op DO UPDATE makes RETURNING yield the existing row.
func (r *PostgresRepository) UpsertSystemUser(ctx context.Context, id, name, email string) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, role)
		 VALUES ($1, $2, $3, 'SYSTEM')
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, id, name, email))
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET verified_at = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, at)
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	query := `UPDATE users SET password_hash = $2 WHERE id = $1`
	return r.execOne(ctx, query, id, hash)
}

// Delete removes the user row. Rows still referencing the user make the
// statement fail, which aborts the surrounding transaction.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
