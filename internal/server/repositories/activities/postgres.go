// Package activities provides the PostgreSQL repository for the activity log.
package activities

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends a. A deleted activity must carry a title snapshot and no
// request id; the table's check constraint rejects anything else.
func (r *PostgresRepository) Create(ctx context.Context, a *models.Activity) error {
	query :=
		`INSERT INTO activities (id, type, user_id, request_id, title_snapshot)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, a.ID, string(a.Type), a.UserID, a.RequestID, a.TitleSnapshot).
		Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	query := `DELETE FROM activities WHERE user_id = $1`
	return r.execCount(ctx, query, userID)
}

func (r *PostgresRepository) DeleteByRequest(ctx context.Context, requestID string) (int64, error) {
	query := `DELETE FROM activities WHERE request_id = $1`
	return r.execCount(ctx, query, requestID)
}

func (r *PostgresRepository) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}
