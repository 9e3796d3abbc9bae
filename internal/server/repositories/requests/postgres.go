// Package requests provides the PostgreSQL repository for feature requests.
package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
)

const requestColumns = `id, title, description, status, owner_id, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanRequest(row *sql.Row) (*models.FeatureRequest, error) {
	var (
		fr     models.FeatureRequest
		status string
	)
	err := row.Scan(&fr.ID, &fr.Title, &fr.Description, &status, &fr.OwnerID, &fr.CreatedAt, &fr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	fr.Status = st
	return &fr, nil
}

func (r *PostgresRepository) Create(ctx context.Context, req *models.FeatureRequest) error {
	query :=
		`INSERT INTO feature_requests (id, title, description, status, owner_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, req.ID, req.Title, req.Description, string(req.Status), req.OwnerID).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return fmt.Errorf("owner %s: %w", req.OwnerID, common.ErrorNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FeatureRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM feature_requests WHERE id = $1`
	return scanRequest(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.FeatureRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM feature_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetForShare(ctx context.Context, id string) (*models.FeatureRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM feature_requests WHERE id = $1 FOR SHARE`
	return scanRequest(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, id, title, description string) error {
	query :=
		`UPDATE feature_requests
		 SET title = $2, description = $3, updated_at = NOW()
		 WHERE id = $1`
	return r.execOne(ctx, query, id, title, description)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	query :=
		`UPDATE feature_requests
		 SET status = $2, updated_at = NOW()
		 WHERE id = $1`
	return r.execOne(ctx, query, id, string(status))
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM feature_requests WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *PostgresRepository) LockByOwner(ctx context.Context, ownerID string) ([]string, error) {
	query := `SELECT id FROM feature_requests WHERE owner_id = $1 ORDER BY id FOR UPDATE`
	return r.queryIDs(ctx, query, ownerID)
}

// LockVotedBy takes FOR UPDATE on the requests, which also blocks concurrent
// vote inserts against them (the votes foreign key check needs a key-share
// lock on the request row).
func (r *PostgresRepository) LockVotedBy(ctx context.Context, voterID string) ([]string, error) {
	query :=
		`SELECT r.id
		 FROM feature_requests r
		 JOIN votes v ON v.request_id = r.id
		 WHERE v.user_id = $1
		 ORDER BY r.id
		 FOR UPDATE OF r`
	return r.queryIDs(ctx, query, voterID)
}

func (r *PostgresRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM feature_requests WHERE id = ANY($1)`
	return r.execCount(ctx, query, ids)
}

func (r *PostgresRepository) ReassignOwner(ctx context.Context, ids []string, newOwnerID, suffix string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query :=
		`UPDATE feature_requests
		 SET owner_id = $2, description = description || $3, updated_at = NOW()
		 WHERE id = ANY($1)`
	return r.execCount(ctx, query, ids, newOwnerID, suffix)
}

func (r *PostgresRepository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
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

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	n, err := r.execCount(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
