// Package votes provides the PostgreSQL repository for votes. A vote is a
// (user_id, request_id) row; the primary key on the pair is the double-vote
// guard.
package votes

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID, requestID string) (bool, error) {
	query :=
		`INSERT INTO votes (user_id, request_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, request_id) DO NOTHING`

	n, err := r.execCount(ctx, query, userID, requestID)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return false, fmt.Errorf("%w: %w", common.ErrorNotFound, err)
		}
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, requestID string) (bool, error) {
	query := `DELETE FROM votes WHERE user_id = $1 AND request_id = $2`

	n, err := r.execCount(ctx, query, userID, requestID)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID, requestID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM votes WHERE user_id = $1 AND request_id = $2)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, userID, requestID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) CountByRequest(ctx context.Context, requestID string) (int, error) {
	query := `SELECT COUNT(*) FROM votes WHERE request_id = $1`

	var n int
	if err := r.db.QueryRowContext(ctx, query, requestID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByRequests(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	for _, id := range ids {
		counts[id] = 0
	}

	query :=
		`SELECT request_id, COUNT(*)
		 FROM votes
		 WHERE request_id = ANY($1)
		 GROUP BY request_id`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) ReassignVoter(ctx context.Context, fromID, toID string, requestIDs []string) (int64, error) {
	if len(requestIDs) == 0 {
		return 0, nil
	}
	query :=
		`UPDATE votes SET user_id = $2
		 WHERE user_id = $1
		   AND request_id = ANY($3)
		   AND NOT EXISTS (SELECT 1 FROM votes s WHERE s.user_id = $2 AND s.request_id = votes.request_id)
		   AND NOT EXISTS (SELECT 1 FROM feature_requests fr WHERE fr.id = votes.request_id AND fr.owner_id = $2)`

	return r.execCount(ctx, query, fromID, toID, requestIDs)
}

func (r *PostgresRepository) DeleteByVoter(ctx context.Context, voterID string) (int64, error) {
	query := `DELETE FROM votes WHERE user_id = $1`
	return r.execCount(ctx, query, voterID)
}

func (r *PostgresRepository) DeleteByVoterOnRequests(ctx context.Context, voterID string, requestIDs []string) (int64, error) {
	if len(requestIDs) == 0 {
		return 0, nil
	}
	query := `DELETE FROM votes WHERE user_id = $1 AND request_id = ANY($2)`
	return r.execCount(ctx, query, voterID, requestIDs)
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
