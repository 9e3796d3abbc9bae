package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/metrics"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// VoteService toggles a voter's support for a request.
type VoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewVoteService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger, mt *metrics.Metrics) *VoteService {
	return &VoteService{db: db, repomanager: m, log: log.With("module", "votes"), metrics: mt}
}

// ToggleVote adds voterID's vote on requestID, or removes it if present, and
// appends the matching activity in the same transaction.
//
// The request row is share-locked for the duration, so an owner edit or
// deletion cannot interleave. A concurrent toggle by the same voter that
// wins the race turns this call into a no-op that reports the state the
// winner produced.
func (s *VoteService) ToggleVote(ctx context.Context, voterID, requestID string) (models.VoteAction, error) {
	var action models.VoteAction
	start := time.Now()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		req, err := s.repomanager.Requests(tx).GetForShare(ctx, requestID)
		if err != nil {
			return err
		}
		if req.OwnerID == voterID {
			return common.ErrSelfVote
		}

		votes := s.repomanager.Votes(tx)
		exists, err := votes.Exists(ctx, voterID, requestID)
		if err != nil {
			return err
		}

		var (
			changed bool
			kind    models.ActivityType
		)
		if exists {
			action, kind = models.VoteRemoved, models.ActivityUnvoted
			changed, err = votes.Delete(ctx, voterID, requestID)
		} else {
			action, kind = models.VoteAdded, models.ActivityVoted
			changed, err = votes.Create(ctx, voterID, requestID)
		}
		if err != nil || !changed {
			return err
		}

		return s.repomanager.Activities(tx).Create(ctx, &models.Activity{
			ID:        uuid.NewString(),
			Type:      kind,
			UserID:    voterID,
			RequestID: &requestID,
		})
	})
	if err = txError(err); err != nil {
		logUnexpected(ctx, s.log, "toggle vote failed", err, "request_id", requestID, "user_id", voterID)
		return "", err
	}

	s.metrics.ObserveTx("toggle_vote", start)
	s.metrics.VoteToggled(string(action))
	s.log.Debug(ctx, "vote toggled", "request_id", requestID, "user_id", voterID, "action", action)
	return action, nil
}
