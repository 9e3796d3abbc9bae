package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/auth"
	"github.com/dmitrijs2005/featureboard/internal/server/config"
	"github.com/dmitrijs2005/featureboard/internal/server/metrics"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/repomanager"
	usersrepo "github.com/dmitrijs2005/featureboard/internal/server/repositories/users"
	"github.com/google/uuid"
)

const (
	// RequestKeepThreshold is the vote count at which a departing owner's
	// request is handed to the system user instead of being deleted.
	RequestKeepThreshold = 2
	// VoteKeepThreshold is the total vote count a request needs before a
	// departing voter's vote on it is handed to the system user.
	VoteKeepThreshold = 3

	// OrphanedDescriptionSuffix is appended to requests whose creator
	// deleted their account.
	OrphanedDescriptionSuffix = "\n\n[The original author of this request has deleted their account.]"
)

// AccountService deletes user accounts while preserving content other users
// depend on.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
	log         logging.Logger
	metrics     *metrics.Metrics
	systemEmail string
	systemName  string
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher,
	cfg *config.Config, log logging.Logger, mt *metrics.Metrics) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		log:         log.With("module", "accounts"),
		metrics:     mt,
		systemEmail: cfg.SystemUserEmail,
		systemName:  cfg.SystemUserName,
	}
}

// DeleteAccount removes userID after re-checking password.
//
// In one transaction it:
//   - gets or creates the system user;
//   - deletes the user's requests with fewer than RequestKeepThreshold votes
//     and reassigns the rest to the system user with OrphanedDescriptionSuffix;
//   - reassigns the user's votes on requests with at least VoteKeepThreshold
//     votes to the system user and deletes the others;
//   - deletes the user's activities and then the user.
//
// Vote counts are read after the affected request rows are locked, so a vote
// arriving concurrently cannot move a request across a threshold unseen.
// Any failure inside the transaction is reported as
// common.ErrTransactionFailure and leaves everything untouched.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, password string) error {
	err := s.deleteAccount(ctx, userID, password)
	s.metrics.AccountDeleted(deletionResult(err))
	return err
}

func (s *AccountService) deleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		err = storeError(err)
		logUnexpected(ctx, s.log, "load user failed", err, "user_id", userID)
		return err
	}
	if user.IsSystem() {
		return common.ErrForbidden
	}
	if user.PasswordHash == nil {
		return common.ErrorNotFound
	}
	if !s.hasher.Verify(*user.PasswordHash, password) {
		return common.ErrWrongPassword
	}

	start := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.purge(ctx, tx, userID)
	})
	if err != nil {
		if errors.Is(err, dbx.ErrBegin) {
			err = fmt.Errorf("%w: %w", common.ErrInfrastructure, err)
		} else {
			err = fmt.Errorf("%w: %w", common.ErrTransactionFailure, err)
		}
		s.log.Error(ctx, "account deletion failed", "user_id", userID, "error", err)
		return err
	}

	s.metrics.ObserveTx("delete_account", start)
	s.log.Info(ctx, "account deleted", "user_id", userID)
	return nil
}

func (s *AccountService) purge(ctx context.Context, tx dbx.DBTX, userID string) error {
	users := s.repomanager.Users(tx)
	requests := s.repomanager.Requests(tx)
	votes := s.repomanager.Votes(tx)

	system, err := s.resolveSystemUser(ctx, users)
	if err != nil {
		return fmt.Errorf("resolve system user: %w", err)
	}

	owned, err := requests.LockByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("lock owned requests: %w", err)
	}
	ownedVotes, err := votes.CountByRequests(ctx, owned)
	if err != nil {
		return fmt.Errorf("count owned request votes: %w", err)
	}
	drop, keep := partition(owned, ownedVotes, RequestKeepThreshold)
	if _, err := requests.DeleteByIDs(ctx, drop); err != nil {
		return fmt.Errorf("delete requests: %w", err)
	}
	if _, err := requests.ReassignOwner(ctx, keep, system.ID, OrphanedDescriptionSuffix); err != nil {
		return fmt.Errorf("reassign requests: %w", err)
	}
	// The system user now owns keep and must not also vote on it.
	if _, err := votes.DeleteByVoterOnRequests(ctx, system.ID, keep); err != nil {
		return fmt.Errorf("drop system votes on reassigned requests: %w", err)
	}

	voted, err := requests.LockVotedBy(ctx, userID)
	if err != nil {
		return fmt.Errorf("lock voted requests: %w", err)
	}
	totals, err := votes.CountByRequests(ctx, voted)
	if err != nil {
		return fmt.Errorf("count voted request votes: %w", err)
	}
	_, loadBearing := partition(voted, totals, VoteKeepThreshold)
	if _, err := votes.ReassignVoter(ctx, userID, system.ID, loadBearing); err != nil {
		return fmt.Errorf("reassign votes: %w", err)
	}
	// Whatever was not reassigned, including votes the system user already
	// holds on the same request, is removed here.
	if _, err := votes.DeleteByVoter(ctx, userID); err != nil {
		return fmt.Errorf("delete votes: %w", err)
	}

	if _, err := s.repomanager.Activities(tx).DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete activities: %w", err)
	}
	if err := users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// resolveSystemUser finds the SYSTEM account by role and creates it under
// the configured email only when none exists yet. The configured email is
// therefore used once; changing it later does not create a second sentinel.
func (s *AccountService) resolveSystemUser(ctx context.Context, users usersrepo.Repository) (*models.User, error) {
	system, err := users.GetSystemUser(ctx)
	if err == nil {
		return system, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	system, err = users.UpsertSystemUser(ctx, uuid.NewString(), s.systemName, s.systemEmail)
	if err != nil {
		return nil, err
	}
	if !system.IsSystem() {
		return nil, fmt.Errorf("reserved email %q belongs to a %s account", s.systemEmail, system.Role)
	}
	return system, nil
}

// partition splits ids by whether counts[id] reaches threshold. Order of ids
// is preserved in both halves.
func partition(ids []string, counts map[string]int, threshold int) (below, atOrAbove []string) {
	for _, id := range ids {
		if counts[id] >= threshold {
			atOrAbove = append(atOrAbove, id)
		} else {
			below = append(below, id)
		}
	}
	return below, atOrAbove
}

func deletionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrTransactionFailure):
		return "transaction_failure"
	case errors.Is(err, common.ErrInfrastructure):
		return "infrastructure"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	default:
		return "error"
	}
}
