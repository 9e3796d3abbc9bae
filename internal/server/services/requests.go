package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/dmitrijs2005/featureboard/internal/dbx"
	"github.com/dmitrijs2005/featureboard/internal/logging"
	"github.com/dmitrijs2005/featureboard/internal/server/metrics"
	"github.com/dmitrijs2005/featureboard/internal/server/models"
	"github.com/dmitrijs2005/featureboard/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RequestService creates feature requests and guards their mutation.
//
// Once a request has at least one vote its title and description are frozen
// and its owner can no longer delete it. Status is a separate, admin-only
// concern and is not subject to that rule.
type RequestService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	metrics     *metrics.Metrics
}

func NewRequestService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger, mt *metrics.Metrics) *RequestService {
	return &RequestService{db: db, repomanager: m, log: log.With("module", "requests"), metrics: mt}
}

func validateContent(title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if n := utf8.RuneCountInString(title); n == 0 || n > models.MaxTitleLength {
		return "", "", fmt.Errorf("%w: title must be 1..%d characters", common.ErrValidation, models.MaxTitleLength)
	}
	if utf8.RuneCountInString(description) > models.MaxDescriptionLength {
		return "", "", fmt.Errorf("%w: description must be at most %d characters", common.ErrValidation, models.MaxDescriptionLength)
	}
	return title, description, nil
}

// checkMutable applies the guard rules after existence has been established:
// ownership first, then the vote count.
func checkMutable(req *models.FeatureRequest, actorID string, votes int) error {
	if req.OwnerID != actorID {
		return common.ErrNotOwner
	}
	if votes > 0 {
		return common.ErrHasVotes
	}
	return nil
}

func guardOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, common.ErrHasVotes):
		return "has_votes"
	default:
		return "error"
	}
}

// Create stores a new PENDING request owned by ownerID and logs a created
// activity.
func (s *RequestService) Create(ctx context.Context, ownerID, title, description string) (*models.FeatureRequest, error) {
	title, description, err := validateContent(title, description)
	if err != nil {
		return nil, err
	}

	req := &models.FeatureRequest{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      models.StatusPending,
		OwnerID:     ownerID,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Requests(tx).Create(ctx, req); err != nil {
			return err
		}
		return s.repomanager.Activities(tx).Create(ctx, &models.Activity{
			ID:        uuid.NewString(),
			Type:      models.ActivityCreated,
			UserID:    ownerID,
			RequestID: &req.ID,
		})
	})
	if err = txError(err); err != nil {
		logUnexpected(ctx, s.log, "create request failed", err, "user_id", ownerID)
		return nil, err
	}
	return req, nil
}

// Get returns the request and its current vote count.
func (s *RequestService) Get(ctx context.Context, requestID string) (*models.FeatureRequest, int, error) {
	req, err := s.repomanager.Requests(s.db).GetByID(ctx, requestID)
	if err != nil {
		return nil, 0, storeError(err)
	}
	votes, err := s.repomanager.Votes(s.db).CountByRequest(ctx, requestID)
	if err != nil {
		return nil, 0, storeError(err)
	}
	return req, votes, nil
}

// AuthorizeEdit reports whether actorID may currently change the request's
// title and description. The answer is advisory; Edit re-checks under a lock.
func (s *RequestService) AuthorizeEdit(ctx context.Context, actorID, requestID string) error {
	err := s.authorize(ctx, actorID, requestID)
	s.metrics.GuardDecision("edit", guardOutcome(err))
	return err
}

// AuthorizeDelete applies the same rules as AuthorizeEdit. Admins get no
// override here; their only privileged mutation is UpdateStatus.
func (s *RequestService) AuthorizeDelete(ctx context.Context, actorID, requestID string) error {
	err := s.authorize(ctx, actorID, requestID)
	s.metrics.GuardDecision("delete", guardOutcome(err))
	return err
}

func (s *RequestService) authorize(ctx context.Context, actorID, requestID string) error {
	req, err := s.repomanager.Requests(s.db).GetByID(ctx, requestID)
	if err != nil {
		return storeError(err)
	}
	if req.OwnerID != actorID {
		return common.ErrNotOwner
	}
	votes, err := s.repomanager.Votes(s.db).CountByRequest(ctx, requestID)
	if err != nil {
		return storeError(err)
	}
	return checkMutable(req, actorID, votes)
}

// lockMutable loads and locks the request inside tx and applies the guard.
func (s *RequestService) lockMutable(ctx context.Context, tx dbx.DBTX, actorID, requestID string) (*models.FeatureRequest, error) {
	req, err := s.repomanager.Requests(tx).GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OwnerID != actorID {
		return nil, common.ErrNotOwner
	}
	votes, err := s.repomanager.Votes(tx).CountByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := checkMutable(req, actorID, votes); err != nil {
		return nil, err
	}
	return req, nil
}

// Edit replaces title and description and logs an edited activity.
func (s *RequestService) Edit(ctx context.Context, actorID, requestID, title, description string) (*models.FeatureRequest, error) {
	title, description, err := validateContent(title, description)
	if err != nil {
		return nil, err
	}

	var updated *models.FeatureRequest
	start := time.Now()
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.lockMutable(ctx, tx, actorID, requestID); err != nil {
			return err
		}
		requests := s.repomanager.Requests(tx)
		if err := requests.UpdateContent(ctx, requestID, title, description); err != nil {
			return err
		}
		if err := s.repomanager.Activities(tx).Create(ctx, &models.Activity{
			ID:        uuid.NewString(),
			Type:      models.ActivityEdited,
			UserID:    actorID,
			RequestID: &requestID,
		}); err != nil {
			return err
		}
		var err error
		updated, err = requests.GetByID(ctx, requestID)
		return err
	})
	s.metrics.GuardDecision("edit", guardOutcome(err))
	if err = txError(err); err != nil {
		logUnexpected(ctx, s.log, "edit request failed", err, "request_id", requestID)
		return nil, err
	}
	s.metrics.ObserveTx("edit_request", start)
	return updated, nil
}

// Delete removes the request. The deleted activity keeps only a snapshot of
// the title; every other activity on the request goes with it.
func (s *RequestService) Delete(ctx context.Context, actorID, requestID string) error {
	start := time.Now()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		req, err := s.lockMutable(ctx, tx, actorID, requestID)
		if err != nil {
			return err
		}

		activities := s.repomanager.Activities(tx)
		title := req.Title
		if err := activities.Create(ctx, &models.Activity{
			ID:            uuid.NewString(),
			Type:          models.ActivityDeleted,
			UserID:        actorID,
			TitleSnapshot: &title,
		}); err != nil {
			return err
		}
		if _, err := activities.DeleteByRequest(ctx, requestID); err != nil {
			return err
		}
		return s.repomanager.Requests(tx).Delete(ctx, requestID)
	})
	s.metrics.GuardDecision("delete", guardOutcome(err))
	if err = txError(err); err != nil {
		logUnexpected(ctx, s.log, "delete request failed", err, "request_id", requestID)
		return err
	}
	s.metrics.ObserveTx("delete_request", start)
	s.log.Info(ctx, "request deleted", "request_id", requestID, "user_id", actorID)
	return nil
}

// UpdateStatus sets the triage status. Only admins may do this, and it is
// allowed regardless of votes.
func (s *RequestService) UpdateStatus(ctx context.Context, actor models.Actor, requestID, status string) error {
	if actor.Role != models.RoleAdmin {
		return common.ErrForbidden
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return fmt.Errorf("%w: %q", common.ErrInvalidStatus, status)
	}
	if err := s.repomanager.Requests(s.db).UpdateStatus(ctx, requestID, st); err != nil {
		err = storeError(err)
		logUnexpected(ctx, s.log, "update status failed", err, "request_id", requestID)
		return err
	}
	s.log.Info(ctx, "request status changed", "request_id", requestID, "status", st, "admin_id", actor.ID)
	return nil
}
