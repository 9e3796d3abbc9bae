package requests

import (
	"context"

	"github.com/dmitrijs2005/featureboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, req *models.FeatureRequest) error
	GetByID(ctx context.Context, id string) (*models.FeatureRequest, error)

	// GetForUpdate and GetForShare return the row locked until the end of the
	// surrounding transaction. Outside a transaction the lock is released
	// immediately.
	GetForUpdate(ctx context.Context, id string) (*models.FeatureRequest, error)
	GetForShare(ctx context.Context, id string) (*models.FeatureRequest, error)

	UpdateContent(ctx context.Context, id, title, description string) error
	UpdateStatus(ctx context.Context, id string, status models.Status) error
	Delete(ctx context.Context, id string) error

	// LockByOwner locks every request owned by ownerID and returns their ids.
	LockByOwner(ctx context.Context, ownerID string) ([]string, error)
	// LockVotedBy locks every request voterID has voted on and returns their ids.
	LockVotedBy(ctx context.Context, voterID string) ([]string, error)

	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	// ReassignOwner moves ids to newOwnerID and appends suffix to each description.
	ReassignOwner(ctx context.Context, ids []string, newOwnerID, suffix string) (int64, error)
}
