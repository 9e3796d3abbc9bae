package activities

import (
	"context"

	"github.com/dmitrijs2005/featureboard/internal/server/models"
)

// Repository is append-only apart from the two bulk deletes.
type Repository interface {
	Create(ctx context.Context, a *models.Activity) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteByRequest(ctx context.Context, requestID string) (int64, error)
}
