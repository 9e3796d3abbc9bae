package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetSystemUser returns the SYSTEM account, whatever email it carries.
	GetSystemUser(ctx context.Context) (*models.User, error)
	UpsertSystemUser(ctx context.Context, id, name, email string) (*models.User, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}
