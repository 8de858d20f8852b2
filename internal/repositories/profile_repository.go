package repositories

import (
	"context"

	"github.com/circlesapp/backend/internal/models"
)

// ProfileRepository defines the data access contract for profiles.
type ProfileRepository interface {
	List(ctx context.Context) ([]models.Profile, error)
	Find(ctx context.Context, profileID string) (models.Profile, error)
	Update(ctx context.Context, profile models.Profile) error
	Delete(ctx context.Context, profileID string) error
	TouchLastLogin(ctx context.Context, profileID string) error
}
