package repositories

import (
	"context"

	"github.com/circlesapp/backend/internal/models"
)

// CredentialRepository defines data access for signup and login.
type CredentialRepository interface {
	// CreateWithProfile persists the credential and its profile in a single
	// transaction. Either both rows exist afterwards or neither does.
	CreateWithProfile(ctx context.Context, credential models.Credential, profile models.Profile) error
	FindByUsername(ctx context.Context, username string) (models.Credential, error)
	ProfileByAccount(ctx context.Context, accountID string) (models.Profile, error)
}
