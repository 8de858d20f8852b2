package handlers

import (
	"context"
	"io"

	"github.com/circlesapp/backend/internal/auth"
	"github.com/circlesapp/backend/internal/models"
)

// CredentialStore captures the persistence operations required by signup and login.
type CredentialStore interface {
	CreateWithProfile(ctx context.Context, credential models.Credential, profile models.Profile) error
	FindByUsername(ctx context.Context, username string) (models.Credential, error)
	ProfileByAccount(ctx context.Context, accountID string) (models.Profile, error)
}

// ProfileStore captures operations required by the profile handlers.
type ProfileStore interface {
	List(ctx context.Context) ([]models.Profile, error)
	Find(ctx context.Context, profileID string) (models.Profile, error)
	Update(ctx context.Context, profile models.Profile) error
	Delete(ctx context.Context, profileID string) error
	TouchLastLogin(ctx context.Context, profileID string) error
}

// ConnectionStore captures operations required by the connection handlers.
type ConnectionStore interface {
	Create(ctx context.Context, senderID, receiverID string) (models.Connection, error)
	ListForReceiver(ctx context.Context, receiverID, status string) ([]models.Connection, error)
	Find(ctx context.Context, receiverID, senderID string) (models.Connection, error)
	UpdateStatus(ctx context.Context, receiverID, senderID, status string) error
}

// TokenIssuer signs identity tokens for authenticated profiles.
type TokenIssuer interface {
	Issue(claims auth.Claims) (string, error)
}

// AvatarStore persists profile images and returns their public location.
type AvatarStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}
