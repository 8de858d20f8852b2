package app

import (
	"context"
	"time"

	"github.com/circlesapp/backend/internal/auth"
	"github.com/circlesapp/backend/internal/config"
	"github.com/circlesapp/backend/internal/db"
	"github.com/circlesapp/backend/internal/handlers"
	"github.com/circlesapp/backend/internal/middleware"
	"github.com/circlesapp/backend/internal/repositories"
	"github.com/circlesapp/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	tokens := auth.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)

	deps := handlers.Dependencies{
		Credentials: repositories.NewPostgresCredentialRepository(pool, cfg.StorageTimeout),
		Profiles:    repositories.NewPostgresProfileRepository(pool, cfg.StorageTimeout),
		Connections: repositories.NewPostgresConnectionRepository(pool, cfg.StorageTimeout),
		Tokens:      tokens,
		Verifier:    tokens,
		AuthLimiter: middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
	}

	// Avatar storage is optional: without a bucket the upload endpoint
	// reports the feature unavailable and everything else works.
	if cfg.Avatars.Bucket != "" {
		avatars, err := storage.NewS3AvatarStorage(ctx, cfg.Avatars)
		if err != nil {
			return handlers.Dependencies{}, err
		}
		deps.Avatars = avatars
	}

	return deps, nil
}
