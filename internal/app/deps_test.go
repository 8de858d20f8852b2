package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/circlesapp/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		TokenSecret:    "test-secret",
		TokenTTL:       time.Hour,
		StorageTimeout: time.Second,
		Avatars:        config.ObjectStoreConfig{Bucket: "test-bucket", Endpoint: "http://localhost:9000", Region: "us-east-1"},
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Credentials == nil {
		t.Fatal("expected credential repository to be configured")
	}
	if deps.Profiles == nil {
		t.Fatal("expected profile repository to be configured")
	}
	if deps.Connections == nil {
		t.Fatal("expected connection repository to be configured")
	}
	if deps.Tokens == nil {
		t.Fatal("expected token issuer to be configured")
	}
	if deps.Verifier == nil {
		t.Fatal("expected token verifier to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
	if deps.Avatars == nil {
		t.Fatal("expected avatar storage to be configured")
	}
}

func TestBuildDependenciesWithoutAvatarBucket(t *testing.T) {
	cfg := config.Config{
		TokenSecret:    "test-secret",
		TokenTTL:       time.Hour,
		StorageTimeout: time.Second,
	}

	deps, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Avatars != nil {
		t.Fatal("expected avatar storage to be left unset")
	}
}
