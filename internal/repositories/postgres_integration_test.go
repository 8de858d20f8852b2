package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/circlesapp/backend/internal/models"
)

var testPool *pgxpool.Pool

const testTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		contents, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, table := range []string{"connections", "profiles", "credentials"} {
		if _, err := testPool.Exec(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}

func createAccount(t *testing.T, username string) models.Profile {
	t.Helper()
	ctx := context.Background()
	repo := NewPostgresCredentialRepository(testPool, testTimeout)

	now := time.Now().UTC()
	credential := models.Credential{
		AccountID:    uuid.NewString(),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    now,
	}
	profile := models.Profile{
		ID:           uuid.NewString(),
		AccountID:    credential.AccountID,
		Username:     username,
		FirstName:    "Test",
		ActiveStatus: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := repo.CreateWithProfile(ctx, credential, profile); err != nil {
		t.Fatalf("create account %s: %v", username, err)
	}
	return profile
}

func TestCredentialRepository_CreateWithProfile(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresCredentialRepository(testPool, testTimeout)
	profile := createAccount(t, "alice")

	credential, err := repo.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("find credential: %v", err)
	}
	if credential.AccountID != profile.AccountID {
		t.Fatalf("expected account %s got %s", profile.AccountID, credential.AccountID)
	}

	found, err := repo.ProfileByAccount(ctx, credential.AccountID)
	if err != nil {
		t.Fatalf("find profile by account: %v", err)
	}
	if found.ID != profile.ID || found.Username != "alice" {
		t.Fatalf("unexpected profile: %+v", found)
	}

	if _, err := repo.FindByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestCredentialRepository_DuplicateUsername(t *testing.T) {
	resetDatabase(t)

	repo := NewPostgresCredentialRepository(testPool, testTimeout)
	createAccount(t, "alice")

	now := time.Now().UTC()
	err := repo.CreateWithProfile(context.Background(), models.Credential{
		AccountID:    uuid.NewString(),
		Username:     "alice",
		PasswordHash: "hash",
		CreatedAt:    now,
	}, models.Profile{
		ID:        uuid.NewString(),
		AccountID: uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestCredentialRepository_TransactionLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresCredentialRepository(testPool, testTimeout)
	existing := createAccount(t, "alice")

	// Reusing an existing profile id makes the second insert fail; the
	// credential insert from the same call must be rolled back with it.
	now := time.Now().UTC()
	accountID := uuid.NewString()
	err := repo.CreateWithProfile(ctx, models.Credential{
		AccountID:    accountID,
		Username:     "bob",
		PasswordHash: "hash",
		CreatedAt:    now,
	}, models.Profile{
		ID:        existing.ID,
		AccountID: accountID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected create to fail")
	}

	if _, err := repo.FindByUsername(ctx, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected credential to be rolled back, got %v", err)
	}
}

func TestProfileRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresProfileRepository(testPool, testTimeout)
	alice := createAccount(t, "alice")
	createAccount(t, "bob")

	profiles, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list profiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles got %d", len(profiles))
	}

	alice.Bio = "updated"
	alice.Age = 31
	alice.UpdatedAt = time.Now().UTC()
	if err := repo.Update(ctx, alice); err != nil {
		t.Fatalf("update profile: %v", err)
	}

	found, err := repo.Find(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if found.Bio != "updated" || found.Age != 31 {
		t.Fatalf("unexpected profile after update: %+v", found)
	}

	if err := repo.TouchLastLogin(ctx, alice.ID); err != nil {
		t.Fatalf("touch last login: %v", err)
	}
	found, err = repo.Find(ctx, alice.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if found.LastLogin == nil {
		t.Fatal("expected last login to be set")
	}

	if err := repo.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if _, err := repo.Find(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found after delete got %v", err)
	}
	if err := repo.Delete(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on double delete got %v", err)
	}
}

func TestConnectionRepository_CreateForcesPending(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresConnectionRepository(testPool, testTimeout)
	alice := createAccount(t, "alice")
	bob := createAccount(t, "bob")

	edge, err := repo.Create(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create connection: %v", err)
	}
	if edge.Status != models.ConnectionPending {
		t.Fatalf("expected pending got %q", edge.Status)
	}

	if _, err := repo.Create(ctx, alice.ID, bob.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate got %v", err)
	}
	if _, err := repo.Create(ctx, bob.ID, alice.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for reverse edge got %v", err)
	}
	if _, err := repo.Create(ctx, alice.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown receiver got %v", err)
	}
}

func TestConnectionRepository_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresConnectionRepository(testPool, testTimeout)
	alice := createAccount(t, "alice")
	bob := createAccount(t, "bob")

	if _, err := repo.Create(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("create connection: %v", err)
	}

	if err := repo.UpdateStatus(ctx, bob.ID, alice.ID, "maybe"); !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("expected invalid status got %v", err)
	}
	if err := repo.UpdateStatus(ctx, bob.ID, alice.ID, models.ConnectionPending); !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("expected invalid status for pending target got %v", err)
	}

	if err := repo.UpdateStatus(ctx, bob.ID, alice.ID, models.ConnectionAccepted); err != nil {
		t.Fatalf("accept connection: %v", err)
	}

	edge, err := repo.Find(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("find connection: %v", err)
	}
	if edge.Status != models.ConnectionAccepted {
		t.Fatalf("expected accepted got %q", edge.Status)
	}
	if edge.RespondedAt == nil {
		t.Fatal("expected responded_at to be set")
	}

	if err := repo.UpdateStatus(ctx, bob.ID, alice.ID, models.ConnectionRejected); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected already responded got %v", err)
	}
	if err := repo.UpdateStatus(ctx, bob.ID, uuid.NewString(), models.ConnectionAccepted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestConnectionRepository_ListForReceiver(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresConnectionRepository(testPool, testTimeout)
	alice := createAccount(t, "alice")
	bob := createAccount(t, "bob")
	carol := createAccount(t, "carol")

	if _, err := repo.Create(ctx, bob.ID, alice.ID); err != nil {
		t.Fatalf("create bob edge: %v", err)
	}
	if _, err := repo.Create(ctx, carol.ID, alice.ID); err != nil {
		t.Fatalf("create carol edge: %v", err)
	}
	if err := repo.UpdateStatus(ctx, alice.ID, bob.ID, models.ConnectionAccepted); err != nil {
		t.Fatalf("accept bob edge: %v", err)
	}

	all, err := repo.ListForReceiver(ctx, alice.ID, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 edges got %d", len(all))
	}

	accepted, err := repo.ListForReceiver(ctx, alice.ID, models.ConnectionAccepted)
	if err != nil {
		t.Fatalf("list accepted: %v", err)
	}
	if len(accepted) != 1 || accepted[0].SenderID != bob.ID {
		t.Fatalf("unexpected accepted list: %+v", accepted)
	}

	if _, err := repo.ListForReceiver(ctx, alice.ID, "maybe"); !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("expected invalid status got %v", err)
	}

	none, err := repo.ListForReceiver(ctx, bob.ID, "")
	if err != nil {
		t.Fatalf("list for bob: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no edges for bob got %d", len(none))
	}
}

func TestProfileDeleteCascadesConnections(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	profiles := NewPostgresProfileRepository(testPool, testTimeout)
	connections := NewPostgresConnectionRepository(testPool, testTimeout)
	alice := createAccount(t, "alice")
	bob := createAccount(t, "bob")

	if _, err := connections.Create(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("create connection: %v", err)
	}

	if err := profiles.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	if _, err := connections.Find(ctx, bob.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected connection to cascade away, got %v", err)
	}
}
