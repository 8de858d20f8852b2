package handlers

import (
	"bytes"
	"context"
	"io"
	"sort"
	"time"

	"github.com/circlesapp/backend/internal/models"
	"github.com/circlesapp/backend/internal/repositories"
)

type inMemoryStore struct {
	credentials map[string]models.Credential
	profiles    map[string]models.Profile
	connections map[[2]string]models.Connection
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{
		credentials: make(map[string]models.Credential),
		profiles:    make(map[string]models.Profile),
		connections: make(map[[2]string]models.Connection),
	}
}

func (s *inMemoryStore) CreateWithProfile(_ context.Context, credential models.Credential, profile models.Profile) error {
	if _, exists := s.credentials[credential.Username]; exists {
		return repositories.ErrConflict
	}
	s.credentials[credential.Username] = credential
	s.profiles[profile.ID] = profile
	return nil
}

func (s *inMemoryStore) FindByUsername(_ context.Context, username string) (models.Credential, error) {
	credential, ok := s.credentials[username]
	if !ok {
		return models.Credential{}, repositories.ErrNotFound
	}
	return credential, nil
}

func (s *inMemoryStore) ProfileByAccount(_ context.Context, accountID string) (models.Profile, error) {
	for _, profile := range s.profiles {
		if profile.AccountID == accountID {
			return profile, nil
		}
	}
	return models.Profile{}, repositories.ErrNotFound
}

func (s *inMemoryStore) List(_ context.Context) ([]models.Profile, error) {
	out := make([]models.Profile, 0, len(s.profiles))
	for _, profile := range s.profiles {
		out = append(out, profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *inMemoryStore) Find(_ context.Context, profileID string) (models.Profile, error) {
	profile, ok := s.profiles[profileID]
	if !ok {
		return models.Profile{}, repositories.ErrNotFound
	}
	return profile, nil
}

func (s *inMemoryStore) Update(_ context.Context, profile models.Profile) error {
	if _, ok := s.profiles[profile.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.profiles[profile.ID] = profile
	return nil
}

func (s *inMemoryStore) Delete(_ context.Context, profileID string) error {
	if _, ok := s.profiles[profileID]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.profiles, profileID)
	for key := range s.connections {
		if key[0] == profileID || key[1] == profileID {
			delete(s.connections, key)
		}
	}
	return nil
}

func (s *inMemoryStore) TouchLastLogin(_ context.Context, profileID string) error {
	profile, ok := s.profiles[profileID]
	if !ok {
		return repositories.ErrNotFound
	}
	now := time.Now().UTC()
	profile.LastLogin = &now
	s.profiles[profileID] = profile
	return nil
}

func (s *inMemoryStore) Create(_ context.Context, senderID, receiverID string) (models.Connection, error) {
	if _, ok := s.connections[[2]string{senderID, receiverID}]; ok {
		return models.Connection{}, repositories.ErrConflict
	}
	if _, ok := s.connections[[2]string{receiverID, senderID}]; ok {
		return models.Connection{}, repositories.ErrConflict
	}
	edge := models.Connection{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.ConnectionPending,
		CreatedAt:  time.Now().UTC(),
	}
	s.connections[[2]string{senderID, receiverID}] = edge
	return edge, nil
}

func (s *inMemoryStore) ListForReceiver(_ context.Context, receiverID, status string) ([]models.Connection, error) {
	if status != "" && !models.ValidStatus(status) {
		return nil, models.ErrInvalidStatus
	}
	var out []models.Connection
	for _, edge := range s.connections {
		if edge.ReceiverID != receiverID {
			continue
		}
		if status != "" && edge.Status != status {
			continue
		}
		out = append(out, edge)
	}
	return out, nil
}

func (s *inMemoryStore) FindConnection(_ context.Context, receiverID, senderID string) (models.Connection, error) {
	edge, ok := s.connections[[2]string{senderID, receiverID}]
	if !ok {
		return models.Connection{}, repositories.ErrNotFound
	}
	return edge, nil
}

func (s *inMemoryStore) UpdateStatus(_ context.Context, receiverID, senderID, status string) error {
	if !models.Terminal(status) {
		return models.ErrInvalidStatus
	}
	edge, ok := s.connections[[2]string{senderID, receiverID}]
	if !ok {
		return repositories.ErrNotFound
	}
	if edge.Status != models.ConnectionPending {
		return repositories.ErrAlreadyResponded
	}
	edge.Status = status
	now := time.Now().UTC()
	edge.RespondedAt = &now
	s.connections[[2]string{senderID, receiverID}] = edge
	return nil
}

// connectionStoreAdapter exposes the store's connection lookup under the
// ConnectionStore method name.
type connectionStoreAdapter struct {
	*inMemoryStore
}

func (a connectionStoreAdapter) Find(ctx context.Context, receiverID, senderID string) (models.Connection, error) {
	return a.FindConnection(ctx, receiverID, senderID)
}

type fakeAvatarStore struct {
	saved map[string][]byte
}

func newFakeAvatarStore() *fakeAvatarStore {
	return &fakeAvatarStore{saved: make(map[string][]byte)}
}

func (s *fakeAvatarStore) Save(_ context.Context, name, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.saved[name] = buf.Bytes()
	return "https://cdn.test/avatars/" + name, nil
}
