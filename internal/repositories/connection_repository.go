package repositories

import (
	"context"

	"github.com/circlesapp/backend/internal/models"
)

// ConnectionRepository defines data access for friend-request edges.
type ConnectionRepository interface {
	// Create inserts a new edge. The stored status is always pending
	// regardless of what the caller supplied.
	Create(ctx context.Context, senderID, receiverID string) (models.Connection, error)
	// ListForReceiver returns edges pointing at the receiver, optionally
	// filtered by status. An empty status returns every edge.
	ListForReceiver(ctx context.Context, receiverID, status string) ([]models.Connection, error)
	Find(ctx context.Context, receiverID, senderID string) (models.Connection, error)
	// UpdateStatus transitions a pending edge to accepted or rejected.
	UpdateStatus(ctx context.Context, receiverID, senderID, status string) error
}
