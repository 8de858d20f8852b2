package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/circlesapp/backend/internal/auth"
	"github.com/circlesapp/backend/internal/logging"
	"github.com/circlesapp/backend/internal/models"
	"github.com/circlesapp/backend/internal/repositories"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondStoreError maps classified store and auth errors to HTTP responses.
// Unclassified errors become a generic 500 so backend detail never reaches
// the caller.
func respondStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repositories.ErrConflict):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "already exists"})
	case errors.Is(err, repositories.ErrAlreadyResponded):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "connection already responded to"})
	case errors.Is(err, models.ErrInvalidStatus):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
	case errors.Is(err, auth.ErrForbidden):
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "you can only access your own profile"})
	case errors.Is(err, auth.ErrInvalidToken):
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
	case errors.Is(err, repositories.ErrTimeout):
		respondJSON(ctx, w, http.StatusGatewayTimeout, map[string]string{"error": "storage timeout"})
	default:
		logging.FromContext(ctx).Error("unclassified store error", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

type profileView struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"accountId"`
	Username     string     `json:"username"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	ImageURL     string     `json:"imageUrl"`
	Age          int        `json:"age"`
	Gender       string     `json:"gender"`
	Bio          string     `json:"bio"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	ActiveStatus bool       `json:"activeStatus"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func viewProfile(p models.Profile) profileView {
	return profileView{
		ID:           p.ID,
		AccountID:    p.AccountID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		ImageURL:     p.ImageURL,
		Age:          p.Age,
		Gender:       p.Gender,
		Bio:          p.Bio,
		LastLogin:    p.LastLogin,
		ActiveStatus: p.ActiveStatus,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type connectionView struct {
	SenderID    string     `json:"senderId"`
	ReceiverID  string     `json:"receiverId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

func viewConnection(c models.Connection) connectionView {
	return connectionView{
		SenderID:    c.SenderID,
		ReceiverID:  c.ReceiverID,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt,
		RespondedAt: c.RespondedAt,
	}
}
