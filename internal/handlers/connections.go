package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/circlesapp/backend/internal/logging"
	"github.com/circlesapp/backend/internal/models"
)

// ConnectionHandler implements the friend-request endpoints.
type ConnectionHandler struct {
	Connections ConnectionStore
}

// Send handles POST /{profileID}/connections requests. The path names the
// receiver; the body names the sender. New edges are always pending: a body
// that asks for any other initial status is rejected.
func (h ConnectionHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Connections == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "connection store unavailable"})
		return
	}

	receiverID := chi.URLParam(r, "profileID")

	var req sendConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid connection payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "senderId is required"})
		return
	}

	if req.SenderID == receiverID {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "cannot send a request to yourself"})
		return
	}

	if req.Status != "" && req.Status != models.ConnectionPending {
		logger.Warn("connection request with forced status", "status", req.Status)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "new requests must be pending"})
		return
	}

	edge, err := h.Connections.Create(ctx, req.SenderID, receiverID)
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, connectionResponse{Connection: viewConnection(edge)})
}

// List handles GET /{profileID}/connections requests, optionally filtered by
// the status query parameter.
func (h ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("status"))
}

// ListAccepted handles GET /{profileID}/connections/accepted requests.
func (h ConnectionHandler) ListAccepted(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ConnectionAccepted)
}

func (h ConnectionHandler) list(w http.ResponseWriter, r *http.Request, status string) {
	ctx := r.Context()

	if h.Connections == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "connection store unavailable"})
		return
	}

	edges, err := h.Connections.ListForReceiver(ctx, chi.URLParam(r, "profileID"), status)
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	views := make([]connectionView, 0, len(edges))
	for _, edge := range edges {
		views = append(views, viewConnection(edge))
	}

	respondJSON(ctx, w, http.StatusOK, listConnectionsResponse{Connections: views})
}

// Get handles GET /{profileID}/connections/{senderID} requests.
func (h ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Connections == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "connection store unavailable"})
		return
	}

	edge, err := h.Connections.Find(ctx, chi.URLParam(r, "profileID"), chi.URLParam(r, "senderID"))
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, connectionResponse{Connection: viewConnection(edge)})
}

// Respond handles PUT /{profileID}/connections/{senderID} requests. Only a
// pending edge may transition, and only to accepted or rejected.
func (h ConnectionHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "connections.respond")
	defer span.End()

	logger := logging.FromContext(ctx)

	if h.Connections == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "connection store unavailable"})
		return
	}

	receiverID := chi.URLParam(r, "profileID")
	senderID := chi.URLParam(r, "senderID")

	var req respondConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid respond payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.Connections.UpdateStatus(ctx, receiverID, senderID, req.Status); err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	edge, err := h.Connections.Find(ctx, receiverID, senderID)
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, connectionResponse{Connection: viewConnection(edge)})
}

type sendConnectionRequest struct {
	SenderID string `json:"senderId"`
	Status   string `json:"status"`
}

type respondConnectionRequest struct {
	Status string `json:"status"`
}

type connectionResponse struct {
	Connection connectionView `json:"connection"`
}

type listConnectionsResponse struct {
	Connections []connectionView `json:"connections"`
}
