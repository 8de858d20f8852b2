package handlers

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/circlesapp/backend/internal/auth"
	"github.com/circlesapp/backend/internal/logging"
	"github.com/circlesapp/backend/internal/middleware"
)

const maxAvatarBytes = 5 << 20

// ProfileHandler implements profile listing, lookup and mutation endpoints.
type ProfileHandler struct {
	Profiles ProfileStore
	Avatars  AvatarStore
	NowFunc  func() time.Time
}

// List handles GET / requests.
func (h ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Profiles == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile store unavailable"})
		return
	}

	profiles, err := h.Profiles.List(ctx)
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	views := make([]profileView, 0, len(profiles))
	for _, profile := range profiles {
		views = append(views, viewProfile(profile))
	}

	respondJSON(ctx, w, http.StatusOK, listProfilesResponse{Profiles: views})
}

// Get handles GET /{profileID} requests.
func (h ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Profiles == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile store unavailable"})
		return
	}

	profile, err := h.Profiles.Find(ctx, chi.URLParam(r, "profileID"))
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, viewProfile(profile))
}

// Update handles PUT /{profileID} requests. Absent fields keep their current
// value, so callers may send a partial document.
func (h ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Profiles == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile store unavailable"})
		return
	}

	profileID := chi.URLParam(r, "profileID")
	if err := h.authorize(ctx, w, profileID); err != nil {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile update payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	profile, err := h.Profiles.Find(ctx, profileID)
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.ImageURL != nil {
		profile.ImageURL = *req.ImageURL
	}
	if req.Age != nil {
		profile.Age = *req.Age
	}
	if req.Gender != nil {
		profile.Gender = *req.Gender
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.ActiveStatus != nil {
		profile.ActiveStatus = *req.ActiveStatus
	}
	profile.UpdatedAt = h.now()

	if err := h.Profiles.Update(ctx, profile); err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, viewProfile(profile))
}

// Delete handles DELETE /{profileID} requests. Like Update, it only succeeds
// for the profile named in the caller's token.
func (h ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Profiles == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "profile store unavailable"})
		return
	}

	profileID := chi.URLParam(r, "profileID")
	if err := h.authorize(ctx, w, profileID); err != nil {
		return
	}

	if err := h.Profiles.Delete(ctx, profileID); err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"success": "profile deleted"})
}

// UploadAvatar handles POST /{profileID}/avatar requests: a multipart image
// upload persisted to object storage, with the resulting location written
// back to the profile.
func (h ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Profiles == nil || h.Avatars == nil {
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "avatar storage unavailable"})
		return
	}

	profileID := chi.URLParam(r, "profileID")
	if err := h.authorize(ctx, w, profileID); err != nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		logger.Warn("invalid avatar upload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "avatar file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext := ".jpg"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}

	location, err := h.Avatars.Save(ctx, profileID+ext, contentType, file)
	if err != nil {
		logger.Error("avatar upload failed", "error", err, "profileId", profileID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to store avatar"})
		return
	}

	profile, err := h.Profiles.Find(ctx, profileID)
	if err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	profile.ImageURL = location
	profile.UpdatedAt = h.now()
	if err := h.Profiles.Update(ctx, profile); err != nil {
		respondStoreError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"imageUrl": location})
}

// authorize enforces that the caller's token names the target profile. It
// writes the error response itself and reports whether the request may
// proceed.
func (h ProfileHandler) authorize(ctx context.Context, w http.ResponseWriter, profileID string) error {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return auth.ErrInvalidToken
	}
	if err := auth.AuthorizeOwner(claims, profileID); err != nil {
		respondStoreError(ctx, w, err)
		return err
	}
	return nil
}

type updateProfileRequest struct {
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	ImageURL     *string `json:"imageUrl"`
	Age          *int    `json:"age"`
	Gender       *string `json:"gender"`
	Bio          *string `json:"bio"`
	ActiveStatus *bool   `json:"activeStatus"`
}

type listProfilesResponse struct {
	Profiles []profileView `json:"profiles"`
}

func (h ProfileHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
