package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/circlesapp/backend/internal/auth"
	"github.com/circlesapp/backend/internal/logging"
	"github.com/circlesapp/backend/internal/models"
	"github.com/circlesapp/backend/internal/repositories"
)

// AuthHandler implements signup and login.
type AuthHandler struct {
	Credentials CredentialStore
	Profiles    ProfileStore
	Tokens      TokenIssuer
	Limiter     RateLimiter
	NowFunc     func() time.Time
}

// SignUp handles POST /signup requests. The credential and profile are
// written in one transaction, then an identity token is issued for the new
// profile.
func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := logging.StartSpan(r.Context(), "auth.signup")
	defer span.End()

	logger := logging.FromContext(ctx)

	if h.Credentials == nil || h.Tokens == nil {
		logger.Error("signup dependencies unavailable", "hasCredentials", h.Credentials != nil, "hasTokens", h.Tokens != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "signup") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many signup attempts"})
		return
	}

	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		logger.Warn("signup missing credentials", "username", req.Username)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	if len(req.Password) < 8 {
		logger.Warn("signup password too short", "username", req.Username)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "password must be at least 8 characters"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("signup failed to hash password", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to secure password"})
		return
	}

	now := h.now()
	credential := models.Credential{
		AccountID:    uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hashed),
		CreatedAt:    now,
	}
	profile := models.Profile{
		ID:           uuid.NewString(),
		AccountID:    credential.AccountID,
		Username:     credential.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		ImageURL:     req.ImageURL,
		Age:          req.Age,
		Gender:       req.Gender,
		Bio:          req.Bio,
		ActiveStatus: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Credentials.CreateWithProfile(ctx, credential, profile); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("signup conflict", "username", req.Username)
			respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": "account already exists"})
			return
		}
		logger.Error("signup failed to create account", "error", err, "username", req.Username)
		respondStoreError(ctx, w, err)
		return
	}

	token, err := h.Tokens.Issue(auth.Claims{ProfileID: profile.ID, Username: profile.Username})
	if err != nil {
		logger.Error("signup failed to issue token", "error", err, "profileId", profile.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}

	respondJSON(ctx, w, http.StatusCreated, authResponse{User: viewProfile(profile), Token: token})
}

// Login handles POST /login requests. Unknown usernames and wrong passwords
// produce the same response so callers cannot enumerate accounts.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Credentials == nil || h.Tokens == nil {
		logger.Error("login dependencies unavailable", "hasCredentials", h.Credentials != nil, "hasTokens", h.Tokens != nil)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "authentication services unavailable"})
		return
	}

	if !allowRequest(h.Limiter, r, "login") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		logger.Warn("login missing credentials", "username", req.Username)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	credential, err := h.Credentials.FindByUsername(ctx, req.Username)
	if err != nil {
		logger.Warn("login user lookup failed", "username", req.Username, "error", err)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "username", req.Username)
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	}

	profile, err := h.Credentials.ProfileByAccount(ctx, credential.AccountID)
	if err != nil {
		logger.Error("login profile lookup failed", "error", err, "accountId", credential.AccountID)
		respondStoreError(ctx, w, err)
		return
	}

	if h.Profiles != nil {
		if err := h.Profiles.TouchLastLogin(ctx, profile.ID); err != nil {
			logger.Warn("failed to record last login", "error", err, "profileId", profile.ID)
		} else {
			now := h.now()
			profile.LastLogin = &now
		}
	}

	token, err := h.Tokens.Issue(auth.Claims{ProfileID: profile.ID, Username: profile.Username})
	if err != nil {
		logger.Error("login failed to issue token", "error", err, "profileId", profile.ID)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}

	respondJSON(ctx, w, http.StatusOK, authResponse{User: viewProfile(profile), Token: token})
}

type signUpRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	Bio       string `json:"bio"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	User  profileView `json:"user"`
	Token string      `json:"token"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
