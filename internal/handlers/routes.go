package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/circlesapp/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Credentials CredentialStore
	Profiles    ProfileStore
	Connections ConnectionStore
	Tokens      TokenIssuer
	Verifier    middleware.TokenVerifier
	Avatars     AvatarStore
	AuthLimiter RateLimiter
}

// NewRouter wires the HTTP routes into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	health := HealthHandler{}
	auth := AuthHandler{Credentials: deps.Credentials, Profiles: deps.Profiles, Tokens: deps.Tokens, Limiter: deps.AuthLimiter}
	profiles := ProfileHandler{Profiles: deps.Profiles, Avatars: deps.Avatars}
	connections := ConnectionHandler{Connections: deps.Connections}

	requireAuth := middleware.RequireAuth(deps.Verifier)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", health.Handle)

	r.Get("/", profiles.List)
	r.Post("/signup", auth.SignUp)
	r.Post("/login", auth.Login)

	r.Route("/{profileID}", func(r chi.Router) {
		r.Get("/", profiles.Get)
		r.With(requireAuth).Put("/", profiles.Update)
		r.With(requireAuth).Delete("/", profiles.Delete)
		r.With(requireAuth).Post("/avatar", profiles.UploadAvatar)

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", connections.List)
			r.Post("/", connections.Send)
			r.Get("/accepted", connections.ListAccepted)
			r.Get("/{senderID}", connections.Get)
			r.Put("/{senderID}", connections.Respond)
		})
	})

	return r
}
