package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/circlesapp/backend/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)

	var gotClaims auth.Claims
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("expected claims on context")
		}
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	token, err := tokens.Issue(auth.Claims{ProfileID: "profile-1", Username: "alice"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if gotClaims.ProfileID != "profile-1" || gotClaims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", gotClaims)
	}
}

func TestRequireAuthFailures(t *testing.T) {
	tokens := auth.NewTokenService("test-secret", time.Hour)
	otherTokens := auth.NewTokenService("other-secret", time.Hour)

	forged, err := otherTokens.Issue(auth.Claims{ProfileID: "profile-1"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{"missingHeader", ""},
		{"notBearer", "Basic abc123"},
		{"malformedToken", "Bearer not-a-token"},
		{"badSignature", "Bearer " + forged},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := RequireAuth(tokens)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler should not be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status 401 got %d", rec.Code)
			}
		})
	}
}
