package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates the presented token is malformed, carries a
	// bad signature, or has expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrForbidden indicates a valid token presented against a resource the
	// caller does not own.
	ErrForbidden = errors.New("forbidden")
)

// Claims are the verified contents of an identity token.
type Claims struct {
	ProfileID string
	Username  string
}

// TokenService issues and verifies stateless HS256 identity tokens binding a
// profile id to its username. The signing secret is fixed at construction.
type TokenService struct {
	secret []byte
	ttl    time.Duration

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewTokenService constructs a TokenService with the provided secret and
// token lifetime.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if secret == "" {
		panic("auth: token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the provided claims.
func (s *TokenService) Issue(claims Claims) (string, error) {
	if claims.ProfileID == "" {
		return "", errors.New("profile id must be provided")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"profile_id": claims.ProfileID,
		"username":   claims.Username,
		"iat":        now.Unix(),
		"exp":        now.Add(s.ttl).Unix(),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates the token signature and expiry and returns its claims.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	profileID, ok := mapClaims["profile_id"].(string)
	if !ok || profileID == "" {
		return Claims{}, ErrInvalidToken
	}
	username, _ := mapClaims["username"].(string)

	return Claims{ProfileID: profileID, Username: username}, nil
}

// AuthorizeOwner succeeds only when the claims identify the owner of the
// target profile. Every profile-mutating endpoint goes through this gate.
func AuthorizeOwner(claims Claims, profileID string) error {
	if claims.ProfileID == "" || claims.ProfileID != profileID {
		return ErrForbidden
	}
	return nil
}

func (s *TokenService) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
