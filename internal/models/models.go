package models

import (
	"errors"
	"time"
)

// Profile is a user's public-facing account record.
type Profile struct {
	ID           string
	AccountID    string
	Username     string
	FirstName    string
	LastName     string
	ImageURL     string
	Age          int
	Gender       string
	Bio          string
	LastLogin    *time.Time
	ActiveStatus bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Credential backs a Profile with a username and password hash. It is created
// alongside the profile at signup and read-only thereafter.
type Credential struct {
	AccountID    string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Connection represents a directed friend-request edge between two profiles.
// The (sender, receiver) pair identifies the edge; (A, B) and (B, A) are
// distinct edges but at most one of the two may exist at a time.
type Connection struct {
	SenderID    string
	ReceiverID  string
	Status      string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

const (
	ConnectionPending  = "pending"
	ConnectionAccepted = "accepted"
	ConnectionRejected = "rejected"
)

// ErrInvalidStatus indicates a connection status outside the closed enum, or
// a transition target that is not accepted/rejected.
var ErrInvalidStatus = errors.New("invalid connection status")

// ValidStatus reports whether s is a member of the status enum.
func ValidStatus(s string) bool {
	switch s {
	case ConnectionPending, ConnectionAccepted, ConnectionRejected:
		return true
	}
	return false
}

// Terminal reports whether a connection in status s can no longer transition.
func Terminal(s string) bool {
	return s == ConnectionAccepted || s == ConnectionRejected
}
