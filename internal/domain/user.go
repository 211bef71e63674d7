package domain

import (
	"context"

	"github.com/google/uuid"
)

// User is a registered account. The core only ever exposes the public
// ReviewAuthor subset of it.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
}

// IdentityStore resolves an authenticated caller to a stable user identifier.
type IdentityStore interface {
	// Resolve maps a bearer token to a user ID, returning ErrUnauthenticated
	// when the token is unknown
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}
