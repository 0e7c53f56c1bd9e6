package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// User is keyed by email, the natural key shared with the identity
// provider. The two capability flags are independent.
type User struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	PhotoURL    string
	IsStaff     bool
	IsAdmin     bool
	CreatedAt   time.Time
}

// Identity is what the external identity provider hands over on sign-in.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

type UserRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Find(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
