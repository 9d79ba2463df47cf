package identity

import (
	"context"
	"time"
)

// User is jotter's canonical security principal.
type User struct {
	ID        string
	Email     string
	EmailNorm string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
}

// UserAuth is a User together with its stored password hash.
// It never leaves the identity/auth boundary.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a user row to insert. PasswordHash is already
// PHC-encoded; stores never see plaintext passwords.
type CreateUserInput struct {
	Email        string
	Name         string
	IsAdmin      bool
	PasswordHash string
	Now          time.Time
}

// Store is the identity persistence boundary.
//
// GetUserByID and GetUserAuthByEmail return a NotFoundError (ErrNotFound)
// when no row matches. CreateUser returns ConflictError{Field: "email"} on a
// duplicate normalised email.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)
	DeleteUser(ctx context.Context, id string) error
}
