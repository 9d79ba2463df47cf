package session

import (
	"context"
	"time"
)

// Identity is the principal a session belongs to, as seen by this package.
type Identity struct {
	ID        string
	Email     string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
}

// IdentityResolver loads identities by id. Implementations return an error
// matching ErrUnknownIdentity when the identity no longer exists; any other
// error is treated as a storage failure.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id string) (Identity, error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, id string) (Identity, error)

func (f IdentityResolverFunc) ResolveIdentity(ctx context.Context, id string) (Identity, error) {
	return f(ctx, id)
}
