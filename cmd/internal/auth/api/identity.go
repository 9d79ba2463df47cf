package authapi

import (
	"context"

	"jotter/cmd/identity"
	"jotter/cmd/internal/auth/session"
)

// IdentityResolver adapts an identity.Store to session.IdentityResolver.
// A missing user maps to session.ErrUnknownIdentity.
func IdentityResolver(users identity.Store) session.IdentityResolver {
	return session.IdentityResolverFunc(func(ctx context.Context, id string) (session.Identity, error) {
		u, err := users.GetUserByID(ctx, id)
		if err != nil {
			if identity.IsNotFound(err) {
				return session.Identity{}, session.ErrUnknownIdentity
			}
			return session.Identity{}, err
		}
		return toSessionIdentity(u), nil
	})
}
