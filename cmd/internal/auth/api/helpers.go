package authapi

import (
	"errors"

	"jotter/cmd/identity"
	"jotter/cmd/internal/auth/session"
)

func toUserResponse(id session.Identity) UserResponse {
	return UserResponse{
		ID:        id.ID,
		Email:     id.Email,
		Name:      id.Name,
		IsAdmin:   id.IsAdmin,
		CreatedAt: id.CreatedAt,
	}
}

func toSessionIdentity(u identity.User) session.Identity {
	return session.Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func invalidInputMessage(err error) string {
	var opErr identity.OpError
	if errors.As(err, &opErr) && opErr.Msg != "" {
		return opErr.Msg
	}
	return "invalid request"
}

// reuseIdentity returns the identity a replayed refresh token was issued to,
// for audit only.
func reuseIdentity(sessions *session.Service, tok string) string {
	claims, err := sessions.Codec().ParseRefreshIgnoringExpiry(tok)
	if err != nil {
		return ""
	}
	return claims.IdentityID
}

// storageCause returns the storage error attached to a session error, if any.
func storageCause(err error) error {
	var sErr *session.Error
	if errors.As(err, &sErr) {
		return sErr.Err
	}
	return nil
}
