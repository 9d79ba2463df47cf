package authapi

import (
	"context"
	"net/http"

	"jotter/cmd/internal/auth/session"
)

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying ident.
func WithIdentity(ctx context.Context, ident session.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, ident)
}

// IdentityFromContext returns the authenticated identity, if any. Callers
// must treat a missing identity as unauthenticated whatever the cause.
func IdentityFromContext(ctx context.Context) (session.Identity, bool) {
	ident, ok := ctx.Value(identityCtxKey{}).(session.Identity)
	return ident, ok
}

// Authenticate admits the request's access token into the context.
//
// The Authorization bearer header wins over the access cookie. On any
// failure the request proceeds without an identity.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			tok = h.accessTokenFromCookie(r)
		}
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, _, err := h.sessions.Authenticate(r.Context(), h.now(), tok)
		if err != nil {
			if session.Code(err) == session.CodeUnavailable {
				h.log.Error("auth.authenticate.fail", "err", err)
			} else {
				h.log.Debug("auth.authenticate.rejected", "code", session.Code(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// RequireIdentity responds 401 unless Authenticate admitted an identity.
func (h *Handler) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
