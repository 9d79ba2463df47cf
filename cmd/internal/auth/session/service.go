package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"jotter/cmd/security/token"
)

// Service implements the session lifecycle: issue on login/registration,
// rotation with reuse detection, logout and access-token authentication.
type Service struct {
	cfg        Config
	codec      *Codec
	ledger     Ledger
	identities IdentityResolver
	digests    token.Hasher
}

// Issued is the result of issuing or rotating a session.
type Issued struct {
	Identity     Identity
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService wires a Service. Ledger entries are digests of refresh tokens
// computed with digests; the plaintext token is never stored.
func NewService(cfg Config, ledger Ledger, identities IdentityResolver, digests token.Hasher) (*Service, error) {
	codec, err := NewCodec(cfg)
	if err != nil {
		return nil, err
	}
	if ledger == nil || identities == nil {
		return nil, ErrConfig
	}
	return &Service{
		cfg:        cfg,
		codec:      codec,
		ledger:     ledger,
		identities: identities,
		digests:    digests,
	}, nil
}

// Config returns the session configuration.
func (s *Service) Config() Config { return s.cfg }

// Codec returns the token codec.
func (s *Service) Codec() *Codec { return s.codec }

// Ledger returns the backing ledger.
func (s *Service) Ledger() Ledger { return s.ledger }

// Digest returns the ledger digest of a refresh token.
func (s *Service) Digest(refreshToken string) string {
	return s.digests.Digest(strings.TrimSpace(refreshToken))
}

// IssueSession issues a fresh pair for ident and records the refresh token.
func (s *Service) IssueSession(ctx context.Context, now time.Time, ident Identity) (Issued, error) {
	const op = "session.IssueSession"

	out, err := s.issuePair(ident, now)
	if err != nil {
		return Issued{}, fail(op, ErrUnavailable, err)
	}
	if err := s.ledger.Append(ctx, ident.ID, s.Digest(out.RefreshToken), now); err != nil {
		return Issued{}, fail(op, ErrUnavailable, err)
	}
	return out, nil
}

// Rotate redeems presented and returns its successor pair.
//
//   - empty token: ErrMissingCredential, ledger untouched
//   - bad signature/encoding or expired: ErrMalformedCredential / ErrExpiredCredential
//   - identity gone: ErrUnknownIdentity
//   - token not in ledger: every entry for the identity is cleared, ErrReuseDetected
//   - otherwise the token is swapped for its successor atomically
//
// Concurrent Rotate calls with the same token yield exactly one success; the
// rest observe ErrReuseDetected.
func (s *Service) Rotate(ctx context.Context, now time.Time, presented string) (Issued, error) {
	const op = "session.Rotate"

	claims, err := s.codec.Verify(presented, UseRefresh, now)
	if err != nil {
		return Issued{}, fail(op, err, nil)
	}

	ident, err := s.resolve(ctx, op, claims.IdentityID)
	if err != nil {
		return Issued{}, err
	}

	next, err := s.issuePair(ident, now)
	if err != nil {
		return Issued{}, fail(op, ErrUnavailable, err)
	}

	ok, err := s.ledger.Redeem(ctx, ident.ID, s.Digest(presented), s.Digest(next.RefreshToken), now)
	if err != nil {
		return Issued{}, fail(op, ErrUnavailable, err)
	}
	if !ok {
		// The clear error is kept as the cause; the outcome is still reuse.
		return Issued{}, fail(op, ErrReuseDetected, s.ledger.ClearAll(ctx, ident.ID))
	}
	return next, nil
}

// Revoke removes presented from its identity's ledger (logout). Expired but
// genuine tokens are still removed. It reports whether an entry was removed.
func (s *Service) Revoke(ctx context.Context, presented string) (Claims, bool, error) {
	const op = "session.Revoke"

	claims, err := s.codec.ParseRefreshIgnoringExpiry(presented)
	if err != nil {
		return Claims{}, false, fail(op, err, nil)
	}
	removed, err := s.ledger.Remove(ctx, claims.IdentityID, s.Digest(presented))
	if err != nil {
		return claims, false, fail(op, ErrUnavailable, err)
	}
	return claims, removed, nil
}

// Authenticate verifies an access token and resolves its identity.
// An identity deleted after issuance yields ErrUnknownIdentity.
func (s *Service) Authenticate(ctx context.Context, now time.Time, access string) (Identity, Claims, error) {
	const op = "session.Authenticate"

	claims, err := s.codec.Verify(access, UseAccess, now)
	if err != nil {
		return Identity{}, Claims{}, fail(op, err, nil)
	}
	ident, err := s.resolve(ctx, op, claims.IdentityID)
	if err != nil {
		return Identity{}, Claims{}, err
	}
	return ident, claims, nil
}

func (s *Service) resolve(ctx context.Context, op, id string) (Identity, error) {
	ident, err := s.identities.ResolveIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUnknownIdentity) {
			return Identity{}, fail(op, ErrUnknownIdentity, nil)
		}
		return Identity{}, fail(op, ErrUnavailable, err)
	}
	return ident, nil
}

func (s *Service) issuePair(ident Identity, now time.Time) (Issued, error) {
	access, accessExp, err := s.codec.IssueAccess(ident, now)
	if err != nil {
		return Issued{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(ident.ID, now)
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		Identity:     ident,
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}
