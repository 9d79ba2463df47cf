package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"jotter/cmd/identity/ids"
)

// Use distinguishes the two token classes.
type Use string

const (
	UseAccess  Use = "access"
	UseRefresh Use = "refresh"
)

// maxTokenBytes bounds what the parser will look at.
const maxTokenBytes = 4096

// Claims is the verified content of either token class.
// Email and IsAdmin are set for access tokens; TokenID for refresh tokens.
type Claims struct {
	Use        Use
	IdentityID string
	Email      string
	IsAdmin    bool
	TokenID    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

type jwtClaims struct {
	Email string `json:"email,omitempty"`
	Admin bool   `json:"adm,omitempty"`
	Use   Use    `json:"use"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256 access and refresh tokens.
// It is a pure function of its inputs and the supplied time.
type Codec struct {
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	accessKey  []byte
	refreshKey []byte
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Codec{
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		accessKey:  append([]byte(nil), cfg.AccessSecret...),
		refreshKey: append([]byte(nil), cfg.RefreshSecret...),
	}, nil
}

// IssueAccess signs an access token for ident. iat is now truncated to the
// second and exp is exactly iat + access TTL.
func (c *Codec) IssueAccess(ident Identity, now time.Time) (string, time.Time, error) {
	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(c.accessTTL)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Email: ident.Email,
		Admin: ident.IsAdmin,
		Use:   UseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(c.accessKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// IssueRefresh signs a refresh token for identityID with a fresh ULID jti,
// so two tokens issued in the same second still differ.
func (c *Codec) IssueRefresh(identityID string, now time.Time) (string, time.Time, error) {
	iat := now.UTC().Truncate(time.Second)
	exp := iat.Add(c.refreshTTL)

	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Use: UseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   identityID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}).SignedString(c.refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify checks signature, issuer, use and expiry. A token is accepted iff
// now < exp; there is no leeway.
//
// Errors are ErrMissingCredential, ErrMalformedCredential or ErrExpiredCredential.
func (c *Codec) Verify(token string, use Use, now time.Time) (Claims, error) {
	return c.parse(token, use, jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	))
}

// ParseRefreshIgnoringExpiry verifies a refresh token's signature, issuer and
// use but not its expiry. Logout uses it so an expired but genuine token can
// still be dropped from the ledger.
func (c *Codec) ParseRefreshIgnoringExpiry(token string) (Claims, error) {
	return c.parse(token, UseRefresh, jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	))
}

func (c *Codec) parse(token string, use Use, p *jwt.Parser) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMissingCredential
	}
	if len(token) > maxTokenBytes {
		return Claims{}, ErrMalformedCredential
	}

	key := c.accessKey
	if use == UseRefresh {
		key = c.refreshKey
	}

	var jc jwtClaims
	_, err := p.ParseWithClaims(token, &jc, func(*jwt.Token) (any, error) { return key, nil })
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, ErrMalformedCredential
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpiredCredential
		default:
			return Claims{}, ErrMalformedCredential
		}
	}

	// Issuer is only enforced by the validator; re-check for the lenient path.
	if jc.Use != use || jc.Issuer != c.issuer || strings.TrimSpace(jc.Subject) == "" {
		return Claims{}, ErrMalformedCredential
	}
	if jc.IssuedAt == nil || jc.ExpiresAt == nil {
		return Claims{}, ErrMalformedCredential
	}
	if use == UseRefresh && jc.ID == "" {
		return Claims{}, ErrMalformedCredential
	}

	return Claims{
		Use:        jc.Use,
		IdentityID: jc.Subject,
		Email:      jc.Email,
		IsAdmin:    jc.Admin,
		TokenID:    jc.ID,
		IssuedAt:   jc.IssuedAt.UTC(),
		ExpiresAt:  jc.ExpiresAt.UTC(),
	}, nil
}
