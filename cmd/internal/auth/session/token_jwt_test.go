package session

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"jotter/cmd/identity/ids"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 600_000_000, time.UTC)

func TestCodec_AccessRoundTrip(t *testing.T) {
	c := newTestCodec(t)

	tok, exp, err := c.IssueAccess(testIdent, t0)
	require.NoError(t, err)
	require.Equal(t, t0.Truncate(time.Second).Add(15*time.Minute), exp)

	claims, err := c.Verify(tok, UseAccess, t0)
	require.NoError(t, err)
	require.Equal(t, UseAccess, claims.Use)
	require.Equal(t, testIdent.ID, claims.IdentityID)
	require.Equal(t, testIdent.Email, claims.Email)
	require.True(t, claims.IsAdmin)
	require.Equal(t, t0.Truncate(time.Second), claims.IssuedAt)
	require.Equal(t, exp, claims.ExpiresAt)
}

func TestCodec_ExpiryIsExact(t *testing.T) {
	c := newTestCodec(t)

	tok, exp, err := c.IssueAccess(testIdent, t0)
	require.NoError(t, err)

	_, err = c.Verify(tok, UseAccess, exp.Add(-time.Nanosecond))
	require.NoError(t, err, "accepted up to exp-ε")

	_, err = c.Verify(tok, UseAccess, exp)
	require.ErrorIs(t, err, ErrExpiredCredential, "rejected at exp")

	_, err = c.Verify(tok, UseAccess, exp.Add(time.Hour))
	require.ErrorIs(t, err, ErrExpiredCredential)
}

func TestCodec_RefreshTokensAreDistinct(t *testing.T) {
	c := newTestCodec(t)

	a, _, err := c.IssueRefresh(testIdent.ID, t0)
	require.NoError(t, err)
	b, _, err := c.IssueRefresh(testIdent.ID, t0)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	claims, err := c.Verify(a, UseRefresh, t0)
	require.NoError(t, err)
	require.True(t, ids.Valid(claims.TokenID), claims.TokenID)
	require.Equal(t, t0.Truncate(time.Second).Add(7*24*time.Hour), claims.ExpiresAt)
}

func TestCodec_Rejections(t *testing.T) {
	c := newTestCodec(t)

	access, _, err := c.IssueAccess(testIdent, t0)
	require.NoError(t, err)
	refresh, _, err := c.IssueRefresh(testIdent.ID, t0)
	require.NoError(t, err)

	otherCfg := testConfig()
	otherCfg.Issuer = "someone-else"
	other, err := NewCodec(otherCfg)
	require.NoError(t, err)
	foreign, _, err := other.IssueRefresh(testIdent.ID, t0)
	require.NoError(t, err)

	// Same key and issuer, but use claim says access.
	wrongUse, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Use: UseAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "jotter",
			Subject:   testIdent.ID,
			ID:        "01J0000000000000000000000B",
			IssuedAt:  jwt.NewNumericDate(t0),
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}).SignedString([]byte(testRefreshSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{
		Use: UseRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "jotter",
			Subject:   testIdent.ID,
			ID:        "01J0000000000000000000000C",
			IssuedAt:  jwt.NewNumericDate(t0),
			ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tampered := refresh[:len(refresh)-2] + flip(refresh[len(refresh)-2:])

	cases := []struct {
		name  string
		token string
		use   Use
		want  error
	}{
		{"empty", "", UseRefresh, ErrMissingCredential},
		{"whitespace", "   ", UseAccess, ErrMissingCredential},
		{"garbage", "not-a-token", UseRefresh, ErrMalformedCredential},
		{"three garbage segments", "aaa.bbb.ccc", UseRefresh, ErrMalformedCredential},
		{"access presented as refresh", access, UseRefresh, ErrMalformedCredential},
		{"refresh presented as access", refresh, UseAccess, ErrMalformedCredential},
		{"wrong issuer", foreign, UseRefresh, ErrMalformedCredential},
		{"wrong use claim", wrongUse, UseRefresh, ErrMalformedCredential},
		{"alg none", unsigned, UseRefresh, ErrMalformedCredential},
		{"tampered signature", tampered, UseRefresh, ErrMalformedCredential},
		{"oversized", strings.Repeat("a", maxTokenBytes+1), UseRefresh, ErrMalformedCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Verify(tc.token, tc.use, t0)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCodec_ParseRefreshIgnoringExpiry(t *testing.T) {
	c := newTestCodec(t)

	refresh, exp, err := c.IssueRefresh(testIdent.ID, t0)
	require.NoError(t, err)

	_, err = c.Verify(refresh, UseRefresh, exp.Add(time.Minute))
	require.ErrorIs(t, err, ErrExpiredCredential)

	claims, err := c.ParseRefreshIgnoringExpiry(refresh)
	require.NoError(t, err)
	require.Equal(t, testIdent.ID, claims.IdentityID)

	access, _, err := c.IssueAccess(testIdent, t0)
	require.NoError(t, err)
	_, err = c.ParseRefreshIgnoringExpiry(access)
	require.ErrorIs(t, err, ErrMalformedCredential)
}

func TestNewCodec_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = cfg.AccessSecret
	_, err := NewCodec(cfg)
	require.ErrorIs(t, err, ErrConfig)
}

// flip changes the last characters of a base64url segment.
func flip(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
	}
	return string(b)
}
