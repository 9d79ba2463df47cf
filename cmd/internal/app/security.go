package app

import (
	"errors"

	"jotter/cmd/security/token"
)

// ValidateSecurityConfig enforces the startup security policy and returns
// the Hasher used for ledger digests.
//
// With RequireTokenHMAC a missing or short JOTTER_TOKEN_HMAC_KEY fails startup
// instead of falling back to plain SHA-256 digests.
func ValidateSecurityConfig(cfg Config) (token.Hasher, error) {
	h, err := token.HasherFromEnv(cfg.RequireTokenHMAC)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrHMACKeyMissing):
			return token.Hasher{}, errors.New("security policy: JOTTER_REQUIRE_TOKEN_HMAC=true but JOTTER_TOKEN_HMAC_KEY is missing")
		case errors.Is(err, token.ErrHMACKeyTooShort):
			return token.Hasher{}, errors.New("security policy: JOTTER_TOKEN_HMAC_KEY is too short (min 32 bytes)")
		default:
			return token.Hasher{}, err
		}
	}

	if cfg.RequireTokenHMAC && !h.Keyed() {
		return token.Hasher{}, errors.New("security policy: JOTTER_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return h, nil
}
