// Package token provides the digest primitive used to store refresh-token values.
//
// The refresh ledger never holds a plaintext token. It stores a stable 64-char hex digest:
//   - HMAC-SHA256(token, key) when JOTTER_TOKEN_HMAC_KEY is configured (production).
//   - SHA-256(token) otherwise (development only).
//
// Policy:
//   - If JOTTER_REQUIRE_TOKEN_HMAC=true, callers must build the Hasher with HasherFromEnv and
//     require=true, which refuses to start without a key of at least MinHMACKeyBytes.
package token
