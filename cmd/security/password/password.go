package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var b64 = base64.RawStdEncoding

// phcHash is the parsed form of "$argon2id$v=19$m=<KiB>,t=<n>,p=<n>$<salt>$<key>".
type phcHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func (p phcHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.params.MemoryKiB, p.params.Iterations, p.params.Parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func derive(pw string, salt []byte, p Argon2idParams) []byte {
	return argon2.IDKey([]byte(pw), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
}

// Hash checks pw against the length policy and returns an encoded Argon2id hash
// with a fresh random salt.
func (c Config) Hash(pw string) (string, error) {
	if err := c.Validate(pw); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	return phcHash{params: c.Params, salt: salt, key: derive(pw, salt, c.Params)}.String(), nil
}

// Verify reports whether pw matches encoded. A malformed hash, or one whose
// cost is beyond what c is willing to spend, yields ErrInvalidHash.
func (c Config) Verify(encoded, pw string) (bool, error) {
	h, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	if !h.params.affordableUnder(c.Params) {
		return false, ErrInvalidHash
	}
	return subtle.ConstantTimeCompare(derive(pw, h.salt, h.params), h.key) == 1, nil
}

// affordableUnder accepts up to twice the configured cost, so hashes stored
// under older, cheaper settings keep verifying.
func (p Argon2idParams) affordableUnder(limit Argon2idParams) bool {
	switch {
	case p.MemoryKiB > limit.MemoryKiB*2,
		p.Iterations > limit.Iterations*2,
		p.Parallelism > limit.Parallelism*2:
		return false
	case p.SaltLength < 8 || p.SaltLength > 64:
		return false
	case p.KeyLength < 16 || p.KeyLength > 128:
		return false
	}
	return true
}

func parsePHC(encoded string) (phcHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phcHash{}, ErrInvalidHash
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return phcHash{}, ErrInvalidHash
	}

	var mem, iter, par uint32
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return phcHash{}, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return phcHash{}, ErrInvalidHash
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil {
		return phcHash{}, ErrInvalidHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil {
		return phcHash{}, ErrInvalidHash
	}

	return phcHash{
		params: Argon2idParams{
			MemoryKiB:   mem,
			Iterations:  iter,
			Parallelism: uint8(par),
			SaltLength:  uint32(len(salt)), // #nosec G115 -- checked by affordableUnder.
			KeyLength:   uint32(len(key)),  // #nosec G115 -- checked by affordableUnder.
		},
		salt: salt,
		key:  key,
	}, nil
}
