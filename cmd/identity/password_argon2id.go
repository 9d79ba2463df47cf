package identity

import (
	"errors"
	"fmt"

	"jotter/cmd/security/password"
)

// Passwords hashes and verifies user passwords through cmd/security/password.
//
// It also keeps a dummy hash built with the same parameters so that a login
// for an unknown email costs the same as a wrong password.
type Passwords struct {
	cfg   password.Config
	dummy string
}

// NewPasswords builds a Passwords from cfg.
func NewPasswords(cfg password.Config) (*Passwords, error) {
	p := &Passwords{cfg: cfg}

	// The dummy plaintext only needs to satisfy the length policy.
	plain := make([]byte, cfg.Policy.MinLength)
	for i := range plain {
		plain[i] = 'x'
	}
	dummy, err := cfg.Hash(string(plain))
	if err != nil {
		return nil, fmt.Errorf("identity: dummy hash: %w", err)
	}
	p.dummy = dummy
	return p, nil
}

// PasswordsFromEnv builds a Passwords from the JOTTER_PASSWORD_* / JOTTER_ARGON2_* env surface.
func PasswordsFromEnv() (*Passwords, error) {
	cfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	return NewPasswords(cfg)
}

// Hash validates plain against the policy and returns its PHC hash.
// Policy violations are reported as OpError{Kind: ErrInvalidInput}.
func (p *Passwords) Hash(plain string) (string, error) {
	const op = "identity.HashPassword"

	enc, err := p.cfg.Hash(plain)
	if err != nil {
		switch {
		case errors.Is(err, password.ErrPasswordTooShort):
			return "", OpError{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf("password must be at least %d characters", p.cfg.Policy.MinLength)}
		case errors.Is(err, password.ErrPasswordTooLong):
			return "", OpError{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf("password must be at most %d characters", p.cfg.Policy.MaxLength)}
		default:
			return "", err
		}
	}
	return enc, nil
}

// Verify reports whether plain matches encoded.
func (p *Passwords) Verify(encoded, plain string) (bool, error) {
	return p.cfg.Verify(encoded, plain)
}

// VerifyDummy burns one verification against the dummy hash.
func (p *Passwords) VerifyDummy(plain string) {
	_, _ = p.cfg.Verify(p.dummy, plain)
}
