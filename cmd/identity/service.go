package identity

import (
	"context"
	"strings"
	"time"
)

// Service implements registration and primary-credential login over a Store.
type Service struct {
	store     Store
	passwords *Passwords
}

// NewService wires a Service.
func NewService(store Store, passwords *Passwords) *Service {
	return &Service{store: store, passwords: passwords}
}

// Store returns the underlying Store.
func (s *Service) Store() Store { return s.store }

// RegisterInput is the primary-credential registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Now      time.Time
}

// Register validates input, hashes the password and creates the user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	const op = "identity.Register"

	if !ValidEmail(in.Email) {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "invalid email"}
	}
	name := NormalizeName(in.Name)
	if !validName(name) {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name must be 1-100 characters"}
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return User{}, err
	}

	return s.store.CreateUser(ctx, CreateUserInput{
		Email:        strings.TrimSpace(in.Email),
		Name:         name,
		PasswordHash: hash,
		Now:          in.Now,
	})
}

// Login checks primary credentials.
//
// Unknown email and wrong password both return ErrInvalidCredentials, and an
// unknown email still performs one password verification.
func (s *Service) Login(ctx context.Context, email, plain string) (User, error) {
	const op = "identity.Login"

	ua, err := s.store.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			s.passwords.VerifyDummy(plain)
			return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
		}
		return User{}, err
	}

	ok, err := s.passwords.Verify(ua.PasswordHash, plain)
	if err != nil {
		return User{}, err
	}
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	return ua.User, nil
}
