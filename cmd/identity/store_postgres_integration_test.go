package identity

import (
	"context"
	"testing"
	"time"

	"jotter/cmd/internal/pgtest"
)

// Integration tests are opt-in and require JOTTER_DATABASE_URL.

func TestPostgresStore_CreateAndGetUser(t *testing.T) {
	t.Parallel()

	pool := pgtest.Open(t)
	s, err := NewPostgresStore(pool, WithSchema(pgtest.Schema(t, pool)))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	u, err := s.CreateUser(ctx, CreateUserInput{
		Email:        "Ada@Example.com",
		Name:         "Ada  Lovelace",
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.EmailNorm != "ada@example.com" || u.Name != "Ada Lovelace" {
		t.Fatalf("unexpected normalisation: %+v", u)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.ID != u.ID || got.Email != u.Email || !got.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, u)
	}

	ua, err := s.GetUserAuthByEmail(ctx, "  ADA@example.COM ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if ua.User.ID != u.ID || ua.PasswordHash == "" {
		t.Fatalf("unexpected auth row: %+v", ua)
	}
}

func TestPostgresStore_CreateUser_ConflictEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()

	pool := pgtest.Open(t)
	s, err := NewPostgresStore(pool, WithSchema(pgtest.Schema(t, pool)))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	in := CreateUserInput{Email: "User@Example.com", Name: "u", PasswordHash: "h"}
	if _, err := s.CreateUser(ctx, in); err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	in.Email = "user@EXAMPLE.com"
	_, err = s.CreateUser(ctx, in)
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got: %v", err)
	}
	var ce ConflictError
	if ok := asConflict(err, &ce); !ok || ce.Field != "email" {
		t.Fatalf("expected email conflict, got %+v", err)
	}
}

func TestPostgresStore_DeleteUser(t *testing.T) {
	t.Parallel()

	pool := pgtest.Open(t)
	s, err := NewPostgresStore(pool, WithSchema(pgtest.Schema(t, pool)))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	u, err := s.CreateUser(ctx, CreateUserInput{Email: "gone@example.com", Name: "g", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetUserByID(ctx, u.ID); !IsNotFound(err) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := s.GetUserAuthByEmail(ctx, "gone@example.com"); !IsNotFound(err) {
		t.Fatalf("expected credentials to cascade, got %v", err)
	}
	if err := s.DeleteUser(ctx, u.ID); !IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestNewPostgresStore_Validation(t *testing.T) {
	if _, err := NewPostgresStore(nil); err == nil {
		t.Fatalf("expected error for nil pool")
	}
	if err := WithSchema("bad-schema;")(&PostgresStore{}); err == nil {
		t.Fatalf("expected invalid schema error")
	}
	if err := WithSchema("  ")(&PostgresStore{}); err == nil {
		t.Fatalf("expected empty schema error")
	}
}
