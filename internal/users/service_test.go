package users

import (
	"context"
	"errors"
	"testing"

	"docflow-backend/internal/authz"
)

func TestCreateHashesPasswordAndDefaultsRole(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	user, err := svc.Create(context.Background(), CreateInput{
		Email:    "Alice@Example.com",
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if user.Role != authz.RoleUser {
		t.Fatalf("expected default role user, got %s", user.Role)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Fatalf("password not hashed: %q", user.PasswordHash)
	}
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Password: "secret1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Email: "A@B.CO", Password: "secret1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Email: "no-at-sign", Password: "secret1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for email, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Password: "short"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for password, got %v", err)
	}
}

func TestVerifyCredentials(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Password: "secret1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	user, err := svc.VerifyCredentials(ctx, "a@b.co", "secret1")
	if err != nil {
		t.Fatalf("VerifyCredentials: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("expected user %s, got %s", created.ID, user.ID)
	}

	if _, err := svc.VerifyCredentials(ctx, "a@b.co", "wrong-pass"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong password, got %v", err)
	}
	if _, err := svc.VerifyCredentials(ctx, "nobody@b.co", "secret1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Email: "a@b.co", Password: "secret1", FirstName: "Ann"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newName := "Anna"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{FirstName: &newName})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FirstName != "Anna" {
		t.Fatalf("expected first name updated, got %s", updated.FirstName)
	}
	if updated.Email != created.Email {
		t.Fatalf("email should be unchanged, got %s", updated.Email)
	}
}

func TestUpdateEmailConflict(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateInput{Email: "first@b.co", Password: "secret1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.Create(ctx, CreateInput{Email: "second@b.co", Password: "secret1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	taken := "first@b.co"
	if _, err := svc.Update(ctx, second.ID, UpdateInput{Email: &taken}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.EnsureAdmin(ctx, "admin@b.co", "secret1"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	if err := svc.EnsureAdmin(ctx, "admin@b.co", "secret1"); err != nil {
		t.Fatalf("EnsureAdmin second run: %v", err)
	}

	admin, err := repo.GetByEmail(ctx, "admin@b.co")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if admin.Role != authz.RoleAdmin {
		t.Fatalf("expected admin role, got %s", admin.Role)
	}

	_, total, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly one user, got %d", total)
	}
}

func TestEnsureAdminSkipsWhenUnconfigured(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.EnsureAdmin(context.Background(), "", ""); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	_, total, _ := repo.List(context.Background(), 10, 0)
	if total != 0 {
		t.Fatalf("expected no users, got %d", total)
	}
}
