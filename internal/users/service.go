package users

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow-backend/internal/authz"
	"docflow-backend/internal/shared/auth"
	"docflow-backend/internal/shared/telemetry"
)

// Service contains business logic for users.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// CreateInput carries the fields accepted when creating a user.
type CreateInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      authz.Role
}

// UpdateInput carries the optional fields of a partial update. Nil means
// leave the field unchanged.
type UpdateInput struct {
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
	Role      *authz.Role
}

// Create validates input, hashes the password, and stores the user.
// Duplicate emails surface as ErrEmailTaken.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = authz.RoleUser
	}

	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// GetByID returns a user by ID.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID)
}

// GetByEmail returns a user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, ErrInvalidInput
	}
	return s.Repo.GetByEmail(ctx, email)
}

// List returns one page of users plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]User, int, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Update applies a partial update. Email changes re-check uniqueness through
// the repo; password changes are re-hashed.
func (s *Service) Update(ctx context.Context, userID string, in UpdateInput) (User, error) {
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if err := validateEmail(email); err != nil {
			return User{}, err
		}
		user.Email = email
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return User{}, err
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.Repo.Update(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Delete removes a user by ID.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	return s.Repo.Delete(ctx, userID)
}

// VerifyCredentials checks an email/password pair and returns the matching
// user. Unknown emails and wrong passwords are indistinguishable to callers.
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (User, error) {
	user, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return User{}, ErrNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return User{}, ErrNotFound
	}
	return user, nil
}

// EnsureAdmin creates the default admin account at startup when no user with
// the configured email exists yet.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil
	}
	user, err := s.Create(ctx, CreateInput{
		Email:    email,
		Password: password,
		Role:     authz.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	telemetry.Info("users.admin_bootstrapped", map[string]any{"user_id": user.ID})
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" || !strings.Contains(email, "@") || strings.ContainsAny(email, " \t") {
		return fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	return nil
}
