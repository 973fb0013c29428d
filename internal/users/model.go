package users

import (
	"time"

	"docflow-backend/internal/authz"
)

// User is the stored identity record. PasswordHash never leaves the package;
// handlers serialize through UserResponse.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         authz.Role
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
