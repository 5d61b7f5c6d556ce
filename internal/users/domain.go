// Package users manages the accounts that can sign in.
package users

import (
	"fmt"
	"time"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/shared"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = fmt.Errorf("users: user %w", httpx.ErrNotFound)
	// ErrEmailTaken rejects a second account with the same email.
	ErrEmailTaken = fmt.Errorf("users: email already registered: %w", httpx.ErrDuplicate)
)

// User is an account. PasswordHash never leaves the server.
type User struct {
	ID           string      `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         shared.Role `json:"role"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// CreateRequest registers an account.
type CreateRequest struct {
	Email    string      `json:"email" validate:"required,email,max=254"`
	Password string      `json:"password" validate:"required,min=8,max=72"`
	Role     shared.Role `json:"role" validate:"required,oneof=ADMIN ACCOUNTANT EMPLOYEE"`
}
