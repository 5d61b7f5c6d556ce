// Package auth signs users in and out of cookie sessions.
package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/users"
)

// UserFinder looks accounts up by email or id.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	Get(ctx context.Context, id string) (*users.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	users UserFinder
	repo  Repository
}

// NewService constructs a new Service.
func NewService(users UserFinder, repo Repository) *Service {
	return &Service{users: users, repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Current returns the account behind the session, refusing disabled ones.
func (s *Service) Current(ctx context.Context, userID string) (*users.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.DeleteSession(ctx, id)
}
