// Package service implements the application use cases on top of the
// repository ports, the cache and the blob store. Services own the
// business rules; handlers stay thin.
package service

import (
	"context"

	"go.uber.org/zap"

	"clusterize-backend/internal/domain"
	apperrors "clusterize-backend/internal/errors"
	"clusterize-backend/internal/repository"
)

// UserService maps external identities to local user accounts.
type UserService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, logger: logger}
}

// EnsureUser returns the user mapped to the external identity, creating
// the account on first contact.
func (s *UserService) EnsureUser(ctx context.Context, authID, email string) (*domain.User, error) {
	if authID == "" {
		return nil, apperrors.Validation("AUTH_ID_REQUIRED", "auth id is required")
	}

	user, err := s.users.FindByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	created, err := s.users.Create(ctx, authID, email)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, apperrors.Internal("USER_CREATE_FAILED", "user insert returned no row")
	}
	s.logger.Info("user created", zap.Int64("user_id", created.ID))
	return created, nil
}

// GetUser returns the user mapped to the external identity.
func (s *UserService) GetUser(ctx context.Context, authID string) (*domain.User, error) {
	user, err := s.users.FindByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	return user, nil
}

// DeleteUser removes the user mapped to the external identity.
func (s *UserService) DeleteUser(ctx context.Context, authID string) error {
	user, err := s.users.FindByAuthID(ctx, authID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	if err := s.users.Delete(ctx, authID); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.Int64("user_id", user.ID))
	return nil
}
