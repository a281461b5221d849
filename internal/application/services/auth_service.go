package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/ports"
)

// AuthService checks admin credentials against the stored bcrypt hashes
type AuthService struct {
	users  ports.UserRepository
	logger *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users ports.UserRepository, logger *logger.Logger) *AuthService {
	return &AuthService{
		users:  users,
		logger: logger.WithComponent("auth"),
	}
}

// Authenticate returns the matching user. Unknown usernames and wrong
// passwords both yield ErrInvalidCredentials; storage failures are wrapped.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			s.logger.Warnw("Login attempt with unknown username", "username", username)
			return nil, entities.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "username", username)
		return nil, entities.ErrInvalidCredentials
	}

	s.logger.Infow("User authenticated", "username", username)

	return user, nil
}
