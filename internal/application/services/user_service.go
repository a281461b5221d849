package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/infrastructure/logger"
	"github.com/bibliodesign/site/internal/ports"
)

// UserService handles admin account operations
type UserService struct {
	userRepo   ports.UserRepository
	validate   *validator.Validate
	bcryptCost int
	logger     *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, bcryptCost int, logger *logger.Logger) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:   userRepo,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
		logger:     logger.WithComponent("users"),
	}
}

// CreateUser hashes the password and stores the account
func (s *UserService) CreateUser(ctx context.Context, req ports.CreateUserRequest) (*entities.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}

	// Check if user already exists
	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	switch {
	case err == nil && existing != nil && !req.Replace:
		return nil, fmt.Errorf("%w: %s", entities.ErrUserExists, req.Username)
	case err != nil && !errors.Is(err, entities.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entities.User{
		Username: req.Username,
		Password: string(hashedPassword),
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.LogUserAction(user.Username, "user_saved", map[string]interface{}{"replaced": existing != nil})

	return &user, nil
}

// ListUsers returns every admin account
func (s *UserService) ListUsers(ctx context.Context) ([]entities.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
