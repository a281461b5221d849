package repository

import (
	"context"
	"fmt"

	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/ports"
)

// UserRepositoryImpl implements the UserRepository interface over users.json
type UserRepositoryImpl struct {
	store ports.DocumentStore
}

// NewUserRepository creates a new user repository
func NewUserRepository(store ports.DocumentStore) ports.UserRepository {
	return &UserRepositoryImpl{store: store}
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	if _, err := r.store.Load(ctx, entities.UsersDocument, &users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	if users == nil {
		users = []entities.User{}
	}

	return users, nil
}

// GetByUsername returns the first user whose name matches exactly
func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	users, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}

	return nil, entities.ErrUserNotFound
}

// Save inserts the user or replaces the account with the same username
func (r *UserRepositoryImpl) Save(ctx context.Context, user entities.User) error {
	users, err := r.List(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range users {
		if users[i].Username == user.Username {
			users[i] = user
			replaced = true
			break
		}
	}
	if !replaced {
		users = append(users, user)
	}

	if err := r.store.Save(ctx, entities.UsersDocument, users); err != nil {
		return fmt.Errorf("save user: %w", err)
	}

	return nil
}
