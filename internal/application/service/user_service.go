package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// UserService manages the company roster
type UserService interface {
	Create(ctx context.Context, user entity.User) (*entity.User, error)
	Update(ctx context.Context, user entity.User) (*entity.User, error)
	Deactivate(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*entity.User, error)
	List(ctx context.Context) ([]entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *userServiceImpl) validate(ctx context.Context, user *entity.User) error {
	if user.Name == "" {
		return fmt.Errorf("user name is required")
	}
	if user.Email == "" {
		return fmt.Errorf("user email is required")
	}
	if !user.Role.IsValid() {
		return fmt.Errorf("unknown role %q", user.Role)
	}
	if user.ManagerID != "" {
		manager, err := s.userRepo.GetByID(ctx, user.ManagerID)
		if err != nil {
			return fmt.Errorf("manager %s: %w", user.ManagerID, err)
		}
		if manager.ID == user.ID {
			return fmt.Errorf("user cannot be their own manager")
		}
	}
	return nil
}

// Create validates and stores a new user
func (s *userServiceImpl) Create(ctx context.Context, user entity.User) (*entity.User, error) {
	user.ID = uuid.NewString()
	if user.Status == "" {
		user.Status = entity.UserStatusActive
	}
	if err := s.validate(ctx, &user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, &user); err != nil {
		s.logger.Error("Failed to create user", "error", err, "email", user.Email)
		return nil, err
	}

	s.logger.Info("User created", "id", user.ID, "role", user.Role)
	return &user, nil
}

// Update validates and replaces an existing user
func (s *userServiceImpl) Update(ctx context.Context, user entity.User) (*entity.User, error) {
	if _, err := s.userRepo.GetByID(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, &user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, &user); err != nil {
		s.logger.Error("Failed to update user", "error", err, "id", user.ID)
		return nil, err
	}

	s.logger.Info("User updated", "id", user.ID)
	return &user, nil
}

// Deactivate marks a user inactive. Inactive managers stop serving as
// fallback approvers for future submissions; existing chains keep them.
func (s *userServiceImpl) Deactivate(ctx context.Context, id string) error {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	user.Status = entity.UserStatusInactive
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to deactivate user", "error", err, "id", id)
		return err
	}

	s.logger.Info("User deactivated", "id", id)
	return nil
}

// Get retrieves a user by ID
func (s *userServiceImpl) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// List retrieves the full roster
func (s *userServiceImpl) List(ctx context.Context) ([]entity.User, error) {
	return s.userRepo.List(ctx)
}
