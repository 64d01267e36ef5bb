package service

import (
	"context"
	"strings"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var emailValidator = validator.New()

type UserService struct {
	repo   domain.UserRepository
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, logger *zerolog.Logger) *UserService {
	b := newBase(nil, nil, logger)
	return &UserService{
		repo:   repo,
		logger: b.logger,
	}
}

func validateEmail(email string) error {
	if isBlank(email) {
		return invalidf("email is required")
	}
	if err := emailValidator.Var(email, "email"); err != nil {
		return invalidf("email %q is malformed", email)
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	user.Email = strings.TrimSpace(user.Email)
	if err := validateEmail(user.Email); err != nil {
		return nil, err
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("user_id", user.ID).Msg("user created")
	return user, nil
}

// UpdateUser applies a partial update. Blank fields are ignored; keeping
// one's own email is not a conflict.
func (s *UserService) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if patch.Name != nil && !isBlank(*patch.Name) && *patch.Name != user.Name {
		user.Name = *patch.Name
		changed = true
	}
	if patch.Email != nil && !isBlank(*patch.Email) {
		email := strings.TrimSpace(*patch.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			user.Email = email
			changed = true
		}
	}
	if !changed {
		return user, nil
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

var _ domain.UserService = (*UserService)(nil)
