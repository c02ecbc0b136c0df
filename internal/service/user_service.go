package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/jobmarket-backend/internal/models"
	"github.com/ignatzorin/jobmarket-backend/internal/validation"
)

// UserRepository описывает зависимости UserService от слоя хранилища.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

// UserService содержит бизнес-логику профилей пользователей.
type UserService struct {
	repo UserRepository
}

// NewUserService создаёт сервис профилей.
func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

// UpdateProfileInput — редактируемые поля профиля.
type UpdateProfileInput struct {
	Name       string
	Skills     []string
	Bio        *string
	Location   *string
	HourlyRate *float64
}

// GetByID возвращает пользователя.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile обновляет профиль пользователя.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		if err := validation.ValidateLength("имя", in.Name, validation.MinNameLength, validation.MaxNameLength); err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		user.Name = in.Name
	}
	if in.Skills != nil {
		if err := validation.ValidateSkills(in.Skills); err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		user.Skills = in.Skills
	}
	if in.Bio != nil {
		user.Bio = in.Bio
	}
	if in.Location != nil {
		user.Location = in.Location
	}
	if in.HourlyRate != nil {
		if err := validation.ValidateAmount("почасовая ставка", *in.HourlyRate, 0); err != nil {
			return nil, fmt.Errorf("user service: %w", err)
		}
		user.HourlyRate = in.HourlyRate
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
