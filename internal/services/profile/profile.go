// Package profile содержит персональные данные пользователей.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/phone"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Repository описывает контракт хранилища профилей.
type Repository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
}

// Service реализует операции над профилем текущего пользователя.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает сервис профилей.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Get возвращает профиль пользователя.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "profile.Get"

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Create создает профиль. Существующий профиль даёт models.ErrProfileExists.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error) {
	const op = "profile.Create"

	if err := normalizePhone(&patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := models.Profile{UserID: userID}
	patch.Apply(&p)

	created, err := s.repo.CreateProfile(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// Update применяет частичное изменение, создавая профиль при его отсутствии.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error) {
	const op = "profile.Update"

	if err := normalizePhone(&patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.repo.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		current = &models.Profile{UserID: userID}
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	case patch.Empty():
		return current, nil
	}
	patch.Apply(current)

	saved, err := s.repo.UpsertProfile(ctx, *current)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

func normalizePhone(patch *models.ProfilePatch) error {
	if !patch.PhoneNumber.Set || patch.PhoneNumber.Null {
		return nil
	}
	normalized, err := phone.Normalize(patch.PhoneNumber.Value)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	patch.PhoneNumber.Value = normalized
	return nil
}
