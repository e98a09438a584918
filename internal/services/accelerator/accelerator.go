// Package accelerator содержит реестр университетских акселераторов.
package accelerator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Ограничения выборки списка.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Repository описывает контракт хранилища акселераторов.
type Repository interface {
	CreateAccelerator(ctx context.Context, a models.Accelerator) (*models.Accelerator, error)
	GetAccelerator(ctx context.Context, id int64) (*models.Accelerator, error)
	ListAccelerators(ctx context.Context, filter models.AcceleratorFilter) ([]*models.Accelerator, error)
	UpdateAccelerator(ctx context.Context, id int64, patch models.AcceleratorPatch) (*models.Accelerator, error)
	ToggleAccelerator(ctx context.Context, id int64) (*models.Accelerator, error)
	DeleteAccelerator(ctx context.Context, id int64) error
}

// Service реализует операции над акселераторами.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает сервис акселераторов.
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create регистрирует акселератор. Название университета уникально без учёта регистра.
func (s *Service) Create(ctx context.Context, a models.Accelerator) (*models.Accelerator, error) {
	const op = "accelerator.Create"

	a.University = strings.TrimSpace(a.University)
	if a.University == "" {
		return nil, fmt.Errorf("%s: %w: university is required", op, models.ErrValidation)
	}
	created, err := s.repo.CreateAccelerator(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("accelerator created", slog.String("op", op), slog.Int64("id", created.ID))
	return created, nil
}

// Get возвращает акселератор по ID.
func (s *Service) Get(ctx context.Context, id int64) (*models.Accelerator, error) {
	const op = "accelerator.Get"

	a, err := s.repo.GetAccelerator(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// Search возвращает страницу акселераторов, упорядоченную по университету.
func (s *Service) Search(ctx context.Context, filter models.AcceleratorFilter) ([]*models.Accelerator, error) {
	const op = "accelerator.Search"

	if filter.Skip < 0 || filter.Limit < 0 {
		return nil, fmt.Errorf("%s: %w: skip and limit must not be negative", op, models.ErrValidation)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultLimit
	}
	filter.Limit = min(filter.Limit, MaxLimit)
	filter.Search = strings.TrimSpace(filter.Search)

	list, err := s.repo.ListAccelerators(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Update применяет частичное изменение.
func (s *Service) Update(ctx context.Context, id int64, patch models.AcceleratorPatch) (*models.Accelerator, error) {
	const op = "accelerator.Update"

	if patch.Empty() {
		return s.Get(ctx, id)
	}
	if patch.University.Set {
		patch.University.Value = strings.TrimSpace(patch.University.Value)
		if patch.University.Null || patch.University.Value == "" {
			return nil, fmt.Errorf("%s: %w: university cannot be empty", op, models.ErrValidation)
		}
	}
	if patch.IsActive.Null {
		return nil, fmt.Errorf("%s: %w: is_active cannot be null", op, models.ErrValidation)
	}

	a, err := s.repo.UpdateAccelerator(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// ToggleStatus инвертирует признак активности.
func (s *Service) ToggleStatus(ctx context.Context, id int64) (*models.Accelerator, error) {
	const op = "accelerator.ToggleStatus"

	a, err := s.repo.ToggleAccelerator(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("accelerator status toggled", slog.String("op", op), slog.Int64("id", id), slog.Bool("is_active", a.IsActive))
	return a, nil
}

// Delete удаляет акселератор.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "accelerator.Delete"

	if err := s.repo.DeleteAccelerator(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("accelerator deleted", slog.String("op", op), slog.Int64("id", id))
	return nil
}
