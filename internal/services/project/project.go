// Package project содержит реестр проектов: создание, чтение, изменение
// и удаление с проверкой владельца.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// Ограничения выборки списка.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Repository описывает контракт хранилища проектов.
type Repository interface {
	CreateProject(ctx context.Context, p models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id int64) (*models.Project, error)
	ListProjects(ctx context.Context, owner uuid.UUID, skip, limit int) ([]*models.Project, error)
	UpdateProject(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id int64) error
}

// AcceleratorLookup проверяет существование акселератора.
type AcceleratorLookup interface {
	GetAccelerator(ctx context.Context, id int64) (*models.Accelerator, error)
}

// Input — данные нового проекта. Пустой Stage означает первый этап типа.
type Input struct {
	Name          string
	Description   *string
	Type          models.ProjectType
	Stage         string
	AcceleratorID *int64
}

// Service реализует операции над проектами.
type Service struct {
	repo         Repository
	accelerators AcceleratorLookup
	policy       rbac.Policy
	log          *slog.Logger
}

// NewService создает сервис проектов.
func NewService(repo Repository, accelerators AcceleratorLookup, policy rbac.Policy, log *slog.Logger) *Service {
	return &Service{repo: repo, accelerators: accelerators, policy: policy, log: log}
}

// Create создает проект, владельцем которого становится actor.
func (s *Service) Create(ctx context.Context, actor *rbac.Identity, in Input) (*models.Project, error) {
	const op = "project.Create"

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%s: %w: name is required", op, models.ErrValidation)
	}
	if !ValidType(in.Type) {
		return nil, fmt.Errorf("%s: %w: unknown project type %q", op, models.ErrValidation, in.Type)
	}
	if in.Stage == "" {
		in.Stage = DefaultStage(in.Type)
	}
	if !ValidStage(in.Type, in.Stage) {
		return nil, fmt.Errorf("%s: %w: stage %q is not valid for %s projects", op, models.ErrValidation, in.Stage, in.Type)
	}
	if in.AcceleratorID != nil {
		if err := s.checkAccelerator(ctx, *in.AcceleratorID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	p, err := s.repo.CreateProject(ctx, models.Project{
		Name:          in.Name,
		Description:   in.Description,
		Type:          in.Type,
		Stage:         in.Stage,
		OwnerID:       actor.UserID,
		AcceleratorID: in.AcceleratorID,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("project created", slog.String("op", op), slog.Int64("id", p.ID), slog.String("owner", actor.UserID.String()))
	return p, nil
}

// List возвращает проекты actor; администраторам доступны все проекты.
func (s *Service) List(ctx context.Context, actor *rbac.Identity, skip, limit int) ([]*models.Project, error) {
	const op = "project.List"

	if skip < 0 || limit < 0 {
		return nil, fmt.Errorf("%s: %w: skip and limit must not be negative", op, models.ErrValidation)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	owner := actor.UserID
	if s.policy.Allows(rbac.OpProjectAny, actor.Role) {
		owner = uuid.Nil
	}
	list, err := s.repo.ListProjects(ctx, owner, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Get возвращает проект, если actor его владелец или администратор.
func (s *Service) Get(ctx context.Context, actor *rbac.Identity, id int64) (*models.Project, error) {
	const op = "project.Get"

	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !s.canAccess(actor, p) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	return p, nil
}

// Update применяет частичное изменение. При смене типа без явного этапа
// этап сбрасывается на первый этап нового типа, если текущий для него недопустим.
func (s *Service) Update(ctx context.Context, actor *rbac.Identity, id int64, patch models.ProjectPatch) (*models.Project, error) {
	const op = "project.Update"

	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	if patch.Name.Set {
		patch.Name.Value = strings.TrimSpace(patch.Name.Value)
		if patch.Name.Null || patch.Name.Value == "" {
			return nil, fmt.Errorf("%s: %w: name cannot be empty", op, models.ErrValidation)
		}
	}

	typ := current.Type
	if patch.Type.Set {
		if patch.Type.Null || !ValidType(patch.Type.Value) {
			return nil, fmt.Errorf("%s: %w: unknown project type", op, models.ErrValidation)
		}
		typ = patch.Type.Value
	}
	switch {
	case patch.Stage.Set:
		if patch.Stage.Null || !ValidStage(typ, patch.Stage.Value) {
			return nil, fmt.Errorf("%s: %w: stage is not valid for %s projects", op, models.ErrValidation, typ)
		}
	case !ValidStage(typ, current.Stage):
		patch.Stage = models.Some(DefaultStage(typ))
	}

	if patch.AcceleratorID.Set && !patch.AcceleratorID.Null {
		if err := s.checkAccelerator(ctx, patch.AcceleratorID.Value); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	updated, err := s.repo.UpdateProject(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete удаляет проект вместе с трекером исследования.
func (s *Service) Delete(ctx context.Context, actor *rbac.Identity, id int64) error {
	const op = "project.Delete"

	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("project deleted", slog.String("op", op), slog.Int64("id", id))
	return nil
}

func (s *Service) canAccess(actor *rbac.Identity, p *models.Project) bool {
	return p.OwnerID == actor.UserID || s.policy.Allows(rbac.OpProjectAny, actor.Role)
}

func (s *Service) checkAccelerator(ctx context.Context, id int64) error {
	_, err := s.accelerators.GetAccelerator(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: accelerator %d does not exist", models.ErrValidation, id)
	}
	return err
}
