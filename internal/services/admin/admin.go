// Package admin содержит управление учётными записями администраторов
// и блокировку пользователей.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/password"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetUserDisabled(ctx context.Context, id uuid.UUID, disabled bool) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Service управляет администраторами и блокировками.
type Service struct {
	users  UserRepository
	hasher *password.Hasher
	log    *slog.Logger
}

// NewService создает сервис администрирования.
func NewService(users UserRepository, hasher *password.Hasher, log *slog.Logger) *Service {
	return &Service{users: users, hasher: hasher, log: log}
}

// CreateAdmin создает подтверждённого активного администратора.
func (s *Service) CreateAdmin(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "admin.CreateAdmin"
	return s.create(ctx, op, email, rawPassword, models.RoleAdmin)
}

// CreateSuperAdmin создает суперадминистратора. Используется утилитой командной строки.
func (s *Service) CreateSuperAdmin(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "admin.CreateSuperAdmin"
	return s.create(ctx, op, email, rawPassword, models.RoleSuperAdmin)
}

func (s *Service) create(ctx context.Context, op, email, rawPassword string, role models.Role) (*models.User, error) {
	if err := password.Validate(rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}
	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:        models.NormalizeEmail(email),
		PasswordHash: hashed,
		Role:         role,
		Disabled:     false,
		IsVerified:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account created", slog.String("op", op), slog.String("user_id", user.ID.String()), slog.String("role", string(role)))
	return user, nil
}

// DeleteAdmin удаляет администратора. Удалить себя или пользователя
// с другой ролью нельзя.
func (s *Service) DeleteAdmin(ctx context.Context, actor *rbac.Identity, email string) error {
	const op = "admin.DeleteAdmin"

	email = models.NormalizeEmail(email)
	if email == models.NormalizeEmail(actor.Email) {
		return fmt.Errorf("%s: %w: cannot delete yourself", op, models.ErrValidation)
	}
	target, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if target.Role != models.RoleAdmin {
		return fmt.Errorf("%s: %w: user is not an admin", op, models.ErrValidation)
	}
	if err := s.users.DeleteUser(ctx, target.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin deleted", slog.String("op", op), slog.String("user_id", target.ID.String()), slog.String("by", actor.Email))
	return nil
}

// SetDisabled блокирует или разблокирует пользователя. Администратор
// не может блокировать суперадминистратора, блокировать себя нельзя.
func (s *Service) SetDisabled(ctx context.Context, actor *rbac.Identity, email string, disabled bool) (*models.User, error) {
	const op = "admin.SetDisabled"

	email = models.NormalizeEmail(email)
	if email == models.NormalizeEmail(actor.Email) {
		return nil, fmt.Errorf("%s: %w: cannot change your own status", op, models.ErrValidation)
	}
	target, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if target.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	updated, err := s.users.SetUserDisabled(ctx, target.ID, disabled)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user status changed", slog.String("op", op),
		slog.String("user_id", updated.ID.String()), slog.Bool("disabled", disabled), slog.String("by", actor.Email))
	return updated, nil
}
