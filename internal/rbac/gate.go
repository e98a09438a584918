package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/metrics"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// TokenValidator проверяет токены.
type TokenValidator interface {
	Validate(tokenStr string, expected jwt.Kind, roles ...string) (*jwt.CustomClaims, error)
}

// UserProvider возвращает пользователя по email.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Identity — аутентифицированный пользователь запроса.
type Identity struct {
	UserID  uuid.UUID
	Email   string
	Role    models.Role
	TokenID string
}

// Gate определяет пользователя по access-токену и проверяет политику операции.
type Gate struct {
	tokens TokenValidator
	users  UserProvider
	policy Policy
	log    *slog.Logger
}

// NewGate создаёт шлюз с заданной таблицей политик.
func NewGate(tokens TokenValidator, users UserProvider, policy Policy, log *slog.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, policy: policy, log: log}
}

// Authenticate проверяет access-токен и состояние пользователя.
// Ошибки: models.ErrUnauthorized, models.ErrAccountDisabled.
func (g *Gate) Authenticate(ctx context.Context, token string) (*Identity, error) {
	const op = "rbac.Gate.Authenticate"
	log := g.log.With(slog.String("op", op))

	if token == "" {
		metrics.TokenRejections.WithLabelValues(string(jwt.KindAccess), "missing").Inc()
		return nil, fmt.Errorf("%s: %w: missing token", op, models.ErrUnauthorized)
	}

	claims, err := g.tokens.Validate(token, jwt.KindAccess)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrExpired) {
			reason = "expired"
		}
		metrics.TokenRejections.WithLabelValues(string(jwt.KindAccess), reason).Inc()
		log.Info("access token rejected", sl.Reason(reason), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	user, err := g.users.GetUserByEmail(ctx, claims.Subject)
	if errors.Is(err, models.ErrNotFound) {
		log.Info("token subject not found", slog.String("email", claims.Subject))
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Disabled {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}
	if string(user.Role) != claims.Role {
		log.Info("token role is stale", slog.String("token_role", claims.Role), slog.String("role", string(user.Role)))
		return nil, fmt.Errorf("%s: %w: role changed", op, models.ErrUnauthorized)
	}

	return &Identity{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		TokenID: claims.ID,
	}, nil
}

// Authorize аутентифицирует запрос и проверяет, что роль пользователя
// входит в набор операции. Ошибки Authenticate плюс models.ErrForbidden.
func (g *Gate) Authorize(ctx context.Context, token string, operation Operation) (*Identity, error) {
	const op = "rbac.Gate.Authorize"

	identity, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !g.policy.Allows(operation, identity.Role) {
		return nil, fmt.Errorf("%s: %w: %s not permitted for %s", op, models.ErrForbidden, operation, identity.Role)
	}
	return identity, nil
}

// Allows сообщает, разрешена ли операция роли.
func (g *Gate) Allows(operation Operation, role models.Role) bool {
	return g.policy.Allows(operation, role)
}
