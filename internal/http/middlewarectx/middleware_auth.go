// Package middlewarectx содержит HTTP middleware: аутентификацию по bearer-токену
// с проверкой политики операции и ограничение частоты запросов.
//
// Authorize извлекает access-токен из заголовка Authorization, передаёт его шлюзу
// RBAC и при успехе кладёт Identity пользователя в контекст запроса.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// IdentityKey — ключ аутентифицированного пользователя в контексте.
const IdentityKey Key = "identity"

// Gate проверяет токен и право на операцию.
type Gate interface {
	Authorize(ctx context.Context, token string, operation rbac.Operation) (*rbac.Identity, error)
}

// Authorize возвращает middleware, пропускающее запрос, только если
// владелец токена может выполнить операцию.
func Authorize(gate Gate, operation rbac.Operation, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authorize"
			log := log.With(
				slog.String("op", op),
				slog.String("operation", string(operation)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			identity, err := gate.Authorize(r.Context(), BearerToken(r), operation)
			if err != nil {
				response.Fail(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// BearerToken возвращает токен из заголовка Authorization или пустую строку.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// IdentityFrom возвращает пользователя, положенного в контекст Authorize.
func IdentityFrom(ctx context.Context) (*rbac.Identity, error) {
	identity, ok := ctx.Value(IdentityKey).(*rbac.Identity)
	if !ok || identity == nil {
		return nil, models.ErrUnauthorized
	}
	return identity, nil
}

// WithIdentity кладёт пользователя в контекст.
func WithIdentity(ctx context.Context, identity *rbac.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
