// Package admin реализует HTTP-обработчики управления администраторами
// и блокировки пользователей.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/request"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// Service описывает интерфейс бизнес-логики администрирования.
type Service interface {
	CreateAdmin(ctx context.Context, email, password string) (*models.User, error)
	DeleteAdmin(ctx context.Context, actor *rbac.Identity, email string) error
	SetDisabled(ctx context.Context, actor *rbac.Identity, email string, disabled bool) (*models.User, error)
}

// CreateAdminRequest — данные нового администратора.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

// Handler обрабатывает запросы /admin/*.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: request.NewValidator()}
}

// CreateAdmin godoc
// @Summary Создание администратора
// @Description Доступно только суперадминистратору. Администратор создаётся подтверждённым.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAdminRequest true "Email и пароль"
// @Success 201 {object} response.Response{data=models.PublicUser}
// @Failure 403 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/admins [post]
func (h *Handler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.admin.CreateAdmin")

	var req CreateAdminRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	user, err := h.service.CreateAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusCreated, user.Public())
}

// DeleteAdmin godoc
// @Summary Удаление администратора
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email администратора"
// @Success 204
// @Failure 400 {object} response.ErrorResponse "Попытка удалить себя или не администратора"
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/admins/{email} [delete]
func (h *Handler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.admin.DeleteAdmin")

	actor, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.DeleteAdmin(r.Context(), actor, chi.URLParam(r, "email")); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Disable godoc
// @Summary Блокировка пользователя
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{email}/disable [post]
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, "handlers.admin.Disable", true)
}

// Enable godoc
// @Summary Разблокировка пользователя
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/users/{email}/enable [post]
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	h.setDisabled(w, r, "handlers.admin.Enable", false)
}

func (h *Handler) setDisabled(w http.ResponseWriter, r *http.Request, op string, disabled bool) {
	log := request.Logger(h.log, r, op)

	actor, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	user, err := h.service.SetDisabled(r.Context(), actor, chi.URLParam(r, "email"), disabled)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, user.Public())
}
