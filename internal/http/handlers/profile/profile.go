// Package profile реализует HTTP-обработчики персональных данных текущего пользователя.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/request"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики профилей.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Create(ctx context.Context, userID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error)
}

// Handler обрабатывает запросы /profile.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Get godoc
// @Summary Профиль текущего пользователя
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 404 {object} response.ErrorResponse "Профиль не заполнен"
// @Router /profile [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.profile.Get")

	identity, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	p, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, p)
}

// Create godoc
// @Summary Создание профиля
// @Description Телефон приводится к формату E.164.
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfilePatch true "Данные профиля"
// @Success 201 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Профиль уже существует"
// @Router /profile [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "handlers.profile.Create", http.StatusCreated, h.service.Create)
}

// Update godoc
// @Summary Изменение профиля
// @Description Изменяются только переданные поля; отсутствующий профиль создаётся.
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfilePatch true "Изменяемые поля"
// @Success 200 {object} response.Response{data=models.Profile}
// @Failure 400 {object} response.ErrorResponse
// @Router /profile [put]
// @Router /profile [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "handlers.profile.Update", http.StatusOK, h.service.Update)
}

type writeFunc func(ctx context.Context, userID uuid.UUID, patch models.ProfilePatch) (*models.Profile, error)

func (h *Handler) write(w http.ResponseWriter, r *http.Request, op string, status int, fn writeFunc) {
	log := request.Logger(h.log, r, op)

	identity, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var patch models.ProfilePatch
	if err := request.DecodeJSON(r, &patch); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}
	p, err := fn(r.Context(), identity.UserID, patch)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, status, p)
}
