// Package project реализует HTTP-обработчики проектов пользователя.
package project

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/request"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
	projectsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/project"
)

// Service описывает интерфейс бизнес-логики проектов.
type Service interface {
	Create(ctx context.Context, actor *rbac.Identity, in projectsvc.Input) (*models.Project, error)
	List(ctx context.Context, actor *rbac.Identity, skip, limit int) ([]*models.Project, error)
	Get(ctx context.Context, actor *rbac.Identity, id int64) (*models.Project, error)
	Update(ctx context.Context, actor *rbac.Identity, id int64, patch models.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, actor *rbac.Identity, id int64) error
}

// CreateRequest — данные нового проекта. Без stage проект начинается с первого этапа своего типа.
type CreateRequest struct {
	Name          string             `json:"name" validate:"required,max=255"`
	Description   *string            `json:"description"`
	Type          models.ProjectType `json:"type" validate:"required,oneof=applied research business"`
	Stage         string             `json:"stage"`
	AcceleratorID *int64             `json:"accelerator_id" validate:"omitempty,gt=0"`
}

// Handler обрабатывает запросы /projects/*.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: request.NewValidator()}
}

// Create godoc
// @Summary Создание проекта
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Проект"
// @Success 201 {object} response.Response{data=models.Project}
// @Failure 400 {object} response.ErrorResponse "Недопустимый этап или акселератор"
// @Failure 409 {object} response.ErrorResponse "Имя проекта занято"
// @Failure 422 {object} response.ErrorResponse
// @Router /projects [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.project.Create")

	actor, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var req CreateRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), actor, projectsvc.Input{
		Name:          req.Name,
		Description:   req.Description,
		Type:          req.Type,
		Stage:         req.Stage,
		AcceleratorID: req.AcceleratorID,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusCreated, p)
}

// List godoc
// @Summary Список проектов
// @Description Пользователь видит свои проекты, администраторы видят все.
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Смещение"
// @Param limit query int false "Размер страницы"
// @Success 200 {object} response.Response{data=[]models.Project}
// @Router /projects [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.project.List")

	actor, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	skip, err := request.Int(r, "skip", 0)
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	limit, err := request.Int(r, "limit", 0)
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}

	list, err := h.service.List(r.Context(), actor, skip, limit)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if list == nil {
		list = []*models.Project{}
	}
	response.OK(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Проект по ID
// @Tags Projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 200 {object} response.Response{data=models.Project}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.project.Get")

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, p)
}

// Update godoc
// @Summary Частичное обновление проекта
// @Description Смена типа без этапа сбрасывает недопустимый этап на первый этап нового типа.
// @Tags Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param request body models.ProjectPatch true "Изменяемые поля"
// @Success 200 {object} response.Response{data=models.Project}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.project.Update")

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	var patch models.ProjectPatch
	if err := request.DecodeJSON(r, &patch); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}
	p, err := h.service.Update(r.Context(), actor, id, patch)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, p)
}

// Delete godoc
// @Summary Удаление проекта
// @Description Вместе с проектом удаляются трекер исследования и ответы.
// @Tags Projects
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.project.Delete")

	actor, id, ok := h.target(w, r, log)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*rbac.Identity, int64, bool) {
	actor, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return nil, 0, false
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return nil, 0, false
	}
	return actor, id, true
}
