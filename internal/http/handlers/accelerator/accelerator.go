// Package accelerator реализует HTTP-обработчики каталога акселераторов.
package accelerator

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/request"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики акселераторов.
type Service interface {
	Create(ctx context.Context, a models.Accelerator) (*models.Accelerator, error)
	Get(ctx context.Context, id int64) (*models.Accelerator, error)
	Search(ctx context.Context, filter models.AcceleratorFilter) ([]*models.Accelerator, error)
	Update(ctx context.Context, id int64, patch models.AcceleratorPatch) (*models.Accelerator, error)
	ToggleStatus(ctx context.Context, id int64) (*models.Accelerator, error)
	Delete(ctx context.Context, id int64) error
}

// CreateRequest — данные нового акселератора. По умолчанию акселератор активен.
type CreateRequest struct {
	University  string  `json:"university" validate:"required,max=255"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// Handler обрабатывает запросы /accelerators/*.
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
// @Summary Создание акселератора
// @Tags Accelerators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Акселератор"
// @Success 201 {object} response.Response{data=models.Accelerator}
// @Failure 409 {object} response.ErrorResponse "Университет уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse
// @Router /accelerators [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.accelerator.Create")

	var req CreateRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	a := models.Accelerator{University: req.University, Description: req.Description, IsActive: true}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}

	created, err := h.service.Create(r.Context(), a)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusCreated, created)
}

// List godoc
// @Summary Поиск акселераторов
// @Tags Accelerators
// @Produce json
// @Security BearerAuth
// @Param search query string false "Подстрока названия университета"
// @Param active_only query bool false "Только активные"
// @Param skip query int false "Смещение"
// @Param limit query int false "Размер страницы (по умолчанию 100, не более 1000)"
// @Success 200 {object} response.Response{data=[]models.Accelerator}
// @Router /accelerators [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.accelerator.List")

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
	activeOnly, err := request.Bool(r, "active_only", false)
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}

	list, err := h.service.Search(r.Context(), models.AcceleratorFilter{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: activeOnly,
		Skip:       skip,
		Limit:      limit,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if list == nil {
		list = []*models.Accelerator{}
	}
	response.OK(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Акселератор по ID
// @Tags Accelerators
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID акселератора"
// @Success 200 {object} response.Response{data=models.Accelerator}
// @Failure 404 {object} response.ErrorResponse
// @Router /accelerators/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.accelerator.Get")

	id, err := request.ID(r, "id")
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, a)
}

// Update godoc
// @Summary Частичное обновление акселератора
// @Description Изменяются только переданные поля.
// @Tags Accelerators
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID акселератора"
// @Param request body models.AcceleratorPatch true "Изменяемые поля"
// @Success 200 {object} response.Response{data=models.Accelerator}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /accelerators/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.accelerator.Update")

	id, err := request.ID(r, "id")
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	var patch models.AcceleratorPatch
	if err := request.DecodeJSON(r, &patch); err != nil {
		response.BadRequest(w, r, "invalid request body")
		return
	}
	a, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, a)
}

// ToggleStatus godoc
// @Summary Переключение активности акселератора
// @Tags Accelerators
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID акселератора"
// @Success 200 {object} response.Response{data=models.Accelerator}
// @Failure 404 {object} response.ErrorResponse
// @Router /accelerators/{id}/toggle-status [post]
func (h *Handler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.accelerator.ToggleStatus")

	id, err := request.ID(r, "id")
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	a, err := h.service.ToggleStatus(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, a)
}

// Delete godoc
// @Summary Удаление акселератора
// @Description Проекты акселератора остаются, ссылка на него обнуляется.
// @Tags Accelerators
// @Security BearerAuth
// @Param id path int true "ID акселератора"
// @Success 204
// @Failure 404 {object} response.ErrorResponse
// @Router /accelerators/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.accelerator.Delete")

	id, err := request.ID(r, "id")
	if err != nil {
		response.BadRequest(w, r, err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
