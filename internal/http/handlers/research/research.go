// Package research реализует HTTP-обработчики трекера исследования проекта:
// вопросы позиции, ответы, прогресс, переход к следующей позиции и выгрузку в XLSX.
package research

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/request"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
	researchsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/research"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service описывает интерфейс бизнес-логики исследований.
type Service interface {
	Questions(ctx context.Context, actor *rbac.Identity, projectID int64, step models.Step) ([]*models.Question, error)
	Tracker(ctx context.Context, actor *rbac.Identity, projectID int64) (*researchsvc.View, error)
	Answer(ctx context.Context, actor *rbac.Identity, projectID int64, inputs []models.AnswerInput) ([]*models.Answer, error)
	Progress(ctx context.Context, actor *rbac.Identity, projectID int64, step *models.Step) (models.Completion, error)
	Advance(ctx context.Context, actor *rbac.Identity, projectID int64, next models.Step) (*models.Tracker, error)
	Export(ctx context.Context, actor *rbac.Identity, projectID int64) (*bytes.Buffer, error)
}

// AnswersRequest — ответы на вопросы. Повторный ответ заменяет прежний.
type AnswersRequest struct {
	Answers []models.AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

// AdvanceRequest — позиция, в которую переводится трекер.
type AdvanceRequest struct {
	NextPhase string `json:"next_phase" validate:"required"`
	NextStage string `json:"next_stage" validate:"required"`
}

// Handler обрабатывает запросы /projects/{id}/research/*.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: request.NewValidator()}
}

// Tracker godoc
// @Summary Трекер исследования
// @Description Создаётся при первом обращении в позиции planning/stage_1.
// @Tags Research
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 200 {object} response.Response{data=researchsvc.View}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /projects/{id}/research [get]
func (h *Handler) Tracker(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.research.Tracker")

	actor, projectID, ok := h.target(w, r, log)
	if !ok {
		return
	}
	view, err := h.service.Tracker(r.Context(), actor, projectID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, view)
}

// Questions godoc
// @Summary Вопросы позиции
// @Tags Research
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param phase path string true "Фаза"
// @Param stage path string true "Этап"
// @Success 200 {object} response.Response{data=[]models.Question}
// @Failure 404 {object} response.ErrorResponse "Позиция неизвестна или без вопросов"
// @Router /projects/{id}/research/questions/{phase}/{stage} [get]
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.research.Questions")

	actor, projectID, ok := h.target(w, r, log)
	if !ok {
		return
	}
	step := models.Step{Phase: chi.URLParam(r, "phase"), Stage: chi.URLParam(r, "stage")}
	questions, err := h.service.Questions(r.Context(), actor, projectID, step)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, questions)
}

// Answer godoc
// @Summary Ответы на вопросы
// @Description Принимаются ответы на вопросы текущей и пройденных позиций.
// @Tags Research
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param request body AnswersRequest true "Ответы"
// @Success 200 {object} response.Response{data=[]models.Answer}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /projects/{id}/research/answers [post]
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.research.Answer")

	actor, projectID, ok := h.target(w, r, log)
	if !ok {
		return
	}
	var req AnswersRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	answers, err := h.service.Answer(r.Context(), actor, projectID, req.Answers)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, answers)
}

// Progress godoc
// @Summary Заполненность позиции
// @Description Без phase и stage возвращается текущая позиция трекера.
// @Tags Research
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param phase query string false "Фаза"
// @Param stage query string false "Этап"
// @Success 200 {object} response.Response{data=models.Completion}
// @Failure 400 {object} response.ErrorResponse
// @Router /projects/{id}/research/progress [get]
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.research.Progress")

	actor, projectID, ok := h.target(w, r, log)
	if !ok {
		return
	}
	var step *models.Step
	phase, stage := r.URL.Query().Get("phase"), r.URL.Query().Get("stage")
	switch {
	case phase == "" && stage == "":
	case phase == "" || stage == "":
		response.BadRequest(w, r, "phase and stage must be given together")
		return
	default:
		step = &models.Step{Phase: phase, Stage: stage}
	}

	completion, err := h.service.Progress(r.Context(), actor, projectID, step)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, completion)
}

// Advance godoc
// @Summary Переход к следующей позиции
// @Description Разрешён только в непосредственно следующую позицию и только после ответов на все обязательные вопросы.
// @Tags Research
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param request body AdvanceRequest true "Следующая позиция"
// @Success 200 {object} response.Response{data=models.Tracker}
// @Failure 400 {object} response.ErrorResponse "Позиция не завершена или не является следующей"
// @Failure 409 {object} response.ErrorResponse "Трекер изменён параллельно"
// @Router /projects/{id}/research/advance [post]
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.research.Advance")

	actor, projectID, ok := h.target(w, r, log)
	if !ok {
		return
	}
	var req AdvanceRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	tracker, err := h.service.Advance(r.Context(), actor, projectID, models.Step{Phase: req.NextPhase, Stage: req.NextStage})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, tracker)
}

// Export godoc
// @Summary Выгрузка исследования
// @Description XLSX со всеми вопросами учебного плана и ответами проекта.
// @Tags Research
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 200 {file} file
// @Failure 403 {object} response.ErrorResponse
// @Router /projects/{id}/research/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.research.Export")

	actor, projectID, ok := h.target(w, r, log)
	if !ok {
		return
	}
	buf, err := h.service.Export(r.Context(), actor, projectID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="research_project_%d.xlsx"`, projectID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn("failed to write export", sl.Err(err))
	}
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
