// Package response содержит единый формат JSON-ответов HTTP-обработчиков
// и сопоставление ошибок домена со статусами HTTP.
package response

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Response описывает стандартную структуру JSON-ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (при неуспехе).
// Поле Data — данные ответа (при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

var statuses = []struct {
	err    error
	status int
}{
	{models.ErrDuplicateUser, http.StatusConflict},
	{models.ErrProjectExists, http.StatusConflict},
	{models.ErrAcceleratorExists, http.StatusConflict},
	{models.ErrProfileExists, http.StatusConflict},
	{models.ErrStageConflict, http.StatusConflict},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrUnauthorized, http.StatusUnauthorized},
	{models.ErrAccountNotVerified, http.StatusForbidden},
	{models.ErrAccountDisabled, http.StatusForbidden},
	{models.ErrForbidden, http.StatusForbidden},
	{models.ErrRoleNotAllowed, http.StatusForbidden},
	{models.ErrInvalidOrExpiredToken, http.StatusBadRequest},
	{models.ErrAlreadyVerified, http.StatusBadRequest},
	{models.ErrStageNotComplete, http.StatusBadRequest},
	{models.ErrValidation, http.StatusBadRequest},
	{models.ErrNotFound, http.StatusNotFound},
}

// StatusFor возвращает HTTP-статус для ошибки домена. Неизвестные ошибки дают 500.
func StatusFor(err error) int {
	if sentinel, status := lookup(err); sentinel != nil {
		return status
	}
	return http.StatusInternalServerError
}

// Message возвращает текст ошибки для клиента: сообщение ошибки домена
// вместе с уточнением, без внутренних префиксов операций.
func Message(err error) string {
	sentinel, _ := lookup(err)
	if sentinel == nil {
		return "internal server error"
	}
	full := err.Error()
	if i := strings.Index(full, sentinel.Error()); i >= 0 {
		return full[i:]
	}
	return sentinel.Error()
}

func lookup(err error) (error, int) {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.err, s.status
		}
	}
	return nil, 0
}

// Fail пишет ответ с ошибкой. Ошибки 5xx логируются как Error, остальные как Info.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	render.Status(r, status)
	render.JSON(w, r, Error(Message(err)))
}

// BadRequest пишет 400 с сообщением.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(msg))
}

// OK пишет успешный ответ с данными и статусом status.
func OK(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, StatusOKWithData(data))
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко-читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "password":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least 6 characters long and contain an uppercase letter and a digit", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "min", "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must satisfy %s=%s", err.Field(), err.ActualTag(), err.Param()))
		case "gt", "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be %s %s", err.Field(), err.ActualTag(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// Invalid пишет 422 с описанием ошибок валидации.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusUnprocessableEntity)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, Error(err.Error()))
}
