// Package request содержит общие помощники HTTP-обработчиков:
// декодирование тела, валидацию и разбор параметров пути и запроса.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/password"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
)

// ErrEmptyBody возвращается, если тело запроса отсутствует.
var ErrEmptyBody = errors.New("request body is empty")

// NewValidator создает валидатор с тегом password, проверяющим политику паролей.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return password.Validate(fl.Field().String()) == nil
	})
	return v
}

// DecodeJSON читает JSON-тело запроса в dst.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}
	return err
}

// ID разбирает положительный целочисленный параметр пути.
func ID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// Int разбирает неотрицательный целочисленный параметр запроса; отсутствующий даёт def.
func Int(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// Bool разбирает логический параметр запроса; отсутствующий даёт def.
func Bool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", name, raw)
	}
	return b, nil
}

// Bind декодирует JSON-тело в dst и валидирует его. При ошибке ответ
// 400 или 422 уже записан, и Bind возвращает false.
func Bind(w http.ResponseWriter, r *http.Request, v *validator.Validate, log *slog.Logger, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return false
	}
	return true
}

// Logger возвращает логгер запроса с op и request_id.
func Logger(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
