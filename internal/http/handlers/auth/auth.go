// Package auth реализует HTTP-обработчики регистрации, входа, обновления токенов,
// подтверждения почты и сброса пароля.
//
// Handler декодирует и валидирует тело запроса, делегирует операцию сервису
// аутентификации и возвращает JSON в едином формате пакета response.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/request"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Register(ctx context.Context, email, password string, role models.Role) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	AdminLogin(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) (*models.User, error)
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// RegisterRequest — данные регистрации.
type RegisterRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,password"`
	Role     models.Role `json:"role" validate:"required"`
}

// LoginRequest — учётные данные. username содержит email.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest — refresh-токен для обновления пары.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// EmailRequest — адрес для повторной отправки письма.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest — токен сброса и новый пароль.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// MessageResponse — ответ без данных, только с сообщением.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler обрабатывает запросы /auth/* и /admin/login.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

// Register godoc
// @Summary Регистрация пользователя
// @Description Создаёт неподтверждённого пользователя (student или teacher) и отправляет письмо подтверждения.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Данные регистрации"
// @Success 201 {object} response.Response{data=models.PublicUser}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse "Роль недоступна для регистрации"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.Register")

	var req RegisterRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user registered", slog.String("user_id", user.ID.String()))
	response.OK(w, r, http.StatusCreated, user.Public())
}

// Login godoc
// @Summary Вход пользователя портала
// @Description Принимает форму username/password (username — email) или тот же JSON. Доступно ролям student и teacher.
// @Tags Auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Email"
// @Param password formData string true "Пароль"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Failure 403 {object} response.ErrorResponse "Аккаунт не подтверждён, заблокирован или роль не допускается"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, "handlers.auth.Login", h.service.Login)
}

// AdminLogin godoc
// @Summary Вход администратора
// @Description Как /auth/login, но только для ролей admin и superadmin.
// @Tags Admin
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "Email"
// @Param password formData string true "Пароль"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 401 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/login [post]
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, "handlers.auth.AdminLogin", h.service.AdminLogin)
}

type loginFunc func(ctx context.Context, email, password string) (*models.TokenPair, error)

func (h *Handler) login(w http.ResponseWriter, r *http.Request, op string, login loginFunc) {
	log := request.Logger(h.log, r, op)

	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !request.Bind(w, r, h.validate, log, &req) {
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			response.BadRequest(w, r, "invalid form body")
			return
		}
		req = LoginRequest{Username: r.PostForm.Get("username"), Password: r.PostForm.Get("password")}
		if err := h.validate.Struct(req); err != nil {
			response.Invalid(w, r, err)
			return
		}
	}

	pair, err := login(r.Context(), req.Username, req.Password)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("login success")
	response.OK(w, r, http.StatusOK, pair)
}

// Refresh godoc
// @Summary Обновление токенов
// @Description Погашает refresh-токен и выдаёт новую пару. Повторное использование токена отклоняется.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh-токен"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.Refresh")

	var req RefreshRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, pair)
}

// VerifyEmail godoc
// @Summary Подтверждение почты
// @Tags Auth
// @Produce json
// @Param token query string true "Токен из письма"
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 400 {object} response.ErrorResponse "Токен недействителен или почта уже подтверждена"
// @Router /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.VerifyEmail")

	token := r.URL.Query().Get("token")
	if token == "" {
		response.BadRequest(w, r, "token is required")
		return
	}
	user, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, user.Public())
}

// ResendVerification godoc
// @Summary Повторная отправка письма подтверждения
// @Description Ответ одинаков для любых адресов.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} response.Response{data=MessageResponse}
// @Router /auth/resend-verification [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.ResendVerification")

	var req EmailRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, MessageResponse{
		Message: "If the account exists and is not verified, a new verification email has been sent",
	})
}

// RequestPasswordReset godoc
// @Summary Запрос сброса пароля
// @Description Ответ одинаков для любых адресов.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} response.Response{data=MessageResponse}
// @Router /auth/request-password-reset [post]
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.RequestPasswordReset")

	var req EmailRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, MessageResponse{
		Message: "If the account exists, a password reset email has been sent",
	})
}

// ResetPassword godoc
// @Summary Сброс пароля
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Токен и новый пароль"
// @Success 200 {object} response.Response{data=MessageResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.ResetPassword")

	var req ResetPasswordRequest
	if !request.Bind(w, r, h.validate, log, &req) {
		return
	}
	if _, err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.PublicUser}
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log := request.Logger(h.log, r, "handlers.auth.Me")

	identity, err := middlewarectx.IdentityFrom(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	user, err := h.service.Me(r.Context(), identity.UserID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, user.Public())
}
