// Package auth содержит логику регистрации, входа, обновления токенов,
// подтверждения почты и сброса пароля.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/password"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/metrics"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// TokenType — тип токена в ответе входа.
const TokenType = "bearer"

// UserRepository описывает контракт хранилища пользователей и одноразовых токенов.
type UserRepository interface {
	CreateUserWithToken(ctx context.Context, user models.User, token models.OneTimeToken) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SaveToken(ctx context.Context, token models.OneTimeToken) error
	ConsumeVerification(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	ConsumeReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*models.User, error)
}

// Revoker отзывает refresh-токены по jti. RevokeOnce возвращает false,
// если токен уже был отозван.
type Revoker interface {
	RevokeOnce(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// Notifier отправляет письма со ссылками подтверждения и сброса.
type Notifier interface {
	SendVerification(ctx context.Context, to, token string) bool
	SendPasswordReset(ctx context.Context, to, token string) bool
}

// Service реализует сценарии аутентификации.
type Service struct {
	users    UserRepository
	tokens   jwt.Maker
	hasher   *password.Hasher
	revoker  Revoker
	notifier Notifier
	policy   rbac.Policy
	log      *slog.Logger
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService создает сервис аутентификации.
func NewService(users UserRepository, tokens jwt.Maker, hasher *password.Hasher, revoker Revoker,
	notifier Notifier, policy rbac.Policy, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		revoker:  revoker,
		notifier: notifier,
		policy:   policy,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register создает неподтверждённого заблокированного пользователя вместе
// с токеном подтверждения и отправляет письмо. Разрешены только роли student и teacher.
func (s *Service) Register(ctx context.Context, email, rawPassword string, role models.Role) (user *models.User, err error) {
	const op = "auth.Register"
	defer func() { metrics.AuthEvents.WithLabelValues("register", metrics.Result(err)).Inc() }()

	email = models.NormalizeEmail(email)
	if !rbac.AllowUsers.Contains(role) {
		return nil, fmt.Errorf("%s: %w: %s", op, models.ErrRoleNotAllowed, role)
	}
	if err := password.Validate(rawPassword); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}

	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	token, record, err := s.oneTimeToken(jwt.KindVerification, models.PurposeVerification, email, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err = s.users.CreateUserWithToken(ctx, models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
		Disabled:     true,
		IsVerified:   false,
	}, record)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notifier.SendVerification(ctx, email, token)
	s.log.Info("user registered", slog.String("op", op), slog.String("user_id", user.ID.String()), slog.String("role", string(role)))
	return user, nil
}

// Login проверяет учётные данные пользователя портала (student, teacher).
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*models.TokenPair, error) {
	pair, err := s.login(ctx, email, rawPassword, rbac.OpLogin)
	metrics.AuthEvents.WithLabelValues("login", metrics.Result(err)).Inc()
	return pair, err
}

// AdminLogin проверяет учётные данные администратора (admin, superadmin).
func (s *Service) AdminLogin(ctx context.Context, email, rawPassword string) (*models.TokenPair, error) {
	pair, err := s.login(ctx, email, rawPassword, rbac.OpAdminLogin)
	metrics.AuthEvents.WithLabelValues("admin_login", metrics.Result(err)).Inc()
	return pair, err
}

func (s *Service) login(ctx context.Context, email, rawPassword string, operation rbac.Operation) (*models.TokenPair, error) {
	const op = "auth.login"
	log := s.log.With(slog.String("op", op), slog.String("operation", string(operation)))

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			log.Error("failed to compare password hash", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if !s.policy.Allows(operation, user.Role) {
		log.Info("login rejected for role", slog.String("role", string(user.Role)))
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if !user.IsVerified {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountNotVerified)
	}
	if user.Disabled {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Refresh обменивает refresh-токен на новую пару. Предъявленный токен
// отзывается, повторное предъявление даёт models.ErrUnauthorized.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (pair *models.TokenPair, err error) {
	const op = "auth.Refresh"
	log := s.log.With(slog.String("op", op))
	defer func() { metrics.AuthEvents.WithLabelValues("refresh", metrics.Result(err)).Inc() }()

	claims, err := s.tokens.Validate(refreshToken, jwt.KindRefresh)
	if err != nil {
		reason := rejectionReason(err)
		metrics.TokenRejections.WithLabelValues(string(jwt.KindRefresh), reason).Inc()
		log.Info("refresh token rejected", sl.Reason(reason), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}

	user, err := s.users.GetUserByEmail(ctx, claims.Subject)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.Disabled {
		return nil, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}
	if string(user.Role) != claims.Role {
		return nil, fmt.Errorf("%s: %w: role changed", op, models.ErrUnauthorized)
	}

	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	fresh, err := s.revoker.RevokeOnce(ctx, claims.ID, ttl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !fresh {
		metrics.TokenRejections.WithLabelValues(string(jwt.KindRefresh), "reused").Inc()
		log.Warn("refresh token reuse detected", slog.String("jti", claims.ID), slog.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("%s: %w: token already used", op, models.ErrUnauthorized)
	}

	pair, err = s.issuePair(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// VerifyEmail погашает токен подтверждения и активирует пользователя.
func (s *Service) VerifyEmail(ctx context.Context, token string) (user *models.User, err error) {
	const op = "auth.VerifyEmail"
	defer func() { metrics.AuthEvents.WithLabelValues("verify_email", metrics.Result(err)).Inc() }()

	if _, err := s.tokens.Validate(token, jwt.KindVerification); err != nil {
		s.rejectOneTime(op, jwt.KindVerification, err)
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidOrExpiredToken)
	}

	user, err = s.users.ConsumeVerification(ctx, jwt.Fingerprint(token), s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email verified", slog.String("op", op), slog.String("user_id", user.ID.String()))
	return user, nil
}

// ResendVerification выпускает новый токен подтверждения для неподтверждённого
// пользователя. Результат не раскрывает, существует ли адрес.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"
	log := s.log.With(slog.String("op", op))

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		log.Debug("resend requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified {
		log.Debug("resend requested for verified user", slog.String("user_id", user.ID.String()))
		return nil
	}

	token, err := s.issueOneTime(ctx, user, jwt.KindVerification, models.PurposeVerification)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.notifier.SendVerification(ctx, user.Email, token)
	return nil
}

// RequestPasswordReset выпускает токен сброса, если пользователь существует.
// Результат не раскрывает, существует ли адрес.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	const op = "auth.RequestPasswordReset"
	defer func() { metrics.AuthEvents.WithLabelValues("password_reset_request", metrics.Result(err)).Inc() }()

	user, err := s.users.GetUserByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		s.log.Debug("password reset requested for unknown email", slog.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.issueOneTime(ctx, user, jwt.KindReset, models.PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.notifier.SendPasswordReset(ctx, user.Email, token)
	return nil
}

// ResetPassword погашает токен сброса и заменяет пароль.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (user *models.User, err error) {
	const op = "auth.ResetPassword"
	defer func() { metrics.AuthEvents.WithLabelValues("password_reset", metrics.Result(err)).Inc() }()

	if err := password.Validate(newPassword); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrValidation, err)
	}
	if _, err := s.tokens.Validate(token, jwt.KindReset); err != nil {
		s.rejectOneTime(op, jwt.KindReset, err)
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidOrExpiredToken)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err = s.users.ConsumeReset(ctx, jwt.Fingerprint(token), s.now(), hashed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", slog.String("op", op), slog.String("user_id", user.ID.String()))
	return user, nil
}

// Me возвращает текущего пользователя.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	const op = "auth.Me"

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *Service) issuePair(user *models.User) (*models.TokenPair, error) {
	access, err := s.tokens.Issue(jwt.KindAccess, user.Email, string(user.Role), 0)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(jwt.KindRefresh, user.Email, string(user.Role), 0)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenType}, nil
}

// oneTimeToken выпускает токен вида kind и запись для хранилища с его отпечатком.
func (s *Service) oneTimeToken(kind jwt.Kind, purpose models.TokenPurpose, email string, role models.Role) (string, models.OneTimeToken, error) {
	token, err := s.tokens.Issue(kind, email, string(role), 0)
	if err != nil {
		return "", models.OneTimeToken{}, err
	}
	return token, models.OneTimeToken{
		Purpose:   purpose,
		TokenHash: jwt.Fingerprint(token),
		ExpiresAt: s.now().Add(s.tokens.TTL(kind)),
	}, nil
}

func (s *Service) issueOneTime(ctx context.Context, user *models.User, kind jwt.Kind, purpose models.TokenPurpose) (string, error) {
	token, record, err := s.oneTimeToken(kind, purpose, user.Email, user.Role)
	if err != nil {
		return "", err
	}
	record.UserID = user.ID
	if err := s.users.SaveToken(ctx, record); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) rejectOneTime(op string, kind jwt.Kind, err error) {
	reason := rejectionReason(err)
	metrics.TokenRejections.WithLabelValues(string(kind), reason).Inc()
	s.log.Info("one-time token rejected", slog.String("op", op), sl.Reason(reason), sl.Err(err))
}

func rejectionReason(err error) string {
	if errors.Is(err, jwt.ErrExpired) {
		return "expired"
	}
	return "invalid"
}
