// Package api собирает HTTP-сервис платформы: хранилище, кеш, очередь писем,
// сервисы домена и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/accelerator-platform/internal/cache"
	"github.com/magabrotheeeer/accelerator-platform/internal/config"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/jwt"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/password"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/migrations"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
	acceleratorsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/accelerator"
	adminsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/admin"
	authsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/auth"
	"github.com/magabrotheeeer/accelerator-platform/internal/services/janitor"
	mailersvc "github.com/magabrotheeeer/accelerator-platform/internal/services/mailer"
	profilesvc "github.com/magabrotheeeer/accelerator-platform/internal/services/profile"
	projectsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/project"
	researchsvc "github.com/magabrotheeeer/accelerator-platform/internal/services/research"
	"github.com/magabrotheeeer/accelerator-platform/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App — HTTP-сервис платформы.
type App struct {
	server  *http.Server
	janitor *janitor.Service
	limiter *middlewarectx.RateLimiter
	logger  *slog.Logger
	db      *repository.Storage
	cache   *cache.Cache
	conn    *amqp.Connection
	ch      *amqp.Channel
}

// New подключается к зависимостям, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := repository.New(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	version, err := migrations.Run(db.DB, cfg.MigrationsPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

	redisCache, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		_ = redisCache.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		_ = redisCache.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := jwt.NewJWTMaker(cfg.JWT.Algorithm, map[jwt.Kind]jwt.KeyConfig{
		jwt.KindAccess:       {Secret: cfg.JWT.AccessSecret, TTL: cfg.JWT.AccessTTL},
		jwt.KindRefresh:      {Secret: cfg.JWT.RefreshSecret, TTL: cfg.JWT.RefreshTTL},
		jwt.KindVerification: {Secret: cfg.JWT.VerificationSecret, TTL: cfg.JWT.VerificationTTL},
		jwt.KindReset:        {Secret: cfg.JWT.ResetSecret, TTL: cfg.JWT.ResetTTL},
	})
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = db.Close()
		_ = redisCache.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	policy := rbac.DefaultPolicy()
	hasher := password.NewHasher(cfg.Password.BcryptCost)
	notifier := mailersvc.NewNotifier(rabbitmq.NewEmailSender(ch, rabbitmq.EmailQueue, logger), cfg.FrontendURL, logger)
	projects := projectsvc.NewService(db, db, policy, logger)

	limiter := middlewarectx.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 10*time.Minute)
	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Version:      cfg.Version,
		Gate:         rbac.NewGate(tokens, db, policy, logger),
		Limiter:      limiter,
		Auth:         authsvc.NewService(db, tokens, hasher, redisCache, notifier, policy, logger),
		Admin:        adminsvc.NewService(db, hasher, logger),
		Accelerators: acceleratorsvc.NewService(db, logger),
		Profiles:     profilesvc.NewService(db, logger),
		Projects:     projects,
		Research:     researchsvc.NewService(db, projects, redisCache, cfg.Cache.QuestionsTTL, logger),
		Checks: map[string]func(context.Context) error{
			"postgres": db.DB.PingContext,
			"redis":    func(ctx context.Context) error { return redisCache.Db.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server:  srv,
		janitor: janitor.NewService(db, cfg.Janitor.Interval, logger),
		limiter: limiter,
		logger:  logger,
		db:      db,
		cache:   redisCache,
		conn:    conn,
		ch:      ch,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер и закрывает соединения.
func (a *App) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(ctx)
	go a.janitor.Run(bgCtx)
	go a.limiter.Run(bgCtx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	stopBackground()
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
