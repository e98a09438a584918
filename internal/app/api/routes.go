package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрирует спецификацию Swagger.
	_ "github.com/magabrotheeeer/accelerator-platform/docs"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/accelerator"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/admin"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/auth"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/health"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/profile"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/project"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/handlers/research"
	"github.com/magabrotheeeer/accelerator-platform/internal/http/middlewarectx"
	"github.com/magabrotheeeer/accelerator-platform/internal/metrics"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// Deps — зависимости маршрутов.
type Deps struct {
	Version      string
	Gate         middlewarectx.Gate
	Limiter      *middlewarectx.RateLimiter
	Auth         auth.Service
	Admin        admin.Service
	Accelerators accelerator.Service
	Profiles     profile.Service
	Projects     project.Service
	Research     research.Service
	Checks       map[string]func(context.Context) error
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Instrument,
	)

	authH := auth.New(logger, d.Auth)
	adminH := admin.New(logger, d.Admin)
	accH := accelerator.New(logger, d.Accelerators)
	profileH := profile.New(logger, d.Profiles)
	projectH := project.New(logger, d.Projects)
	researchH := research.New(logger, d.Research)

	checks := make(map[string]health.Check, len(d.Checks))
	for name, fn := range d.Checks {
		checks[name] = fn
	}

	allow := func(op rbac.Operation) func(http.Handler) http.Handler {
		return middlewarectx.Authorize(d.Gate, op, logger)
	}

	// Открытые конечные точки с ограничением частоты.
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(d.Limiter, logger))
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.Get("/auth/verify-email", authH.VerifyEmail)
		r.Post("/auth/resend-verification", authH.ResendVerification)
		r.Post("/auth/request-password-reset", authH.RequestPasswordReset)
		r.Post("/auth/reset-password", authH.ResetPassword)
		r.Post("/admin/login", authH.AdminLogin)
	})

	r.With(allow(rbac.OpMe)).Get("/auth/me", authH.Me)

	r.Route("/admin", func(r chi.Router) {
		r.With(allow(rbac.OpAdminsManage)).Post("/admins", adminH.CreateAdmin)
		r.With(allow(rbac.OpAdminsManage)).Delete("/admins/{email}", adminH.DeleteAdmin)
		r.With(allow(rbac.OpUsersSuspend)).Post("/users/{email}/disable", adminH.Disable)
		r.With(allow(rbac.OpUsersSuspend)).Post("/users/{email}/enable", adminH.Enable)
	})

	r.Route("/accelerators", func(r chi.Router) {
		r.With(allow(rbac.OpAcceleratorRead)).Get("/", accH.List)
		r.With(allow(rbac.OpAcceleratorWrite)).Post("/", accH.Create)
		r.With(allow(rbac.OpAcceleratorRead)).Get("/{id}", accH.Get)
		r.With(allow(rbac.OpAcceleratorWrite)).Patch("/{id}", accH.Update)
		r.With(allow(rbac.OpAcceleratorWrite)).Delete("/{id}", accH.Delete)
		r.With(allow(rbac.OpAcceleratorWrite)).Post("/{id}/toggle-status", accH.ToggleStatus)
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(allow(rbac.OpProfile))
		r.Get("/", profileH.Get)
		r.Post("/", profileH.Create)
		r.Put("/", profileH.Update)
		r.Patch("/", profileH.Update)
	})

	r.Route("/projects", func(r chi.Router) {
		r.With(allow(rbac.OpProjectRead)).Get("/", projectH.List)
		r.With(allow(rbac.OpProjectWrite)).Post("/", projectH.Create)
		r.With(allow(rbac.OpProjectRead)).Get("/{id}", projectH.Get)
		r.With(allow(rbac.OpProjectWrite)).Patch("/{id}", projectH.Update)
		r.With(allow(rbac.OpProjectWrite)).Delete("/{id}", projectH.Delete)

		r.Route("/{id}/research", func(r chi.Router) {
			r.With(allow(rbac.OpResearchRead)).Get("/", researchH.Tracker)
			r.With(allow(rbac.OpResearchRead)).Get("/questions/{phase}/{stage}", researchH.Questions)
			r.With(allow(rbac.OpResearchWrite)).Post("/answers", researchH.Answer)
			r.With(allow(rbac.OpResearchRead)).Get("/progress", researchH.Progress)
			r.With(allow(rbac.OpResearchWrite)).Post("/advance", researchH.Advance)
			r.With(allow(rbac.OpResearchRead)).Get("/export", researchH.Export)
		})
	})

	r.Method(http.MethodGet, "/health", health.New(logger, d.Version, checks))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
