// Package metrics содержит Prometheus-метрики сервиса и middleware
// для измерения HTTP-запросов.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервиса. Регистрируются в реестре по умолчанию.
var (
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accelerator",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Auth operations by event and result.",
	}, []string{"event", "result"})

	TokenRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accelerator",
		Subsystem: "auth",
		Name:      "token_rejections_total",
		Help:      "Rejected tokens by kind and reason.",
	}, []string{"kind", "reason"})

	EmailsQueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accelerator",
		Subsystem: "email",
		Name:      "dispatch_total",
		Help:      "Email dispatch attempts by template and result.",
	}, []string{"template", "result"})

	StageAdvances = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accelerator",
		Subsystem: "research",
		Name:      "stage_advances_total",
		Help:      "Research tracker advance attempts by result.",
	}, []string{"result"})

	TokensPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "accelerator",
		Subsystem: "auth",
		Name:      "tokens_purged_total",
		Help:      "One-time tokens removed after use or expiry.",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "accelerator",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern, method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// Result возвращает метку результата для счётчиков.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Instrument измеряет длительность запросов. Маршрут берётся из шаблона chi,
// чтобы идентификаторы в пути не порождали новые серии.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPDuration.WithLabelValues(route, r.Method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
