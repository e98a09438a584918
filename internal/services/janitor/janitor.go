// Package janitor периодически удаляет погашенные и истёкшие одноразовые токены.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/metrics"
)

// TokenRepository описывает контракт хранилища токенов.
type TokenRepository interface {
	PurgeTokens(ctx context.Context, now time.Time) (int64, error)
}

// Service очищает таблицу одноразовых токенов.
type Service struct {
	repo     TokenRepository
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewService создает сервис очистки.
func NewService(repo TokenRepository, interval time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Run выполняет очистку сразу и затем раз в interval, пока ctx не отменён.
func (s *Service) Run(ctx context.Context) {
	s.runPurge(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPurge(ctx)
		}
	}
}

// Purge удаляет токены, которые уже нельзя предъявить.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	const op = "janitor.Purge"

	n, err := s.repo.PurgeTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	metrics.TokensPurged.Add(float64(n))
	return n, nil
}

func (s *Service) runPurge(ctx context.Context) {
	n, err := s.Purge(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("failed to purge tokens", sl.Err(err))
		}
		return
	}
	if n > 0 {
		s.log.Info("purged one-time tokens", slog.Int64("count", n))
	}
}
