package rabbitmq

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// EmailSender ставит письма в очередь для воркера рассылки.
// Реализует контракт отправителя писем: неудача возвращается как false и логируется.
type EmailSender struct {
	mu    sync.Mutex
	ch    Publisher
	queue QueueConfig
	log   *slog.Logger
}

// NewEmailSender создаёт отправителя поверх канала ch.
func NewEmailSender(ch Publisher, queue QueueConfig, log *slog.Logger) *EmailSender {
	return &EmailSender{ch: ch, queue: queue, log: log}
}

// Send публикует письмо в очередь.
func (s *EmailSender) Send(ctx context.Context, to, subject, body string, isHTML bool) bool {
	const op = "rabbitmq.EmailSender.Send"
	log := s.log.With(slog.String("op", op), slog.String("to", to))

	if err := ctx.Err(); err != nil {
		log.Error("email not queued", sl.Err(err))
		return false
	}

	msg := models.Email{To: to, Subject: subject, Body: body, IsHTML: isHTML}

	s.mu.Lock()
	err := PublishMessage(s.ch, Exchange, s.queue.RoutingKey, msg)
	s.mu.Unlock()
	if err != nil {
		log.Error("failed to queue email", sl.Err(err))
		return false
	}
	log.Debug("email queued", slog.String("subject", subject))
	return true
}
