// Package mailer собирает воркер рассылки: читает очередь писем
// и доставляет их через SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/accelerator-platform/internal/config"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/smtp"
	mailersvc "github.com/magabrotheeeer/accelerator-platform/internal/services/mailer"
)

// App — воркер рассылки.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	worker  *mailersvc.Worker
	workers int
	logger  *slog.Logger
}

// New подключается к RabbitMQ и объявляет очереди.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.mailer.New"

	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(cfg.RabbitMQ.Workers, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sender := smtp.NewSender(smtp.NewTransport(cfg.SMTP, logger), logger)

	return &App{
		conn:    conn,
		ch:      ch,
		worker:  mailersvc.NewWorker(sender, logger),
		workers: cfg.RabbitMQ.Workers,
		logger:  logger,
	}, nil
}

// Run разбирает очередь писем до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	handler := func(body []byte) error {
		return a.worker.Handle(ctx, body)
	}
	if err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.EmailQueue.QueueName, a.workers, a.logger, handler); err != nil {
		a.logger.Error("failed to start email consumer", sl.Err(err))
		return err
	}
	a.logger.Info("mailer started", slog.String("queue", rabbitmq.EmailQueue.QueueName), slog.Int("workers", a.workers))

	<-ctx.Done()
	a.logger.Info("mailer shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
