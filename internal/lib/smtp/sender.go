package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

var errNoStartTLS = errors.New("STARTTLS extension is not advertised")

// Sender отправляет письма через транспорт.
type Sender struct {
	transport TransportInterface
	log       *slog.Logger
}

// NewSender создает отправителя писем.
func NewSender(transport TransportInterface, log *slog.Logger) *Sender {
	return &Sender{transport: transport, log: log}
}

// Send отправляет письмо и сообщает об успехе. Ошибки только логируются.
func (s *Sender) Send(ctx context.Context, to, subject, body string, isHTML bool) bool {
	err := s.Deliver(ctx, models.Email{To: to, Subject: subject, Body: body, IsHTML: isHTML})
	return err == nil
}

// Deliver отправляет письмо и возвращает ошибку доставки.
func (s *Sender) Deliver(ctx context.Context, email models.Email) error {
	const op = "smtp.Sender.Deliver"
	log := s.log.With(slog.String("op", op), slog.String("to", email.To))

	if strings.ContainsAny(email.To, "\r\n") || strings.ContainsAny(email.Subject, "\r\n") {
		return fmt.Errorf("%s: header contains line break", op)
	}

	from := s.transport.From()
	msg := buildMessage(from, email)

	client, err := s.transport.Connect(ctx)
	if err != nil {
		log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Rcpt(email.To); err != nil {
		log.Error("failed to set RCPT TO", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		log.Error("failed to get Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		log.Error("failed to close Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("email sent successfully")
	return nil
}

func buildMessage(from string, email models.Email) string {
	contentType := `text/plain; charset="UTF-8"`
	if email.IsHTML {
		contentType = `text/html; charset="UTF-8"`
	}
	return strings.Join([]string{
		"From: " + from,
		"To: " + email.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", email.Subject),
		"MIME-Version: 1.0",
		"Content-Type: " + contentType,
		"",
		email.Body,
	}, "\r\n")
}
