// Package mailer формирует письма платформы и доставляет письма из очереди.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/metrics"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

const (
	templateVerification  = "verification"
	templatePasswordReset = "password_reset"
)

// EmailSender отправляет письмо и сообщает об успехе.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, isHTML bool) bool
}

// Notifier составляет письма со ссылками на фронтенд и передаёт их отправителю.
// Неудачная отправка только логируется и учитывается в метриках.
type Notifier struct {
	sender      EmailSender
	frontendURL string
	log         *slog.Logger
}

// NewNotifier создаёт Notifier для фронтенда по адресу frontendURL.
func NewNotifier(sender EmailSender, frontendURL string, log *slog.Logger) *Notifier {
	return &Notifier{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log,
	}
}

// VerificationLink возвращает ссылку подтверждения почты.
func (n *Notifier) VerificationLink(token string) string {
	return n.frontendURL + "/auth/verify-email?token=" + url.QueryEscape(token)
}

// PasswordResetLink возвращает ссылку сброса пароля.
func (n *Notifier) PasswordResetLink(token string) string {
	return n.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

// SendVerification отправляет письмо подтверждения почты.
func (n *Notifier) SendVerification(ctx context.Context, to, token string) bool {
	link := n.VerificationLink(token)
	subject := "Подтверждение электронной почты"
	body := fmt.Sprintf(`<p>Здравствуйте!</p>
<p>Для завершения регистрации подтвердите адрес электронной почты, перейдя по ссылке:</p>
<p><a href="%s">%s</a></p>
<p>Если вы не регистрировались на платформе, просто проигнорируйте это письмо.</p>`, link, link)
	return n.send(ctx, templateVerification, to, subject, body)
}

// SendPasswordReset отправляет письмо сброса пароля.
func (n *Notifier) SendPasswordReset(ctx context.Context, to, token string) bool {
	link := n.PasswordResetLink(token)
	subject := "Сброс пароля"
	body := fmt.Sprintf(`<p>Здравствуйте!</p>
<p>Мы получили запрос на сброс пароля. Чтобы задать новый пароль, перейдите по ссылке:</p>
<p><a href="%s">%s</a></p>
<p>Ссылка действует ограниченное время. Если вы не запрашивали сброс, проигнорируйте это письмо.</p>`, link, link)
	return n.send(ctx, templatePasswordReset, to, subject, body)
}

func (n *Notifier) send(ctx context.Context, template, to, subject, body string) bool {
	ok := n.sender.Send(ctx, to, subject, body, true)
	result := "ok"
	if !ok {
		result = "error"
		n.log.Error("email dispatch failed",
			slog.String("op", "mailer.Notifier.send"),
			slog.String("template", template),
			slog.String("to", to))
	}
	metrics.EmailsQueued.WithLabelValues(template, result).Inc()
	return ok
}

// Deliverer доставляет письмо адресату.
type Deliverer interface {
	Deliver(ctx context.Context, email models.Email) error
}

// Worker обрабатывает письма, полученные из очереди.
type Worker struct {
	deliverer Deliverer
	log       *slog.Logger
}

// NewWorker создаёт обработчик очереди писем.
func NewWorker(deliverer Deliverer, log *slog.Logger) *Worker {
	return &Worker{deliverer: deliverer, log: log}
}

// Handle декодирует сообщение очереди и доставляет письмо.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	const op = "mailer.Worker.Handle"
	log := w.log.With(slog.String("op", op))

	var email models.Email
	if err := json.Unmarshal(body, &email); err != nil {
		log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if email.To == "" {
		return fmt.Errorf("%s: message has no recipient", op)
	}

	if err := w.deliverer.Deliver(ctx, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("email delivered", slog.String("to", email.To))
	return nil
}
