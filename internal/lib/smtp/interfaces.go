// Package smtp реализует доставку писем через SMTP-сервер:
// транспорт с STARTTLS и PLAIN-авторизацией и отправителя,
// выполняющего контракт send(to, subject, body, is_html) -> bool.
package smtp

import (
	"context"
	"io"
)

// Client интерфейс для SMTP клиента.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface интерфейс для SMTP транспорта.
type TransportInterface interface {
	Connect(ctx context.Context) (Client, error)
	From() string
}
