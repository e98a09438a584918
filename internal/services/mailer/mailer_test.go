package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to, subject, body string, isHTML bool) bool {
	args := m.Called(ctx, to, subject, body, isHTML)
	return args.Bool(0)
}

type MockDeliverer struct {
	mock.Mock
}

func (m *MockDeliverer) Deliver(ctx context.Context, email models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func TestNotifier_Links(t *testing.T) {
	n := NewNotifier(new(MockEmailSender), "https://front.example.com/", newNoopLogger())

	assert.Equal(t, "https://front.example.com/auth/verify-email?token=a.b%2Bc",
		n.VerificationLink("a.b+c"))
	assert.Equal(t, "https://front.example.com/reset-password?token=abc",
		n.PasswordResetLink("abc"))
}

func TestNotifier_Send(t *testing.T) {
	tests := []struct {
		name     string
		send     func(n *Notifier) bool
		wantLink string
		result   bool
	}{
		{
			name:     "verification delivered",
			send:     func(n *Notifier) bool { return n.SendVerification(context.Background(), "a@b.c", "tok") },
			wantLink: "http://localhost:3000/auth/verify-email?token=tok",
			result:   true,
		},
		{
			name:     "reset failure reported",
			send:     func(n *Notifier) bool { return n.SendPasswordReset(context.Background(), "a@b.c", "tok") },
			wantLink: "http://localhost:3000/reset-password?token=tok",
			result:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := new(MockEmailSender)
			sender.On("Send", mock.Anything, "a@b.c", mock.AnythingOfType("string"),
				mock.MatchedBy(func(body string) bool {
					return assert.Contains(t, body, tt.wantLink)
				}), true).Return(tt.result).Once()

			n := NewNotifier(sender, "http://localhost:3000", newNoopLogger())
			assert.Equal(t, tt.result, tt.send(n))
			sender.AssertExpectations(t)
		})
	}
}

func TestWorker_Handle(t *testing.T) {
	email := models.Email{To: "user@example.com", Subject: "s", Body: "b", IsHTML: true}
	valid, err := json.Marshal(email)
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       []byte
		setupMocks func(d *MockDeliverer)
		wantErr    bool
	}{
		{
			name: "delivered",
			body: valid,
			setupMocks: func(d *MockDeliverer) {
				d.On("Deliver", mock.Anything, email).Return(nil).Once()
			},
		},
		{
			name:       "malformed body",
			body:       []byte("{"),
			setupMocks: func(_ *MockDeliverer) {},
			wantErr:    true,
		},
		{
			name:       "no recipient",
			body:       []byte(`{"subject":"s"}`),
			setupMocks: func(_ *MockDeliverer) {},
			wantErr:    true,
		},
		{
			name: "smtp failure",
			body: valid,
			setupMocks: func(d *MockDeliverer) {
				d.On("Deliver", mock.Anything, email).Return(errors.New("connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(MockDeliverer)
			tt.setupMocks(d)

			err := NewWorker(d, newNoopLogger()).Handle(context.Background(), tt.body)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			d.AssertExpectations(t)
		})
	}
}
