package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose — назначение одноразового токена.
type TokenPurpose string

const (
	// PurposeVerification — подтверждение электронной почты.
	PurposeVerification TokenPurpose = "verification"
	// PurposePasswordReset — сброс пароля.
	PurposePasswordReset TokenPurpose = "password_reset"
)

// OneTimeToken — одноразовый токен, привязанный к пользователю.
// В хранилище сохраняется только SHA-256 хэш значения токена.
type OneTimeToken struct {
	ID        int64
	UserID    uuid.UUID
	Purpose   TokenPurpose
	TokenHash string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// Usable сообщает, можно ли ещё погасить токен в момент now.
func (t OneTimeToken) Usable(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}

// TokenPair — пара токенов, выдаваемая при входе и обновлении.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
