// Package jwt реализует сервис токенов: выпуск и проверку подписанных JWT
// четырёх видов (access, refresh, verification, reset). У каждого вида свой
// секрет подписи и срок жизни, а вид токена явно записан в claim "kind".
package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind — вид токена.
type Kind string

const (
	KindAccess       Kind = "access"
	KindRefresh      Kind = "refresh"
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
)

// Kinds перечисляет все виды токенов.
var Kinds = []Kind{KindAccess, KindRefresh, KindVerification, KindReset}

var (
	// ErrInvalidToken — подпись неверна, claim отсутствует, вид или роль не совпадают.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpired — срок действия токена истёк.
	ErrExpired = errors.New("token expired")
)

// CustomClaims описывает данные, хранящиеся в токене.
// Subject содержит email пользователя, ID — уникальный идентификатор токена.
type CustomClaims struct {
	Role                 string `json:"role"` // Роль пользователя на момент выпуска
	Kind                 Kind   `json:"kind"` // Вид токена
	jwt.RegisteredClaims        // sub, jti, iat, exp
}

// KeyConfig — секрет подписи и срок жизни по умолчанию для вида токена.
type KeyConfig struct {
	Secret string
	TTL    time.Duration
}

// Maker выпускает и проверяет токены.
type Maker interface {
	// Issue выпускает токен вида kind. Нулевой ttl означает срок по умолчанию для вида.
	Issue(kind Kind, subject, role string, ttl time.Duration) (string, error)
	// Validate проверяет токен как токен вида expected и, если переданы roles,
	// требует, чтобы роль токена входила в этот набор.
	Validate(tokenStr string, expected Kind, roles ...string) (*CustomClaims, error)
	// TTL возвращает срок жизни по умолчанию для вида.
	TTL(kind Kind) time.Duration
}

// MakerImpl реализует Maker на HMAC-подписи.
type MakerImpl struct {
	method jwt.SigningMethod
	keys   map[Kind]KeyConfig
	now    func() time.Time
}

// Option настраивает MakerImpl.
type Option func(*MakerImpl)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(m *MakerImpl) {
		m.now = now
	}
}
