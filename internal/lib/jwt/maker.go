package jwt

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NewJWTMaker создаёт MakerImpl. algorithm — одно из HS256, HS384, HS512;
// для каждого вида токена должен быть задан непустой секрет и положительный TTL.
func NewJWTMaker(algorithm string, keys map[Kind]KeyConfig, opts ...Option) (*MakerImpl, error) {
	const op = "jwt.NewJWTMaker"

	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported signing algorithm %q", op, algorithm)
	}
	for _, kind := range Kinds {
		key, ok := keys[kind]
		if !ok || key.Secret == "" {
			return nil, fmt.Errorf("%s: secret for %s tokens is not set", op, kind)
		}
		if key.TTL <= 0 {
			return nil, fmt.Errorf("%s: ttl for %s tokens must be positive", op, kind)
		}
	}

	m := &MakerImpl{
		method: method,
		keys:   keys,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL возвращает срок жизни по умолчанию для вида токена.
func (m *MakerImpl) TTL(kind Kind) time.Duration {
	return m.keys[kind].TTL
}

// Issue выпускает подписанный токен вида kind.
func (m *MakerImpl) Issue(kind Kind, subject, role string, ttl time.Duration) (string, error) {
	const op = "jwt.Issue"

	key, ok := m.keys[kind]
	if !ok {
		return "", fmt.Errorf("%s: unknown token kind %q", op, kind)
	}
	if subject == "" || role == "" {
		return "", fmt.Errorf("%s: subject and role are required", op)
	}
	if ttl <= 0 {
		ttl = key.TTL
	}

	now := m.now()
	claims := CustomClaims{
		Role: role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(m.method, claims).SignedString([]byte(key.Secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// Validate проверяет подпись секретом ожидаемого вида, наличие всех claim,
// совпадение claim "kind" и роли, затем срок действия.
// Истечение срока проверяется явно и возвращается как ErrExpired.
func (m *MakerImpl) Validate(tokenStr string, expected Kind, roles ...string) (*CustomClaims, error) {
	const op = "jwt.Validate"

	key, ok := m.keys[expected]
	if !ok {
		return nil, fmt.Errorf("%s: %w: unknown token kind %q", op, ErrInvalidToken, expected)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	claims := &CustomClaims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(key.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%s: %w: missing subject", op, ErrInvalidToken)
	case claims.ID == "":
		return nil, fmt.Errorf("%s: %w: missing token id", op, ErrInvalidToken)
	case claims.IssuedAt == nil:
		return nil, fmt.Errorf("%s: %w: missing issued-at", op, ErrInvalidToken)
	case claims.ExpiresAt == nil:
		return nil, fmt.Errorf("%s: %w: missing expiry", op, ErrInvalidToken)
	case claims.Role == "":
		return nil, fmt.Errorf("%s: %w: missing role", op, ErrInvalidToken)
	case claims.Kind != expected:
		return nil, fmt.Errorf("%s: %w: kind %q, want %q", op, ErrInvalidToken, claims.Kind, expected)
	}
	if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
		return nil, fmt.Errorf("%s: %w: role %q not accepted", op, ErrInvalidToken, claims.Role)
	}
	if m.now().After(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpired)
	}

	return claims, nil
}
