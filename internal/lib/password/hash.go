// Package password реализует хеширование паролей bcrypt и политику их сложности.
//
// Hasher создаёт и сверяет хэши с настраиваемой стоимостью,
// Validate проверяет пароль на соответствие минимальным требованиям.
package password

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength — минимальная длина пароля в символах.
	MinLength = 6
	// MaxBytes — предел bcrypt на длину пароля в байтах.
	MaxBytes = 72
)

var (
	// ErrWeak возвращается, если пароль не удовлетворяет политике сложности.
	ErrWeak = errors.New("password must be at least 6 characters long and contain an uppercase letter and a digit")
	// ErrTooLong возвращается, если пароль длиннее MaxBytes байт.
	ErrTooLong = errors.New("password must not exceed 72 bytes")
	// ErrMismatch возвращается, если пароль не совпадает с хэшем.
	ErrMismatch = errors.New("password does not match")
)

// Validate проверяет длину пароля, наличие заглавной буквы и цифры.
func Validate(password string) error {
	if len(password) > MaxBytes {
		return ErrTooLong
	}
	if len([]rune(password)) < MinLength {
		return ErrWeak
	}
	var upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !digit {
		return ErrWeak
	}
	return nil
}

// Hasher хеширует пароли bcrypt с заданной стоимостью.
type Hasher struct {
	cost int
}

// NewHasher создаёт Hasher. Стоимость вне допустимого диапазона bcrypt
// заменяется на bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost возвращает используемую стоимость хеширования.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash возвращает bcrypt-хэш пароля.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hashed), nil
}

// Compare сверяет пароль с хэшем. Несовпадение возвращается как ErrMismatch.
func (h *Hasher) Compare(hash, password string) error {
	const op = "password.Compare"
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
