// Package phone нормализует номера телефонов к формату E.164.
package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion используется для номеров без международного префикса.
const DefaultRegion = "RU"

// ErrInvalid возвращается для номеров, которые нельзя разобрать или которые не существуют.
var ErrInvalid = errors.New("invalid phone number format")

// Normalize разбирает номер и возвращает его в формате E.164, например +79161234567.
func Normalize(raw string) (string, error) {
	const op = "phone.Normalize"

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalid)
	}
	num, err := phonenumbers.Parse(raw, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrInvalid, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%s: %w", op, ErrInvalid)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
