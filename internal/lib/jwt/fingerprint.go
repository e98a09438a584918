package jwt

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint возвращает SHA-256 хэш токена в hex. В хранилище попадает
// только отпечаток одноразового токена, а не его значение.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
