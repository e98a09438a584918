package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_Hash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{name: "regular password", password: "Password123"},
		{name: "password with special chars", password: "P@ssw0rd!@#$%^&*()"},
		{name: "cyrillic password", password: "Пароль2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)

			cost, err := bcrypt.Cost([]byte(hash))
			require.NoError(t, err)
			assert.Equal(t, bcrypt.MinCost, cost)

			assert.NoError(t, h.Compare(hash, tt.password))
		})
	}
}

func TestHasher_Compare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	correct, err := h.Hash("Correct1")
	require.NoError(t, err)
	another, err := h.Hash("Another1")
	require.NoError(t, err)

	tests := []struct {
		name     string
		hash     string
		password string
		wantErr  error
	}{
		{name: "matching password", hash: correct, password: "Correct1"},
		{name: "wrong password", hash: correct, password: "Wrong123", wantErr: ErrMismatch},
		{name: "different hash", hash: another, password: "Correct1", wantErr: ErrMismatch},
		{name: "empty password", hash: correct, password: "", wantErr: ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Compare(tt.hash, tt.password)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	err := NewHasher(bcrypt.MinCost).Compare("not-a-hash", "Password1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestNewHasher_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost())
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(bcrypt.MaxCost+1).Cost())
	assert.Equal(t, 12, NewHasher(12).Cost())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "valid", password: "Secret1"},
		{name: "too short", password: "Ab1", wantErr: ErrWeak},
		{name: "no uppercase", password: "secret12", wantErr: ErrWeak},
		{name: "no digit", password: "SecretPass", wantErr: ErrWeak},
		{name: "empty", password: "", wantErr: ErrWeak},
		{name: "exactly six", password: "Abcde1"},
		{name: "exactly 72 bytes", password: "Secret1" + strings.Repeat("a", 65)},
		{name: "80 bytes", password: "Secret1" + strings.Repeat("a", 73), wantErr: ErrTooLong},
		{name: "multibyte over limit", password: "Пароль1" + strings.Repeat("ж", 30), wantErr: ErrTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidate_AcceptedPasswordsHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	longest := "Secret1" + strings.Repeat("a", MaxBytes-7)
	require.NoError(t, Validate(longest))

	_, err := h.Hash(longest)
	assert.NoError(t, err)
}
