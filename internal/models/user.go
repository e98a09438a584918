// Package models содержит доменные типы платформы акселераторов:
// пользователей, одноразовые токены, проекты, трекеры исследований,
// акселераторы и профили, а также таксономию ошибок домена.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role — роль пользователя в системе.
type Role string

const (
	// RoleStudent — студент, самостоятельная регистрация.
	RoleStudent Role = "student"
	// RoleTeacher — преподаватель, самостоятельная регистрация.
	RoleTeacher Role = "teacher"
	// RoleAdmin — администратор, создаётся суперадмином.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin — суперадминистратор, создаётся через CLI.
	RoleSuperAdmin Role = "superadmin"
)

// Roles перечисляет все известные роли.
var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin, RoleSuperAdmin}

// Valid сообщает, является ли роль известной.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User представляет зарегистрированного пользователя.
type User struct {
	ID           uuid.UUID // Уникальный идентификатор
	Email        string    // Электронная почта, нормализованная
	PasswordHash string    // bcrypt-хэш пароля
	Role         Role      // Роль пользователя
	Disabled     bool      // Вход запрещён (до верификации или при блокировке)
	IsVerified   bool      // Почта подтверждена
	CreatedAt    time.Time
}

// PublicUser — представление пользователя без секретов для ответов API.
type PublicUser struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Disabled   bool      `json:"disabled"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public возвращает представление пользователя без хэша пароля.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		Disabled:   u.Disabled,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// NormalizeEmail приводит адрес к каноническому виду: без пробелов по краям и в нижнем регистре.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
