// Package rbac реализует проверку доступа: таблицу политик
// «операция → набор допустимых ролей» и шлюз, который по access-токену
// определяет пользователя и сверяет его роль с политикой операции.
//
// Наборы ролей явные: доступ администратора не означает доступ суперадмина,
// если суперадмин не указан в наборе.
package rbac

import (
	"slices"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Operation — имя защищённой операции.
type Operation string

const (
	OpLogin            Operation = "auth.login"
	OpAdminLogin       Operation = "admin.login"
	OpMe               Operation = "auth.me"
	OpProfile          Operation = "profile.manage"
	OpProjectRead      Operation = "project.read"
	OpProjectWrite     Operation = "project.write"
	OpProjectAny       Operation = "project.any"
	OpResearchRead     Operation = "research.read"
	OpResearchWrite    Operation = "research.write"
	OpAcceleratorRead  Operation = "accelerator.read"
	OpAcceleratorWrite Operation = "accelerator.write"
	OpUsersSuspend     Operation = "admin.users.suspend"
	OpAdminsManage     Operation = "admin.admins.manage"
)

// AllowSet — набор ролей, которым разрешена операция.
type AllowSet []models.Role

// Allow собирает набор ролей.
func Allow(roles ...models.Role) AllowSet {
	return AllowSet(roles)
}

// Contains сообщает, входит ли роль в набор.
func (s AllowSet) Contains(role models.Role) bool {
	return slices.Contains(s, role)
}

// Наборы, повторяющиеся в таблице.
var (
	AllowUsers      = Allow(models.RoleStudent, models.RoleTeacher)
	AllowAdmin      = Allow(models.RoleAdmin, models.RoleSuperAdmin)
	AllowSuperAdmin = Allow(models.RoleSuperAdmin)
	AllowEveryone   = Allow(models.RoleStudent, models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin)
)

// Policy — таблица политик. Операции, которых нет в таблице, запрещены.
type Policy map[Operation]AllowSet

// DefaultPolicy возвращает таблицу политик сервиса.
func DefaultPolicy() Policy {
	return Policy{
		OpLogin:            AllowUsers,
		OpAdminLogin:       AllowAdmin,
		OpMe:               AllowEveryone,
		OpProfile:          AllowEveryone,
		OpProjectRead:      AllowEveryone,
		OpProjectWrite:     AllowEveryone,
		OpProjectAny:       AllowAdmin,
		OpResearchRead:     AllowEveryone,
		OpResearchWrite:    AllowEveryone,
		OpAcceleratorRead:  AllowEveryone,
		OpAcceleratorWrite: AllowAdmin,
		OpUsersSuspend:     AllowAdmin,
		OpAdminsManage:     AllowSuperAdmin,
	}
}

// Allows сообщает, разрешена ли операция роли.
func (p Policy) Allows(op Operation, role models.Role) bool {
	set, ok := p[op]
	if !ok {
		return false
	}
	return set.Contains(role)
}
