package models

import "github.com/google/uuid"

// Profile — персональные данные пользователя.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        *string   `json:"name,omitempty"`
	Surname     *string   `json:"surname,omitempty"`
	Patronymic  *string   `json:"patronymic,omitempty"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
}

// ProfilePatch — частичное обновление профиля.
type ProfilePatch struct {
	Name        Optional[string] `json:"name"`
	Surname     Optional[string] `json:"surname"`
	Patronymic  Optional[string] `json:"patronymic"`
	PhoneNumber Optional[string] `json:"phone_number"`
}

// Empty сообщает, что ни одно поле не передано.
func (p ProfilePatch) Empty() bool {
	return !p.Name.Set && !p.Surname.Set && !p.Patronymic.Set && !p.PhoneNumber.Set
}

// Apply переносит присутствующие поля в профиль.
func (p ProfilePatch) Apply(profile *Profile) {
	if p.Name.Set {
		profile.Name = p.Name.Ptr()
	}
	if p.Surname.Set {
		profile.Surname = p.Surname.Ptr()
	}
	if p.Patronymic.Set {
		profile.Patronymic = p.Patronymic.Ptr()
	}
	if p.PhoneNumber.Set {
		profile.PhoneNumber = p.PhoneNumber.Ptr()
	}
}
