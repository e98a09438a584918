package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectType — тип проекта.
type ProjectType string

const (
	ProjectApplied  ProjectType = "applied"
	ProjectResearch ProjectType = "research"
	ProjectBusiness ProjectType = "business"
)

// Project — проект пользователя, опционально привязанный к акселератору.
type Project struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Description   *string     `json:"description,omitempty"`
	Type          ProjectType `json:"type"`
	Stage         string      `json:"stage"`
	OwnerID       uuid.UUID   `json:"owner_id"`
	AcceleratorID *int64      `json:"accelerator_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ProjectPatch — частичное обновление проекта.
type ProjectPatch struct {
	Name          Optional[string]      `json:"name"`
	Description   Optional[string]      `json:"description"`
	Type          Optional[ProjectType] `json:"type"`
	Stage         Optional[string]      `json:"stage"`
	AcceleratorID Optional[int64]       `json:"accelerator_id"`
}

// Empty сообщает, что ни одно поле не передано.
func (p ProjectPatch) Empty() bool {
	return !p.Name.Set && !p.Description.Set && !p.Type.Set && !p.Stage.Set && !p.AcceleratorID.Set
}
