package models

import "time"

// Accelerator — университетская программа-акселератор.
type Accelerator struct {
	ID          int64     `json:"id"`
	University  string    `json:"university"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// AcceleratorPatch — частичное обновление акселератора.
type AcceleratorPatch struct {
	University  Optional[string] `json:"university"`
	Description Optional[string] `json:"description"`
	IsActive    Optional[bool]   `json:"is_active"`
}

// Empty сообщает, что ни одно поле не передано.
func (p AcceleratorPatch) Empty() bool {
	return !p.University.Set && !p.Description.Set && !p.IsActive.Set
}

// AcceleratorFilter — параметры поиска акселераторов.
type AcceleratorFilter struct {
	Search     string
	ActiveOnly bool
	Skip       int
	Limit      int
}
