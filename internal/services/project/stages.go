package project

import (
	"slices"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// StageMapping задаёт допустимые этапы проекта для каждого типа в порядке прохождения.
var StageMapping = map[models.ProjectType][]string{
	models.ProjectResearch: {"planning", "research", "implementation"},
	models.ProjectApplied:  {"idea", "prototype", "testing", "implementation"},
	models.ProjectBusiness: {"idea", "validation", "launch", "growth"},
}

// ValidType сообщает, известен ли тип проекта.
func ValidType(t models.ProjectType) bool {
	_, ok := StageMapping[t]
	return ok
}

// DefaultStage возвращает первый этап типа.
func DefaultStage(t models.ProjectType) string {
	stages := StageMapping[t]
	if len(stages) == 0 {
		return ""
	}
	return stages[0]
}

// ValidStage сообщает, допустим ли этап для типа.
func ValidStage(t models.ProjectType, stage string) bool {
	return slices.Contains(StageMapping[t], stage)
}
