package research

import (
	"slices"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Curriculum — упорядоченная последовательность позиций трекера.
type Curriculum []models.Step

// Start — начальная позиция трекера.
var Start = models.Step{Phase: "planning", Stage: "stage_1"}

var defaultCurriculum = Curriculum{
	{Phase: "planning", Stage: "stage_1"},
	{Phase: "planning", Stage: "stage_2"},
	{Phase: "research", Stage: "stage_1"},
	{Phase: "research", Stage: "stage_2"},
	{Phase: "implementation", Stage: "stage_1"},
	{Phase: "implementation", Stage: "stage_2"},
}

// CurriculumFor возвращает учебный план для типа проекта.
// Все типы проходят один и тот же план, позиция трекера не зависит от этапа проекта.
func CurriculumFor(models.ProjectType) Curriculum {
	return defaultCurriculum
}

// Index возвращает номер позиции или -1.
func (c Curriculum) Index(step models.Step) int {
	return slices.Index(c, step)
}

// Contains сообщает, входит ли позиция в план.
func (c Curriculum) Contains(step models.Step) bool {
	return c.Index(step) >= 0
}

// Next возвращает позицию, следующую за step.
func (c Curriculum) Next(step models.Step) (models.Step, bool) {
	i := c.Index(step)
	if i < 0 || i+1 >= len(c) {
		return models.Step{}, false
	}
	return c[i+1], true
}
