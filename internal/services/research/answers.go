package research

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// Границы шкалы, если у вопроса не заданы варианты.
const (
	defaultScaleMin = 1
	defaultScaleMax = 10
)

// normalizeAnswer проверяет ответ по типу вопроса и возвращает значение для сохранения.
func normalizeAnswer(q *models.Question, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("%w: answer to question %d is empty", models.ErrValidation, q.ID)
	}

	switch q.Type {
	case models.QuestionText:
		return value, nil

	case models.QuestionMultipleChoice:
		if !slices.Contains(q.Options, value) {
			return "", fmt.Errorf("%w: %q is not an option of question %d", models.ErrValidation, value, q.ID)
		}
		return value, nil

	case models.QuestionCheckbox:
		var selected []string
		if err := json.Unmarshal([]byte(value), &selected); err != nil {
			return "", fmt.Errorf("%w: answer to question %d must be a JSON array of options", models.ErrValidation, q.ID)
		}
		if len(selected) == 0 {
			return "", fmt.Errorf("%w: select at least one option of question %d", models.ErrValidation, q.ID)
		}
		seen := make(map[string]struct{}, len(selected))
		for _, s := range selected {
			if !slices.Contains(q.Options, s) {
				return "", fmt.Errorf("%w: %q is not an option of question %d", models.ErrValidation, s, q.ID)
			}
			if _, dup := seen[s]; dup {
				return "", fmt.Errorf("%w: option %q selected twice", models.ErrValidation, s)
			}
			seen[s] = struct{}{}
		}
		normalized, err := json.Marshal(selected)
		if err != nil {
			return "", err
		}
		return string(normalized), nil

	case models.QuestionScale:
		n, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("%w: answer to question %d must be an integer", models.ErrValidation, q.ID)
		}
		lo, hi := scaleBounds(q.Options)
		if n < lo || n > hi {
			return "", fmt.Errorf("%w: answer to question %d must be within [%d, %d]", models.ErrValidation, q.ID, lo, hi)
		}
		return strconv.Itoa(n), nil

	default:
		return "", fmt.Errorf("%w: question %d has unsupported type %q", models.ErrValidation, q.ID, q.Type)
	}
}

// scaleBounds берёт границы шкалы из первых двух вариантов вопроса.
func scaleBounds(options []string) (int, int) {
	if len(options) < 2 {
		return defaultScaleMin, defaultScaleMax
	}
	lo, errLo := strconv.Atoi(strings.TrimSpace(options[0]))
	hi, errHi := strconv.Atoi(strings.TrimSpace(options[1]))
	if errLo != nil || errHi != nil || lo > hi {
		return defaultScaleMin, defaultScaleMax
	}
	return lo, hi
}
