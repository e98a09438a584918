package models

import "time"

// QuestionType — тип вопроса исследования.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionScale          QuestionType = "scale"
)

// Step — позиция в учебном плане исследования: фаза и этап.
type Step struct {
	Phase string `json:"phase"`
	Stage string `json:"stage"`
}

// String возвращает позицию в виде "phase/stage".
func (s Step) String() string {
	return s.Phase + "/" + s.Stage
}

// Question — вопрос анкеты, принадлежащий одной паре (фаза, этап).
type Question struct {
	ID       int64        `json:"id"`
	Phase    string       `json:"phase"`
	Stage    string       `json:"stage"`
	Text     string       `json:"question_text"`
	Type     QuestionType `json:"question_type"`
	Options  []string     `json:"options,omitempty"`
	Order    int          `json:"order"`
	Required bool         `json:"required"`
}

// Step возвращает позицию вопроса в учебном плане.
func (q Question) Step() Step {
	return Step{Phase: q.Phase, Stage: q.Stage}
}

// Tracker — трекер прогресса исследования проекта.
type Tracker struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"project_id"`
	CurrentPhase string    `json:"current_phase"`
	CurrentStage string    `json:"current_stage"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Position возвращает текущую позицию трекера.
func (t Tracker) Position() Step {
	return Step{Phase: t.CurrentPhase, Stage: t.CurrentStage}
}

// Answer — ответ трекера на вопрос.
type Answer struct {
	ID         int64     `json:"id"`
	TrackerID  int64     `json:"tracker_id"`
	QuestionID int64     `json:"question_id"`
	Text       string    `json:"answer_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnswerInput — ответ, присланный клиентом.
type AnswerInput struct {
	QuestionID int64  `json:"question_id" validate:"required"`
	Text       string `json:"answer_text" validate:"required"`
}

// Completion — степень заполнения анкеты для пары (фаза, этап).
type Completion struct {
	Phase             string `json:"phase"`
	Stage             string `json:"stage"`
	RequiredSatisfied bool   `json:"required_satisfied"`
	FullyComplete     bool   `json:"fully_complete"`
	AnsweredCount     int    `json:"answered_count"`
	TotalCount        int    `json:"total_count"`
	RequiredAnswered  int    `json:"required_answered"`
	RequiredTotal     int    `json:"required_total"`
}

// NewCompletion рассчитывает флаги заполненности по счётчикам.
func NewCompletion(step Step, answered, total, requiredAnswered, requiredTotal int) Completion {
	c := Completion{
		Phase:            step.Phase,
		Stage:            step.Stage,
		AnsweredCount:    answered,
		TotalCount:       total,
		RequiredAnswered: requiredAnswered,
		RequiredTotal:    requiredTotal,
	}
	c.RequiredSatisfied = requiredAnswered >= requiredTotal
	c.FullyComplete = c.RequiredSatisfied && answered == total
	return c
}
