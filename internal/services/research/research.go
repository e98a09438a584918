// Package research реализует конечный автомат прогресса исследования:
// трекер проекта проходит позиции (фаза, этап) учебного плана, а переход
// к следующей позиции разрешён только после ответа на все обязательные
// вопросы текущей.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/metrics"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

// Repository описывает контракт хранилища трекеров, вопросов и ответов.
type Repository interface {
	GetOrCreateTracker(ctx context.Context, projectID int64) (*models.Tracker, error)
	ListQuestions(ctx context.Context, step models.Step) ([]*models.Question, error)
	ListAllQuestions(ctx context.Context) ([]*models.Question, error)
	GetQuestions(ctx context.Context, ids []int64) ([]*models.Question, error)
	SaveAnswers(ctx context.Context, trackerID int64, answers []models.AnswerInput) ([]*models.Answer, error)
	ListAnswers(ctx context.Context, trackerID int64) ([]*models.Answer, error)
	Completion(ctx context.Context, trackerID int64, step models.Step) (models.Completion, error)
	MoveTracker(ctx context.Context, trackerID int64, from, to models.Step) (*models.Tracker, error)
}

// ProjectAccess возвращает проект, если он доступен пользователю.
type ProjectAccess interface {
	Get(ctx context.Context, actor *rbac.Identity, id int64) (*models.Project, error)
}

// Cache хранит списки вопросов.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// View — состояние трекера вместе с заполненностью текущей позиции.
type View struct {
	Tracker    *models.Tracker   `json:"tracker"`
	Completion models.Completion `json:"completion"`
	Next       *models.Step      `json:"next,omitempty"`
}

// Service реализует операции над трекером исследования.
type Service struct {
	repo     Repository
	projects ProjectAccess
	cache    Cache
	cacheTTL time.Duration
	log      *slog.Logger
}

// NewService создает сервис исследований. Списки вопросов кешируются на cacheTTL.
func NewService(repo Repository, projects ProjectAccess, cache Cache, cacheTTL time.Duration, log *slog.Logger) *Service {
	return &Service{repo: repo, projects: projects, cache: cache, cacheTTL: cacheTTL, log: log}
}

// Questions возвращает вопросы позиции. Пустая или неизвестная позиция даёт models.ErrNotFound.
func (s *Service) Questions(ctx context.Context, actor *rbac.Identity, projectID int64, step models.Step) ([]*models.Question, error) {
	const op = "research.Questions"

	project, err := s.projects.Get(ctx, actor, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !CurriculumFor(project.Type).Contains(step) {
		return nil, fmt.Errorf("%s: %w: unknown position %s", op, models.ErrNotFound, step)
	}

	questions, err := s.questions(ctx, step)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%s: %w: no questions for %s", op, models.ErrNotFound, step)
	}
	return questions, nil
}

// Tracker возвращает трекер проекта, создавая его при первом обращении.
func (s *Service) Tracker(ctx context.Context, actor *rbac.Identity, projectID int64) (*View, error) {
	const op = "research.Tracker"

	project, tracker, err := s.tracker(ctx, actor, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	completion, err := s.repo.Completion(ctx, tracker.ID, tracker.Position())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	view := &View{Tracker: tracker, Completion: completion}
	if next, ok := CurriculumFor(project.Type).Next(tracker.Position()); ok {
		view.Next = &next
	}
	return view, nil
}

// Answer сохраняет ответы трекера. Повторный ответ на вопрос заменяет прежний.
// Вопросы позиций после текущей и неизвестные вопросы отклоняются.
func (s *Service) Answer(ctx context.Context, actor *rbac.Identity, projectID int64, inputs []models.AnswerInput) ([]*models.Answer, error) {
	const op = "research.Answer"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID))

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%s: %w: no answers", op, models.ErrValidation)
	}

	project, tracker, err := s.tracker(ctx, actor, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Последний ответ на вопрос в запросе побеждает.
	order := make([]int64, 0, len(inputs))
	latest := make(map[int64]string, len(inputs))
	for _, in := range inputs {
		if _, seen := latest[in.QuestionID]; !seen {
			order = append(order, in.QuestionID)
		}
		latest[in.QuestionID] = in.Text
	}

	questions, err := s.repo.GetQuestions(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	byID := make(map[int64]*models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	curriculum := CurriculumFor(project.Type)
	current := curriculum.Index(tracker.Position())
	answers := make([]models.AnswerInput, 0, len(order))
	for _, id := range order {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%s: %w: unknown question %d", op, models.ErrValidation, id)
		}
		if pos := curriculum.Index(q.Step()); pos < 0 || pos > current {
			return nil, fmt.Errorf("%s: %w: question %d belongs to %s, tracker is at %s",
				op, models.ErrValidation, id, q.Step(), tracker.Position())
		}
		value, err := normalizeAnswer(q, latest[id])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		answers = append(answers, models.AnswerInput{QuestionID: id, Text: value})
	}

	saved, err := s.repo.SaveAnswers(ctx, tracker.ID, answers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("answers saved", slog.Int("count", len(saved)))
	return saved, nil
}

// Progress возвращает заполненность позиции; nil означает текущую позицию трекера.
func (s *Service) Progress(ctx context.Context, actor *rbac.Identity, projectID int64, step *models.Step) (models.Completion, error) {
	const op = "research.Progress"

	project, tracker, err := s.tracker(ctx, actor, projectID)
	if err != nil {
		return models.Completion{}, fmt.Errorf("%s: %w", op, err)
	}
	target := tracker.Position()
	if step != nil {
		target = *step
	}
	if !CurriculumFor(project.Type).Contains(target) {
		return models.Completion{}, fmt.Errorf("%s: %w: unknown position %s", op, models.ErrValidation, target)
	}

	completion, err := s.repo.Completion(ctx, tracker.ID, target)
	if err != nil {
		return models.Completion{}, fmt.Errorf("%s: %w", op, err)
	}
	return completion, nil
}

// Advance переводит трекер в позицию next. Позиция должна непосредственно
// следовать за текущей, а все обязательные вопросы текущей должны иметь ответ.
func (s *Service) Advance(ctx context.Context, actor *rbac.Identity, projectID int64, next models.Step) (tracker *models.Tracker, err error) {
	const op = "research.Advance"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID))
	defer func() { metrics.StageAdvances.WithLabelValues(advanceResult(err)).Inc() }()

	project, tracker, err := s.tracker(ctx, actor, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	current := tracker.Position()
	successor, ok := CurriculumFor(project.Type).Next(current)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s is the last position", op, models.ErrValidation, current)
	}
	if next != successor {
		return nil, fmt.Errorf("%s: %w: next position after %s is %s, not %s",
			op, models.ErrValidation, current, successor, next)
	}

	completion, err := s.repo.Completion(ctx, tracker.ID, current)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !completion.RequiredSatisfied {
		return nil, fmt.Errorf("%s: %w: %d of %d required questions answered",
			op, models.ErrStageNotComplete, completion.RequiredAnswered, completion.RequiredTotal)
	}

	moved, err := s.repo.MoveTracker(ctx, tracker.ID, current, next)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("tracker advanced", slog.String("from", current.String()), slog.String("to", next.String()))
	return moved, nil
}

func (s *Service) tracker(ctx context.Context, actor *rbac.Identity, projectID int64) (*models.Project, *models.Tracker, error) {
	project, err := s.projects.Get(ctx, actor, projectID)
	if err != nil {
		return nil, nil, err
	}
	tracker, err := s.repo.GetOrCreateTracker(ctx, project.ID)
	if err != nil {
		return nil, nil, err
	}
	return project, tracker, nil
}

// questions читает вопросы позиции из кеша, при промахе из хранилища.
func (s *Service) questions(ctx context.Context, step models.Step) ([]*models.Question, error) {
	key := "research:questions:" + step.Phase + ":" + step.Stage
	log := s.log.With(slog.String("key", key))

	var cached []*models.Question
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn("question cache read failed", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	questions, err := s.repo.ListQuestions(ctx, step)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		if err := s.cache.Set(ctx, key, questions, s.cacheTTL); err != nil {
			log.Warn("question cache write failed", sl.Err(err))
		}
	}
	return questions, nil
}

func advanceResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrStageNotComplete):
		return "incomplete"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrStageConflict):
		return "conflict"
	default:
		return "error"
	}
}
