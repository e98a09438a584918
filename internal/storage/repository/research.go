package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

const (
	questionColumns = `id, phase, stage, question_text, question_type, options, sort_order, required`
	trackerColumns  = `id, project_id, current_phase, current_stage, created_at, updated_at`
	answerColumns   = `id, tracker_id, question_id, answer_text, created_at`
)

func scanQuestion(row interface{ Scan(...any) error }) (*models.Question, error) {
	q := &models.Question{}
	var options []byte
	if err := row.Scan(&q.ID, &q.Phase, &q.Stage, &q.Text, &q.Type,
		&options, &q.Order, &q.Required); err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options of question %d: %w", q.ID, err)
		}
	}
	return q, nil
}

func scanTracker(row interface{ Scan(...any) error }) (*models.Tracker, error) {
	t := &models.Tracker{}
	if err := row.Scan(&t.ID, &t.ProjectID, &t.CurrentPhase, &t.CurrentStage,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func scanAnswer(row interface{ Scan(...any) error }) (*models.Answer, error) {
	a := &models.Answer{}
	if err := row.Scan(&a.ID, &a.TrackerID, &a.QuestionID, &a.Text, &a.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Storage) queryQuestions(ctx context.Context, query string, args ...any) ([]*models.Question, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var res []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

// ListQuestions возвращает вопросы позиции в порядке sort_order.
func (s *Storage) ListQuestions(ctx context.Context, step models.Step) ([]*models.Question, error) {
	const op = "storage.ListQuestions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + questionColumns + `
			  FROM research_questions
			  WHERE phase = $1 AND stage = $2
			  ORDER BY sort_order, id`
	res, err := s.queryQuestions(ctx, query, step.Phase, step.Stage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ListAllQuestions возвращает все вопросы анкеты.
func (s *Storage) ListAllQuestions(ctx context.Context) ([]*models.Question, error) {
	const op = "storage.ListAllQuestions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + questionColumns + `
			  FROM research_questions
			  ORDER BY phase, stage, sort_order, id`
	res, err := s.queryQuestions(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// GetQuestions возвращает вопросы по списку ID. Неизвестные ID пропускаются.
func (s *Storage) GetQuestions(ctx context.Context, ids []int64) ([]*models.Question, error) {
	const op = "storage.GetQuestions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + questionColumns + `
			  FROM research_questions
			  WHERE id = ANY($1)`
	res, err := s.queryQuestions(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// GetOrCreateTracker возвращает трекер проекта, создавая его
// в начальной позиции при первом обращении.
func (s *Storage) GetOrCreateTracker(ctx context.Context, projectID int64) (*models.Tracker, error) {
	const op = "storage.GetOrCreateTracker"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	insert := `INSERT INTO research_trackers (project_id)
			   VALUES ($1)
			   ON CONFLICT (project_id) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, insert, projectID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + trackerColumns + `
			  FROM research_trackers
			  WHERE project_id = $1`
	t, err := scanTracker(s.DB.QueryRowContext(ctx, query, projectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// SaveAnswers заменяет ответы трекера на переданные вопросы в одной транзакции:
// прежние ответы удаляются, новые вставляются.
func (s *Storage) SaveAnswers(ctx context.Context, trackerID int64, answers []models.AnswerInput) ([]*models.Answer, error) {
	const op = "storage.SaveAnswers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	ids := make([]int64, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}

	saved := make([]*models.Answer, 0, len(answers))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		if err := tx.QueryRowContext(ctx,
			`SELECT id FROM research_trackers WHERE id = $1 FOR UPDATE`, trackerID).Scan(&locked); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrNotFound
			}
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM research_answers WHERE tracker_id = $1 AND question_id = ANY($2)`,
			trackerID, ids); err != nil {
			return err
		}

		insert := `INSERT INTO research_answers (tracker_id, question_id, answer_text)
				   VALUES ($1, $2, $3)
				   RETURNING ` + answerColumns
		for _, a := range answers {
			answer, err := scanAnswer(tx.QueryRowContext(ctx, insert, trackerID, a.QuestionID, a.Text))
			if err != nil {
				return err
			}
			saved = append(saved, answer)
		}

		_, err := tx.ExecContext(ctx,
			`UPDATE research_trackers SET updated_at = now() WHERE id = $1`, trackerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}

// ListAnswers возвращает все ответы трекера.
func (s *Storage) ListAnswers(ctx context.Context, trackerID int64) ([]*models.Answer, error) {
	const op = "storage.ListAnswers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + answerColumns + `
			  FROM research_answers
			  WHERE tracker_id = $1
			  ORDER BY question_id`
	rows, err := s.DB.QueryContext(ctx, query, trackerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var res []*models.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Completion подсчитывает заполненность позиции трекера.
func (s *Storage) Completion(ctx context.Context, trackerID int64, step models.Step) (models.Completion, error) {
	const op = "storage.Completion"
	select {
	case <-ctx.Done():
		return models.Completion{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT
			      COUNT(a.id),
			      COUNT(q.id),
			      COUNT(a.id) FILTER (WHERE q.required),
			      COUNT(q.id) FILTER (WHERE q.required)
			  FROM research_questions q
			  LEFT JOIN research_answers a
			         ON a.question_id = q.id AND a.tracker_id = $1
			  WHERE q.phase = $2 AND q.stage = $3`
	var answered, total, requiredAnswered, requiredTotal int
	if err := s.DB.QueryRowContext(ctx, query, trackerID, step.Phase, step.Stage).
		Scan(&answered, &total, &requiredAnswered, &requiredTotal); err != nil {
		return models.Completion{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.NewCompletion(step, answered, total, requiredAnswered, requiredTotal), nil
}

// MoveTracker переводит трекер из позиции from в позицию to.
// Если позиция успела измениться, возвращается ErrStageConflict.
func (s *Storage) MoveTracker(ctx context.Context, trackerID int64, from, to models.Step) (*models.Tracker, error) {
	const op = "storage.MoveTracker"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE research_trackers
			  SET current_phase = $4, current_stage = $5, updated_at = now()
			  WHERE id = $1 AND current_phase = $2 AND current_stage = $3
			  RETURNING ` + trackerColumns
	t, err := scanTracker(s.DB.QueryRowContext(ctx, query,
		trackerID, from.Phase, from.Stage, to.Phase, to.Stage))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrStageConflict)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
