package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

const projectColumns = `id, name, description, type, stage, owner_id, accelerator_id, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	var description sql.NullString
	var acceleratorID sql.NullInt64
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Type, &p.Stage,
		&p.OwnerID, &acceleratorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = nullString(description)
	if acceleratorID.Valid {
		p.AcceleratorID = &acceleratorID.Int64
	}
	return p, nil
}

func projectError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ErrNotFound
	case isUniqueViolation(err):
		return models.ErrProjectExists
	default:
		return err
	}
}

// CreateProject сохраняет новый проект.
func (s *Storage) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	const op = "storage.CreateProject"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO projects (name, description, type, stage, owner_id, accelerator_id)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + projectColumns
	created, err := scanProject(s.DB.QueryRowContext(ctx, query,
		p.Name, nullable(p.Description), p.Type, p.Stage, p.OwnerID, nullable(p.AcceleratorID)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, projectError(err))
	}
	return created, nil
}

// GetProject возвращает проект по ID.
func (s *Storage) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	const op = "storage.GetProject"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + projectColumns + `
			  FROM projects
			  WHERE id = $1`
	p, err := scanProject(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, projectError(err))
	}
	return p, nil
}

// ListProjects возвращает страницу проектов. Нулевой owner означает все проекты.
func (s *Storage) ListProjects(ctx context.Context, owner uuid.UUID, skip, limit int) ([]*models.Project, error) {
	const op = "storage.ListProjects"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var ownerArg any
	if owner != uuid.Nil {
		ownerArg = owner
	}
	query := `SELECT ` + projectColumns + `
			  FROM projects
			  WHERE ($1::uuid IS NULL OR owner_id = $1::uuid)
			  ORDER BY id
			  OFFSET $2 LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, ownerArg, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var res []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// UpdateProject применяет присутствующие поля изменения.
func (s *Storage) UpdateProject(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error) {
	const op = "storage.UpdateProject"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var set assignments
	if patch.Name.Set {
		set.add("name", patch.Name.Value)
	}
	if patch.Description.Set {
		set.add("description", nullable(patch.Description.Ptr()))
	}
	if patch.Type.Set {
		set.add("type", patch.Type.Value)
	}
	if patch.Stage.Set {
		set.add("stage", patch.Stage.Value)
	}
	if patch.AcceleratorID.Set {
		set.add("accelerator_id", nullable(patch.AcceleratorID.Ptr()))
	}
	if set.empty() {
		return s.GetProject(ctx, id)
	}

	clause, next := set.clause()
	query := fmt.Sprintf(`UPDATE projects
			  SET %s, updated_at = now()
			  WHERE id = $%d
			  RETURNING %s`, clause, next, projectColumns)
	p, err := scanProject(s.DB.QueryRowContext(ctx, query, append(set.args, id)...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, projectError(err))
	}
	return p, nil
}

// DeleteProject удаляет проект вместе с его трекером и ответами.
func (s *Storage) DeleteProject(ctx context.Context, id int64) error {
	const op = "storage.DeleteProject"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	} else if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
