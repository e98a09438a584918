package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

const acceleratorColumns = `id, university, description, is_active, created_at`

func scanAccelerator(row interface{ Scan(...any) error }) (*models.Accelerator, error) {
	a := &models.Accelerator{}
	var description sql.NullString
	if err := row.Scan(&a.ID, &a.University, &description, &a.IsActive, &a.CreatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		a.Description = &description.String
	}
	return a, nil
}

func acceleratorError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return models.ErrNotFound
	case isUniqueViolation(err):
		return models.ErrAcceleratorExists
	default:
		return err
	}
}

// CreateAccelerator сохраняет новый акселератор.
func (s *Storage) CreateAccelerator(ctx context.Context, a models.Accelerator) (*models.Accelerator, error) {
	const op = "storage.CreateAccelerator"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO accelerators (university, description, is_active)
			  VALUES ($1, $2, $3)
			  RETURNING ` + acceleratorColumns
	created, err := scanAccelerator(s.DB.QueryRowContext(ctx, query,
		a.University, nullable(a.Description), a.IsActive))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, acceleratorError(err))
	}
	return created, nil
}

// GetAccelerator возвращает акселератор по ID.
func (s *Storage) GetAccelerator(ctx context.Context, id int64) (*models.Accelerator, error) {
	const op = "storage.GetAccelerator"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + acceleratorColumns + `
			  FROM accelerators
			  WHERE id = $1`
	a, err := scanAccelerator(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, acceleratorError(err))
	}
	return a, nil
}

// ListAccelerators ищет акселераторы по подстроке названия университета.
func (s *Storage) ListAccelerators(ctx context.Context, filter models.AcceleratorFilter) ([]*models.Accelerator, error) {
	const op = "storage.ListAccelerators"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + acceleratorColumns + `
			  FROM accelerators
			  WHERE ($1 = '' OR university ILIKE '%' || $1 || '%')
			    AND (NOT $2 OR is_active)
			  ORDER BY university
			  OFFSET $3 LIMIT $4`
	rows, err := s.DB.QueryContext(ctx, query, filter.Search, filter.ActiveOnly, filter.Skip, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var res []*models.Accelerator
	for rows.Next() {
		a, err := scanAccelerator(rows)
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

// UpdateAccelerator применяет присутствующие поля изменения.
func (s *Storage) UpdateAccelerator(ctx context.Context, id int64, patch models.AcceleratorPatch) (*models.Accelerator, error) {
	const op = "storage.UpdateAccelerator"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var set assignments
	if patch.University.Set {
		set.add("university", patch.University.Value)
	}
	if patch.Description.Set {
		set.add("description", nullable(patch.Description.Ptr()))
	}
	if patch.IsActive.Set {
		set.add("is_active", patch.IsActive.Value)
	}
	if set.empty() {
		return s.GetAccelerator(ctx, id)
	}

	clause, next := set.clause()
	query := fmt.Sprintf(`UPDATE accelerators
			  SET %s
			  WHERE id = $%d
			  RETURNING %s`, clause, next, acceleratorColumns)
	a, err := scanAccelerator(s.DB.QueryRowContext(ctx, query, append(set.args, id)...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, acceleratorError(err))
	}
	return a, nil
}

// ToggleAccelerator инвертирует признак активности.
func (s *Storage) ToggleAccelerator(ctx context.Context, id int64) (*models.Accelerator, error) {
	const op = "storage.ToggleAccelerator"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accelerators
			  SET is_active = NOT is_active
			  WHERE id = $1
			  RETURNING ` + acceleratorColumns
	a, err := scanAccelerator(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, acceleratorError(err))
	}
	return a, nil
}

// DeleteAccelerator удаляет акселератор; связанные проекты теряют привязку.
func (s *Storage) DeleteAccelerator(ctx context.Context, id int64) error {
	const op = "storage.DeleteAccelerator"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM accelerators WHERE id = $1`, id)
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
