package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

const profileColumns = `user_id, name, surname, patronymic, phone_number`

func scanProfile(row interface{ Scan(...any) error }) (*models.Profile, error) {
	p := &models.Profile{}
	var name, surname, patronymic, phone sql.NullString
	if err := row.Scan(&p.UserID, &name, &surname, &patronymic, &phone); err != nil {
		return nil, err
	}
	p.Name = nullString(name)
	p.Surname = nullString(surname)
	p.Patronymic = nullString(patronymic)
	p.PhoneNumber = nullString(phone)
	return p, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

// GetProfile возвращает профиль пользователя.
func (s *Storage) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + `
			  FROM user_profiles
			  WHERE user_id = $1`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// CreateProfile создаёт профиль; существующий даёт ErrProfileExists.
func (s *Storage) CreateProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	const op = "storage.CreateProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_profiles (` + profileColumns + `)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + profileColumns
	created, err := scanProfile(s.DB.QueryRowContext(ctx, query, p.UserID,
		nullable(p.Name), nullable(p.Surname), nullable(p.Patronymic), nullable(p.PhoneNumber)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrProfileExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// UpsertProfile создаёт профиль или полностью заменяет его поля.
func (s *Storage) UpsertProfile(ctx context.Context, p models.Profile) (*models.Profile, error) {
	const op = "storage.UpsertProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_profiles (` + profileColumns + `)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (user_id) DO UPDATE
			  SET name = EXCLUDED.name,
			      surname = EXCLUDED.surname,
			      patronymic = EXCLUDED.patronymic,
			      phone_number = EXCLUDED.phone_number
			  RETURNING ` + profileColumns
	saved, err := scanProfile(s.DB.QueryRowContext(ctx, query, p.UserID,
		nullable(p.Name), nullable(p.Surname), nullable(p.Patronymic), nullable(p.PhoneNumber)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return saved, nil
}
