package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// insertToken гасит прежние неиспользованные токены того же назначения
// и сохраняет новый. Вызывается внутри транзакции.
func insertToken(ctx context.Context, tx *sql.Tx, token models.OneTimeToken) error {
	invalidate := `UPDATE user_tokens
			       SET is_used = TRUE
			       WHERE user_id = $1 AND purpose = $2 AND NOT is_used`
	if _, err := tx.ExecContext(ctx, invalidate, token.UserID, token.Purpose); err != nil {
		return err
	}

	insert := `INSERT INTO user_tokens (user_id, purpose, token_hash, expires_at)
			   VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insert,
		token.UserID, token.Purpose, token.TokenHash, token.ExpiresAt); err != nil {
		return err
	}
	return nil
}

// SaveToken сохраняет одноразовый токен, делая его единственным действующим
// для пользователя и назначения.
func (s *Storage) SaveToken(ctx context.Context, token models.OneTimeToken) error {
	const op = "storage.SaveToken"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertToken(ctx, tx, token)
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// consumeToken помечает токен использованным, если он существует,
// не погашен и не истёк, и возвращает владельца.
func consumeToken(ctx context.Context, tx *sql.Tx, purpose models.TokenPurpose, tokenHash string, now time.Time) (string, error) {
	query := `UPDATE user_tokens
			  SET is_used = TRUE
			  WHERE purpose = $1 AND token_hash = $2 AND NOT is_used AND expires_at > $3
			  RETURNING user_id`
	var userID string
	if err := tx.QueryRowContext(ctx, query, purpose, tokenHash, now).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", models.ErrInvalidOrExpiredToken
		}
		return "", err
	}
	return userID, nil
}

// ConsumeVerification гасит токен подтверждения и активирует пользователя.
// Уже подтверждённый пользователь даёт ErrAlreadyVerified, токен при этом не гасится.
func (s *Storage) ConsumeVerification(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	const op = "storage.ConsumeVerification"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := consumeToken(ctx, tx, models.PurposeVerification, tokenHash, now)
		if err != nil {
			return err
		}

		current, err := scanUser(tx.QueryRowContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		if current.IsVerified {
			return models.ErrAlreadyVerified
		}

		user, err = scanUser(tx.QueryRowContext(ctx,
			`UPDATE users
			 SET disabled = FALSE, is_verified = TRUE
			 WHERE id = $1
			 RETURNING `+userColumns, userID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ConsumeReset гасит токен сброса и заменяет хэш пароля.
func (s *Storage) ConsumeReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (*models.User, error) {
	const op = "storage.ConsumeReset"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var user *models.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		userID, err := consumeToken(ctx, tx, models.PurposePasswordReset, tokenHash, now)
		if err != nil {
			return err
		}
		user, err = scanUser(tx.QueryRowContext(ctx,
			`UPDATE users
			 SET password_hash = $2
			 WHERE id = $1
			 RETURNING `+userColumns, userID, passwordHash))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// PurgeTokens удаляет погашенные и истёкшие на момент now токены.
func (s *Storage) PurgeTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.PurgeTokens"

	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE is_used OR expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
