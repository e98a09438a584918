package repository

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/accelerator-platform/internal/migrations"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя
func (f *TestDataFactory) CreateUser(t *testing.T, email string, role models.Role, disabled, verified bool) *models.User {
	t.Helper()
	u, err := f.storage.CreateUser(context.Background(), models.User{
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
		Disabled:     disabled,
		IsVerified:   verified,
	})
	require.NoError(t, err)
	return u
}

// CreateProject создает тестовый проект
func (f *TestDataFactory) CreateProject(t *testing.T, name string, owner uuid.UUID) *models.Project {
	t.Helper()
	p, err := f.storage.CreateProject(context.Background(), models.Project{
		Name:    name,
		Type:    models.ProjectResearch,
		Stage:   "planning",
		OwnerID: owner,
	})
	require.NoError(t, err)
	return p
}

// CreateToken создает одноразовый токен
func (f *TestDataFactory) CreateToken(t *testing.T, userID uuid.UUID, purpose models.TokenPurpose, hash string, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, f.storage.SaveToken(context.Background(), models.OneTimeToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hash,
		ExpiresAt: expiresAt,
	}))
}

// QuestionIDs возвращает ID вопросов позиции
func (f *TestDataFactory) QuestionIDs(t *testing.T, step models.Step) []int64 {
	t.Helper()
	qs, err := f.storage.ListQuestions(context.Background(), step)
	require.NoError(t, err)
	ids := make([]int64, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids
}

// findToken читает одноразовый токен по назначению и хэшу
func findToken(ctx context.Context, s *Storage, purpose models.TokenPurpose, tokenHash string) (*models.OneTimeToken, error) {
	query := `SELECT id, user_id, purpose, token_hash, expires_at, is_used, created_at
			  FROM user_tokens
			  WHERE purpose = $1 AND token_hash = $2`
	t := &models.OneTimeToken{}
	err := s.DB.QueryRowContext(ctx, query, purpose, tokenHash).Scan(
		&t.ID, &t.UserID, &t.Purpose, &t.TokenHash, &t.ExpiresAt, &t.IsUsed, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return t, err
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err, "failed to create storage")

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	_, err = migrations.Run(storage.DB, filepath.Join(root, "migrations"))
	require.NoError(t, err)
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	cleanup := func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return storage, cleanup
}
