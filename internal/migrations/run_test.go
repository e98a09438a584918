package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func getTestDB(t *testing.T) (*sql.DB, func()) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func getMigrationsPath(t *testing.T) string {
	projectRoot, err := filepath.Abs("../..")
	require.NoError(t, err)

	migrationsPath := filepath.Join(projectRoot, "migrations")
	return migrationsPath
}

func TestRunMigrations(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	version, err := Run(db, getMigrationsPath(t))
	require.NoError(t, err)
	require.Equal(t, uint(2), version)

	for _, table := range []string{
		"users", "user_tokens", "user_profiles", "accelerators",
		"projects", "research_trackers", "research_questions", "research_answers",
	} {
		var exists bool
		err = db.QueryRow(`
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)
		`, table).Scan(&exists)
		require.NoError(t, err)
		require.True(t, exists, "table %q should exist", table)
	}

	var exists bool
	err = db.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public'
			AND tablename = 'accelerators'
			AND indexname = 'ux_accelerators_university'
		)
	`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "case-insensitive university index should exist")

	var questions, required int
	err = db.QueryRow(`SELECT COUNT(*), COUNT(*) FILTER (WHERE required) FROM research_questions`).
		Scan(&questions, &required)
	require.NoError(t, err)
	require.Equal(t, 12, questions)
	require.Equal(t, 12, required)

	var options string
	err = db.QueryRow(`
		SELECT options::text FROM research_questions
		WHERE phase = 'planning' AND stage = 'stage_2' AND question_type = 'multiple_choice'
	`).Scan(&options)
	require.NoError(t, err)
	require.JSONEq(t, `["Qualitative", "Quantitative", "Mixed Methods"]`, options)
}

func TestMigrationIdempotency(t *testing.T) {
	db, cleanup := getTestDB(t)
	defer cleanup()

	migrationsPath := getMigrationsPath(t)

	_, err := Run(db, migrationsPath)
	require.NoError(t, err)
	version, err := Run(db, migrationsPath)
	require.NoError(t, err, "running migrations twice should not fail")
	require.Equal(t, uint(2), version)

	var questions int
	err = db.QueryRow("SELECT COUNT(*) FROM research_questions").Scan(&questions)
	require.NoError(t, err)
	require.Equal(t, 12, questions, "seed should not be applied twice")
}
