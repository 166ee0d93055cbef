package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hooklog/hooklog/internal/models"
)

// setupTestStore creates a PostgreSQL testcontainer and applies the schema.
func setupTestStore(t *testing.T) (*PostgresStore, func()) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("hooklog_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	if err := runMigrations(connStr); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	st, err := NewPostgresStore(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create store: %v", err)
	}

	cleanup := func() {
		st.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return st, cleanup
}

func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "001_init.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func testRecord(logID string, receivedAt time.Time) *models.LogRecord {
	processed := receivedAt.Add(time.Second)
	return &models.LogRecord{
		LogID:       logID,
		ReceivedAt:  receivedAt,
		EventType:   "payment.success",
		Payload:     json.RawMessage(`{"amount": 100}`),
		Signature:   "sha256=abc",
		ProcessedAt: &processed,
	}
}

func TestUpsertIfAbsent(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := testRecord("11111111-1111-1111-1111-111111111111", time.Now().UTC())

	result, err := st.UpsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, result)

	// Second delivery of the same log_id is absorbed.
	result, err = st.UpsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, WriteAlreadyExisted, result)

	logs, _, err := st.QueryByFilter(ctx, "", 10, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1, "duplicate write must not create a second row")

	got := logs[0]
	assert.Equal(t, rec.LogID, got.LogID)
	assert.Equal(t, rec.EventType, got.EventType)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))
	assert.Equal(t, rec.Signature, got.Signature)
	require.NotNil(t, got.ProcessedAt)
}

func TestUpsertDuplicateKeepsFirstWrite(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := testRecord("22222222-2222-2222-2222-222222222222", time.Now().UTC())
	_, err := st.UpsertIfAbsent(ctx, first)
	require.NoError(t, err)

	// A conflicting later write with different contents changes nothing.
	second := testRecord(first.LogID, time.Now().UTC())
	second.EventType = "something.else"
	result, err := st.UpsertIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, WriteAlreadyExisted, result)

	logs, _, err := st.QueryByFilter(ctx, "", 10, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "payment.success", logs[0].EventType)
}

func TestUpsertOptionalFields(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	rec := &models.LogRecord{
		LogID:      "33333333-3333-3333-3333-333333333333",
		ReceivedAt: time.Now().UTC(),
	}

	result, err := st.UpsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, WriteCreated, result)

	logs, _, err := st.QueryByFilter(ctx, "", 10, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Empty(t, logs[0].EventType)
	assert.Empty(t, logs[0].Payload)
	assert.Nil(t, logs[0].ProcessedAt)
}

func TestQueryOrderingNewestFirst(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := testRecord(fmt.Sprintf("00000000-0000-0000-0000-00000000000%d", i), base.Add(time.Duration(i)*time.Minute))
		_, err := st.UpsertIfAbsent(ctx, rec)
		require.NoError(t, err)
	}

	logs, _, err := st.QueryByFilter(ctx, "", 10, nil)
	require.NoError(t, err)
	require.Len(t, logs, 5)

	for i := 1; i < len(logs); i++ {
		assert.True(t, !logs[i].ReceivedAt.After(logs[i-1].ReceivedAt),
			"results must be ordered newest first")
	}
}

func TestQueryEventTypeFilter(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC()

	payment := testRecord("44444444-4444-4444-4444-444444444441", now)
	_, err := st.UpsertIfAbsent(ctx, payment)
	require.NoError(t, err)

	user := testRecord("44444444-4444-4444-4444-444444444442", now.Add(time.Second))
	user.EventType = "user.created"
	_, err = st.UpsertIfAbsent(ctx, user)
	require.NoError(t, err)

	logs, _, err := st.QueryByFilter(ctx, "user.created", 10, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, user.LogID, logs[0].LogID)

	logs, _, err = st.QueryByFilter(ctx, "no.such.type", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestQueryKeysetPagination(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	const total = 7
	for i := 0; i < total; i++ {
		rec := testRecord(fmt.Sprintf("55555555-5555-5555-5555-55555555555%d", i), base.Add(time.Duration(i)*time.Minute))
		_, err := st.UpsertIfAbsent(ctx, rec)
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	var cursor *Cursor
	pages := 0
	for {
		logs, next, err := st.QueryByFilter(ctx, "", 3, cursor)
		require.NoError(t, err)
		pages++

		for _, rec := range logs {
			assert.False(t, seen[rec.LogID], "record %s returned twice across pages", rec.LogID)
			seen[rec.LogID] = true
		}

		if next == nil {
			break
		}
		cursor = next
		require.Less(t, pages, 10, "pagination did not terminate")
	}

	assert.Len(t, seen, total, "pagination must cover every record exactly once")
}

func TestPing(t *testing.T) {
	st, cleanup := setupTestStore(t)
	defer cleanup()

	assert.NoError(t, st.Ping(context.Background()))
}
