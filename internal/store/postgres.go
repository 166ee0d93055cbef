// Package store implements the durable log store on PostgreSQL. Correctness
// under concurrent duplicate writes rests on the primary-key constraint on
// log_id, not on application-level locking.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hooklog/hooklog/internal/models"
)

// WriteResult reports the outcome of an idempotent write.
type WriteResult int

const (
	// WriteCreated means the record did not exist and was inserted.
	WriteCreated WriteResult = iota

	// WriteAlreadyExisted means a record with the same log_id was already
	// present; the write was absorbed as a no-op.
	WriteAlreadyExisted
)

// String returns a human-readable representation of the write result.
func (r WriteResult) String() string {
	switch r {
	case WriteCreated:
		return "created"
	case WriteAlreadyExisted:
		return "already_existed"
	default:
		return "unknown"
	}
}

// PostgresStore provides keyed access to webhook log records.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and verifies the connection.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// Ping verifies database connectivity, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertIfAbsent inserts the record keyed by log_id, or does nothing if a
// record with that log_id already exists. The second delivery of the same
// message is a no-op success, never a duplicate row or an error.
func (s *PostgresStore) UpsertIfAbsent(ctx context.Context, rec *models.LogRecord) (WriteResult, error) {
	q := `INSERT INTO webhook_logs (
	        log_id, received_at, event_type, payload, signature, processed_at
	      ) VALUES ($1, $2, $3, $4, $5, $6)
	      ON CONFLICT (log_id) DO NOTHING`

	var eventType interface{}
	if rec.EventType != "" {
		eventType = rec.EventType
	}
	var payload interface{}
	if len(rec.Payload) > 0 {
		payload = []byte(rec.Payload)
	}
	var sig interface{}
	if rec.Signature != "" {
		sig = rec.Signature
	}

	tag, err := s.pool.Exec(ctx, q,
		rec.LogID, rec.ReceivedAt, eventType, payload, sig, rec.ProcessedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert log record: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return WriteAlreadyExisted, nil
	}
	return WriteCreated, nil
}

// QueryByFilter returns records ordered by received_at descending, optionally
// filtered by event type. cursor resumes a previous page; the returned
// cursor is nil when the result set is exhausted.
func (s *PostgresStore) QueryByFilter(ctx context.Context, eventType string, limit int, cursor *Cursor) ([]models.LogRecord, *Cursor, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT log_id, received_at, event_type, payload, signature, processed_at
	      FROM webhook_logs`
	args := []interface{}{}
	where := ""

	appendCond := func(cond string) {
		if where == "" {
			where = " WHERE " + cond
		} else {
			where += " AND " + cond
		}
	}

	if eventType != "" {
		args = append(args, eventType)
		appendCond(fmt.Sprintf("event_type = $%d", len(args)))
	}
	if cursor != nil {
		args = append(args, cursor.ReceivedAt, cursor.LogID)
		appendCond(fmt.Sprintf("(received_at, log_id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	args = append(args, limit)
	q += where + fmt.Sprintf(" ORDER BY received_at DESC, log_id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []models.LogRecord
	for rows.Next() {
		var rec models.LogRecord
		var eventType, sig *string
		var payload []byte
		if err := rows.Scan(
			&rec.LogID, &rec.ReceivedAt, &eventType, &payload, &sig, &rec.ProcessedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		if eventType != nil {
			rec.EventType = *eventType
		}
		if sig != nil {
			rec.Signature = *sig
		}
		rec.Payload = payload
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	var next *Cursor
	if len(out) == limit {
		last := out[len(out)-1]
		next = &Cursor{ReceivedAt: last.ReceivedAt, LogID: last.LogID}
	}

	return out, next, nil
}
