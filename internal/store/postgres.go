package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint
// violation, mapped to DuplicateRecordError.
const uniqueViolation = "23505"

// PostgresStore is a Store backed by a PostgreSQL table instead of the
// filesystem. The record envelope is stored in dedicated columns for
// querying; the full record is kept as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and verifies it.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the connection pool.
func (ps *PostgresStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}

// EnsureSchema creates the handoff tables if they do not exist.
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := ps.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS handoff_records (
			id BIGSERIAL PRIMARY KEY,
			problem_statement TEXT NOT NULL,
			agent_name TEXT NOT NULL,
			next_step TEXT NOT NULL,
			ts TEXT NOT NULL,
			stage INT NOT NULL,
			validation_status TEXT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (problem_statement, agent_name, next_step, ts)
		);
		CREATE TABLE IF NOT EXISTS handoff_records_archive (
			LIKE handoff_records INCLUDING ALL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure handoff schema: %w", err)
	}
	return nil
}

// Write implements Store. Output existence is still checked against the
// filesystem; only the record itself lives in the database.
func (ps *PostgresStore) Write(ctx context.Context, rec *handoff.Record) (RecordID, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if err := rec.CheckOutputs(nil); err != nil {
		return "", err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal handoff record: %w", err)
	}

	_, err = ps.pool.Exec(ctx,
		`INSERT INTO handoff_records
		   (problem_statement, agent_name, next_step, ts, stage, validation_status, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ProblemStatement, rec.AgentName, rec.RecommendedNextStep,
		rec.Timestamp, rec.Stage, string(rec.ValidationStatus), payload,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", &handoff.DuplicateRecordError{Key: rec.Key()}
		}
		return "", fmt.Errorf("failed to insert handoff record: %w", err)
	}

	return RecordID(rec.ProblemStatement + "/" + rec.Key()), nil
}

// ReadLatest implements Store.
func (ps *PostgresStore) ReadLatest(ctx context.Context, problemStatement string) (*handoff.Record, error) {
	var payload []byte
	err := ps.pool.QueryRow(ctx,
		`SELECT payload FROM handoff_records
		 WHERE problem_statement = $1
		 ORDER BY ts DESC
		 LIMIT 1`,
		problemStatement,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read latest handoff record: %w", err)
	}

	var rec handoff.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal handoff record: %w", err)
	}
	return &rec, nil
}

// ReadChain implements Store.
func (ps *PostgresStore) ReadChain(ctx context.Context, problemStatement string) ([]*handoff.Record, error) {
	rows, err := ps.pool.Query(ctx,
		`SELECT payload FROM handoff_records
		 WHERE problem_statement = $1
		 ORDER BY ts ASC`,
		problemStatement,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff chain: %w", err)
	}
	defer rows.Close()

	var chain []*handoff.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan handoff record: %w", err)
		}
		var rec handoff.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal handoff record: %w", err)
		}
		chain = append(chain, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate handoff chain: %w", err)
	}

	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	return chain, nil
}

// Archive implements Store: rows older than the retention window move to the
// archive table in one transaction, never deleted outright.
func (ps *PostgresStore) Archive(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := handoff.FormatTimestamp(time.Now().Add(-olderThan))

	tx, err := ps.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO handoff_records_archive
		 SELECT * FROM handoff_records WHERE ts < $1`,
		cutoff,
	); err != nil {
		return 0, fmt.Errorf("failed to copy records to archive: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM handoff_records WHERE ts < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to remove archived records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit archive transaction: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
