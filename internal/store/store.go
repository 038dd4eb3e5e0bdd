// Package store provides durable, append-only persistence of handoff
// records, addressable by problem statement and stage transition.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// ErrNotFound is returned when no handoff record exists for a problem
// statement.
var ErrNotFound = errors.New("no handoff records found")

// RecordID identifies a persisted record: {problem_statement}/{key}.
type RecordID string

// Store is the append-only handoff record store. Records are immutable once
// written; a key collision is a DuplicateRecordError, never an overwrite.
// Chains for different problem statements are isolated by partition key and
// never interfere with one another.
type Store interface {
	// Write validates the record structurally, verifies every declared
	// output path exists, and persists it. Nothing is persisted on failure.
	Write(ctx context.Context, rec *handoff.Record) (RecordID, error)

	// ReadLatest returns the most recently timestamped record for the
	// problem statement, or ErrNotFound.
	ReadLatest(ctx context.Context, problemStatement string) (*handoff.Record, error)

	// ReadChain returns all records for a problem statement ordered by
	// timestamp ascending. Re-querying with no intervening writes returns
	// an identical sequence.
	ReadChain(ctx context.Context, problemStatement string) ([]*handoff.Record, error)

	// Archive relocates records whose timestamp predates the retention
	// window into the archive area and returns how many moved. Data is
	// never deleted, only moved.
	Archive(ctx context.Context, olderThan time.Duration) (int, error)
}
