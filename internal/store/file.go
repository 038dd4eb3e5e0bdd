package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/melissa/agent-orchestrator/internal/handoff"
)

// FileStore persists handoff records as one JSON file per stage transition
// under {base}/{problem_statement}/{agent_lower}_to_{next_step}_{timestamp}.json.
// Writes use O_EXCL so two runners racing on the same key get a
// DuplicateRecordError rather than last-write-wins.
type FileStore struct {
	baseDir    string
	archiveDir string
	now        func() time.Time
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithClock overrides the store's clock. Tests use this to pin the archive
// cutoff.
func WithClock(now func() time.Time) FileStoreOption {
	return func(fs *FileStore) { fs.now = now }
}

// NewFileStore creates a file-backed store rooted at baseDir, archiving into
// archiveDir.
func NewFileStore(baseDir, archiveDir string, opts ...FileStoreOption) *FileStore {
	fs := &FileStore{baseDir: baseDir, archiveDir: archiveDir, now: time.Now}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Write implements Store. Structural checks and output existence checks run
// before anything touches disk; an output reference is never silently
// dropped.
func (fs *FileStore) Write(ctx context.Context, rec *handoff.Record) (RecordID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := rec.Validate(); err != nil {
		return "", err
	}
	if err := rec.CheckOutputs(nil); err != nil {
		return "", err
	}

	dir := filepath.Join(fs.baseDir, rec.ProblemStatement)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create handoff directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal handoff record: %w", err)
	}

	path := filepath.Join(dir, rec.Filename())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", &handoff.DuplicateRecordError{Key: rec.Key()}
		}
		return "", fmt.Errorf("failed to create handoff file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write handoff file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close handoff file: %w", err)
	}

	return RecordID(rec.ProblemStatement + "/" + rec.Key()), nil
}

// ReadLatest implements Store.
func (fs *FileStore) ReadLatest(ctx context.Context, problemStatement string) (*handoff.Record, error) {
	chain, err := fs.ReadChain(ctx, problemStatement)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, ErrNotFound
	}
	return chain[len(chain)-1], nil
}

// ReadChain implements Store. The chain is re-read from disk on every call.
func (fs *FileStore) ReadChain(ctx context.Context, problemStatement string) ([]*handoff.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(fs.baseDir, problemStatement)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read handoff directory: %w", err)
	}

	var chain []*handoff.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := fs.readFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		chain = append(chain, rec)
	}

	if len(chain) == 0 {
		return nil, ErrNotFound
	}

	// Timestamp layout sorts lexicographically in chronological order.
	sort.Slice(chain, func(i, j int) bool {
		return chain[i].Timestamp < chain[j].Timestamp
	})
	return chain, nil
}

// Archive implements Store. Records older than the retention window are
// renamed into the archive area, preserving the per-problem-statement
// layout.
func (fs *FileStore) Archive(ctx context.Context, olderThan time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	cutoff := fs.now().Add(-olderThan)

	partitions, err := os.ReadDir(fs.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read store directory: %w", err)
	}

	moved := 0
	for _, partition := range partitions {
		if !partition.IsDir() {
			continue
		}
		dir := filepath.Join(fs.baseDir, partition.Name())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return moved, fmt.Errorf("failed to read partition %s: %w", partition.Name(), err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			rec, err := fs.readFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return moved, err
			}
			ts, err := rec.Time()
			if err != nil {
				return moved, err
			}
			if !ts.Before(cutoff) {
				continue
			}

			destDir := filepath.Join(fs.archiveDir, partition.Name())
			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return moved, fmt.Errorf("failed to create archive directory: %w", err)
			}
			src := filepath.Join(dir, entry.Name())
			dest := filepath.Join(destDir, entry.Name())
			if err := os.Rename(src, dest); err != nil {
				return moved, fmt.Errorf("failed to archive %s: %w", entry.Name(), err)
			}
			moved++
		}
	}
	return moved, nil
}

func (fs *FileStore) readFile(path string) (*handoff.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff file %s: %w", path, err)
	}
	var rec handoff.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &handoff.MalformedRecordError{
			Reason: fmt.Sprintf("handoff file %s is not valid JSON", filepath.Base(path)),
			Cause:  err,
		}
	}
	return &rec, nil
}
