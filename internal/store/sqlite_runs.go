package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/izzyreal/resethook/internal/protocol"
)

const defaultRunsLimit = 50

func (s *Store) RecordRun(ctx context.Context, result protocol.HookResult) (int64, error) {
	targetsJSON, err := json.Marshal(result.Targets)
	if err != nil {
		return 0, fmt.Errorf("marshal targets: %w", err)
	}
	started := result.StartedUTC
	if started.IsZero() {
		started = time.Now().UTC()
	}
	finished := result.FinishedUTC
	if finished.IsZero() {
		finished = started
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO hook_runs (event, status, message, targets_json, started_utc, finished_utc)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(result.Event), result.Status, nullIfEmpty(result.Message), string(targetsJSON),
		started.UTC().Format(time.RFC3339Nano), finished.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert hook run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("hook run id: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs first. limit <= 0 uses the default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]protocol.RunRecord, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event, status, message, targets_json, started_utc, finished_utc
		FROM hook_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list hook runs: %w", err)
	}
	defer rows.Close()

	out := []protocol.RunRecord{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hook run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hook runs: %w", err)
	}
	return out, nil
}

func (s *Store) FlushRuns(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hook_runs`)
	if err != nil {
		return 0, fmt.Errorf("flush hook runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
