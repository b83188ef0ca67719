package journal

import (
	"context"
	"fmt"

	"github.com/understudy-dev/understudy/internal/sequencer"
	"github.com/understudy-dev/understudy/internal/value"
)

// RecordCall implements sequencer.Recorder. Each resolved call becomes one
// row stamped with the journal's run token and the next sequence number.
func (j *Journal) RecordCall(ctx context.Context, rec sequencer.CallRecord) error {
	synthetic := 0
	if rec.Synthetic {
		synthetic = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO calls (run_id, seq, service, method, ordinal, outcome, error_code, synthetic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.runID, j.next(), rec.Service, rec.Method, rec.Ordinal, rec.Outcome, rec.ErrorCode, synthetic,
	)
	if err != nil {
		return fmt.Errorf("record call %s.%s: %w", rec.Service, rec.Method, err)
	}
	return nil
}

// RecordUpdates implements sequencer.Recorder. Every key in the batch is
// written under one sequence number so the batch stays identifiable.
func (j *Journal) RecordUpdates(ctx context.Context, service string, updates value.Map) error {
	if len(updates) == 0 {
		return nil
	}

	seq := j.next()
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update batch: %w", err)
	}
	defer tx.Rollback()

	for _, key := range updates.SortedKeys() {
		encoded, err := value.MarshalCanonical(updates[key])
		if err != nil {
			return fmt.Errorf("encode update %q: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state_updates (run_id, seq, service, key, value) VALUES (?, ?, ?, ?, ?)`,
			j.runID, seq, service, key, string(encoded),
		); err != nil {
			return fmt.Errorf("record update %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update batch: %w", err)
	}
	return nil
}
