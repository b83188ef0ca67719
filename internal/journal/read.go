package journal

import (
	"context"
	"fmt"
)

// CallRow is one journaled call.
type CallRow struct {
	RunID     string
	Seq       int64
	Service   string
	Method    string
	Ordinal   int
	Outcome   string
	ErrorCode string
	Synthetic bool
}

// UpdateRow is one journaled shared-state write. A batch shares a Seq.
type UpdateRow struct {
	RunID   string
	Seq     int64
	Service string
	Key     string
	Value   string
}

// Calls returns every call row for a run in sequence order.
func (j *Journal) Calls(ctx context.Context, runID string) ([]CallRow, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, service, method, ordinal, outcome, error_code, synthetic
		 FROM calls WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var out []CallRow
	for rows.Next() {
		var r CallRow
		var synthetic int
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Service, &r.Method, &r.Ordinal, &r.Outcome, &r.ErrorCode, &synthetic); err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}
		r.Synthetic = synthetic != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Updates returns every state-update row for a run in sequence order,
// batches kept adjacent.
func (j *Journal) Updates(ctx context.Context, runID string) ([]UpdateRow, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT run_id, seq, service, key, value
		 FROM state_updates WHERE run_id = ? ORDER BY seq, key`, runID)
	if err != nil {
		return nil, fmt.Errorf("query state updates: %w", err)
	}
	defer rows.Close()

	var out []UpdateRow
	for rows.Next() {
		var r UpdateRow
		if err := rows.Scan(&r.RunID, &r.Seq, &r.Service, &r.Key, &r.Value); err != nil {
			return nil, fmt.Errorf("scan update row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs returns the distinct run tokens present in the journal, oldest
// first. UUIDv7 tokens sort by creation time.
func (j *Journal) Runs(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT DISTINCT run_id FROM calls ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CallCount returns the number of journaled calls to one method in a run.
func (j *Journal) CallCount(ctx context.Context, runID, service, method string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM calls WHERE run_id = ? AND service = ? AND method = ?`,
		runID, service, method).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}
