package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/guardrail/internal/ir"
)

// VerdictRecord is one row of the verdict log.
type VerdictRecord struct {
	Seq     int64
	Source  string // collaborator that recorded it, e.g. "batch:seed" or "http"
	Verdict ir.Verdict
}

// RecordVerdict appends a verdict to the log and returns its sequence
// number. The log is append-only: verdicts are never updated.
func (s *Store) RecordVerdict(ctx context.Context, source string, v ir.Verdict) (int64, error) {
	body, err := ir.MarshalCanonicalVerdict(v)
	if err != nil {
		return 0, fmt.Errorf("marshal verdict: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO verdicts (source, operation, admitted, digest, verdict)
		VALUES (?, ?, ?, ?, ?)
	`, source, string(v.Operation), boolToInt(v.Admitted), v.Digest, string(body))
	if err != nil {
		return 0, fmt.Errorf("insert verdict: %w", err)
	}
	return res.LastInsertId()
}

// ReadVerdicts returns the verdict log in sequence order.
func (s *Store) ReadVerdicts(ctx context.Context) ([]VerdictRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, source, verdict FROM verdicts ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	records := []VerdictRecord{}
	for rows.Next() {
		var (
			rec  VerdictRecord
			body string
		)
		if err := rows.Scan(&rec.Seq, &rec.Source, &body); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &rec.Verdict); err != nil {
			return nil, fmt.Errorf("decode verdict %d: %w", rec.Seq, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return records, nil
}
