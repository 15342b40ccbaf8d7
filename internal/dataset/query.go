package dataset

import (
	"context"
	"fmt"
	"time"

	"datalens/internal/common"
)

// DisplayRowLimit caps how many rows a result set carries back to the caller.
// The cap applies to the returned rows, not to the query itself; RowCount
// still reflects everything the query matched.
const DisplayRowLimit = 100

// ResultSet holds the outcome of a validated SELECT.
type ResultSet struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// ExecuteSelect runs an already-validated SELECT statement and returns its
// rows. Callers must gate the statement through safety.Validate first; this
// layer only executes.
func (s *Store) ExecuteSelect(ctx context.Context, query string) (*ResultSet, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("dataset store not initialised")
	}
	logger := common.Logger()
	start := time.Now()
	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		logger.Error("dataset: query failed", "dataset", s.name, "error", err)
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	result := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		result.RowCount++
		if result.RowCount > DisplayRowLimit {
			result.Truncated = true
			continue
		}
		values, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	logger.Info("dataset: query succeeded",
		"dataset", s.name, "rows", result.RowCount, "truncated", result.Truncated, "dur", time.Since(start))
	return result, nil
}

// normalizeValues converts driver byte slices to strings so result sets are
// JSON-friendly.
func normalizeValues(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}
