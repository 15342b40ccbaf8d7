package dataset

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"datalens/internal/common"
)

// schemaCache memoizes the schema description. Datasets are read-only while
// the service runs, so the first successful build is kept for the process
// lifetime.
type schemaCache struct {
	mu   sync.Mutex
	text string
}

type columnInfo struct {
	CID          int     `db:"cid"`
	Name         string  `db:"name"`
	Type         string  `db:"type"`
	NotNull      int     `db:"notnull"`
	DefaultValue *string `db:"dflt_value"`
	PrimaryKey   int     `db:"pk"`
}

// Schema returns a textual description of the dataset structure: table and
// column names with declared types, plus any views. It contains no row data
// and is the only database-derived content ever shared with the model.
func (s *Store) Schema(ctx context.Context) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("dataset store not initialised")
	}
	s.schema.mu.Lock()
	defer s.schema.mu.Unlock()
	if s.schema.text != "" {
		return s.schema.text, nil
	}

	tables := []string{}
	if err := s.db.SelectContext(ctx, &tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`); err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}

	var builder strings.Builder
	builder.WriteString("Database Schema:\n")
	for _, table := range tables {
		columns := []columnInfo{}
		if err := s.db.SelectContext(ctx, &columns, fmt.Sprintf(`PRAGMA table_info(%q)`, table)); err != nil {
			return "", fmt.Errorf("describe table %s: %w", table, err)
		}
		builder.WriteString("\nTable: ")
		builder.WriteString(table)
		builder.WriteString("\nColumns:\n")
		for _, col := range columns {
			builder.WriteString(fmt.Sprintf("  - %s (%s)\n", col.Name, col.Type))
		}
	}

	views := []string{}
	if err := s.db.SelectContext(ctx, &views,
		`SELECT name FROM sqlite_master WHERE type = 'view' ORDER BY name`); err != nil {
		return "", fmt.Errorf("list views: %w", err)
	}
	if len(views) > 0 {
		builder.WriteString("\nViews (pre-made summaries):\n")
		for _, view := range views {
			builder.WriteString("  - ")
			builder.WriteString(view)
			builder.WriteString("\n")
		}
	}

	s.schema.text = builder.String()
	common.Logger().Debug("dataset: schema built", "dataset", s.name, "tables", len(tables), "views", len(views))
	return s.schema.text, nil
}
