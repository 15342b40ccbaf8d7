// Package ticket records support requests raised when the assistant cannot
// help. Tickets are persisted locally and logged; no external ticketing
// system is involved.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"datalens/internal/common"
)

// Ticket is one locally logged support record.
type Ticket struct {
	ID        string    `db:"id" json:"ticket_id"`
	Issue     string    `db:"issue" json:"issue"`
	Question  string    `db:"question" json:"question,omitempty"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store persists tickets to a dedicated SQLite database.
type Store struct {
	db *sqlx.DB

	now func() time.Time
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
                id TEXT PRIMARY KEY,
                issue TEXT NOT NULL,
                question TEXT,
                status TEXT NOT NULL DEFAULT 'created',
                created_at DATETIME NOT NULL
        );`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created ON tickets(created_at);`,
}

// Open constructs a Store backed by the SQLite database at the provided path
// and migrates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ticket store path required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve ticket store path: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", abs)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ticket store: %w", err)
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("ticket store not initialised")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ticket migration: %w", err)
	}
	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("ticket schema statement %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ticket migration: %w", err)
	}
	return nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create files a new ticket and logs it for follow-up.
func (s *Store) Create(ctx context.Context, issue, question string) (*Ticket, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ticket store not initialised")
	}
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return nil, errors.New("ticket issue required")
	}
	created := s.now().UTC()
	ticket := &Ticket{
		ID:        fmt.Sprintf("TICKET-%s-%s", created.Format("20060102-150405"), uuid.NewString()[:8]),
		Issue:     issue,
		Question:  strings.TrimSpace(question),
		Status:    "created",
		CreatedAt: created,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, issue, question, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		ticket.ID, ticket.Issue, ticket.Question, ticket.Status, ticket.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	logger := common.Logger()
	logger.Info("ticket: new support ticket", "ticket_id", ticket.ID, "issue", ticket.Issue)
	if ticket.Question != "" {
		logger.Info("ticket: original question", "ticket_id", ticket.ID, "question", ticket.Question)
	}
	return ticket, nil
}

// List returns up to limit tickets, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Ticket, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("ticket store not initialised")
	}
	if limit <= 0 {
		limit = 50
	}
	tickets := []Ticket{}
	if err := s.db.SelectContext(ctx, &tickets,
		`SELECT * FROM tickets ORDER BY created_at DESC, id DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("select tickets: %w", err)
	}
	return tickets, nil
}
