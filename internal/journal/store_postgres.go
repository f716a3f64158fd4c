package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Schema creates the journal table. EnsureSchema runs it at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS reconciliation_journal (
	id                   UUID PRIMARY KEY,
	source_id            TEXT NOT NULL,
	state                TEXT NOT NULL,
	created_task_ids     TEXT[] NOT NULL DEFAULT '{}',
	created_decision_ids TEXT[] NOT NULL DEFAULT '{}',
	reason               TEXT NOT NULL DEFAULT '',
	recorded_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS reconciliation_journal_recorded_at_idx
	ON reconciliation_journal (recorded_at DESC);
`

// PostgresStore persists entries in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed journal.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the journal table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO reconciliation_journal
			(id, source_id, state, created_task_ids, created_decision_ids, reason, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.SourceID,
		e.State,
		pq.Array(nonNil(e.CreatedTaskIDs)),
		pq.Array(nonNil(e.CreatedDecisionIDs)),
		e.Reason,
		e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, state, created_task_ids, created_decision_ids, reason, recorded_at
		FROM reconciliation_journal
		ORDER BY recorded_at DESC, id
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var tasks, decisions pq.StringArray
		if err := rows.Scan(&e.ID, &e.SourceID, &e.State, &tasks, &decisions, &e.Reason, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.CreatedTaskIDs = nonNil(tasks)
		e.CreatedDecisionIDs = nonNil(decisions)
		e.RecordedAt = e.RecordedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
