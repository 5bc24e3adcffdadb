package audit

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id TEXT PRIMARY KEY,
	t DATETIME NOT NULL,
	sym TEXT NOT NULL,
	width REAL NOT NULL,
	credit REAL NOT NULL,
	contracts INTEGER NOT NULL,
	daily_cap REAL NOT NULL,
	remaining_budget REAL NOT NULL,
	decision TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_t ON audit_records(t);
`

// SQLite is a durable audit store. It satisfies Sink, so it can back
// an in-memory Log, and it can be queried on its own for compliance
// review.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the audit database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Append inserts one record.
func (s *SQLite) Append(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_records
		(id, t, sym, width, credit, contracts, daily_cap, remaining_budget, decision, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.T, r.Symbol, r.Width, r.Credit, r.Contracts,
		r.DailyCap, r.RemainingBudget, string(r.Decision), r.Reason,
	)
	return err
}

// Recent returns the most recent n records in insertion order.
func (s *SQLite) Recent(n int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, t, sym, width, credit, contracts, daily_cap, remaining_budget, decision, reason
		FROM audit_records
		ORDER BY t DESC, id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	// Reverse back to insertion order.
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

// RecordsBetween returns records with t within [start, end), oldest
// first.
func (s *SQLite) RecordsBetween(start, end time.Time) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, t, sym, width, credit, contracts, daily_cap, remaining_budget, decision, reason
		FROM audit_records
		WHERE t >= ? AND t < ?
		ORDER BY t ASC, id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec      Record
			decision string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.T,
			&rec.Symbol,
			&rec.Width,
			&rec.Credit,
			&rec.Contracts,
			&rec.DailyCap,
			&rec.RemainingBudget,
			&decision,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.Decision = Decision(decision)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
