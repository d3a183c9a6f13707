package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores audit records in a dedicated SQLite database, for
// deployments that want the log queryable rather than a flat file. The
// driver serializes writes.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens the audit database at path and creates the schema.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		tenant    TEXT NOT NULL,
		provider  TEXT NOT NULL,
		model     TEXT,
		prompt    TEXT,
		response  TEXT
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_log(tenant, timestamp)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Write inserts one audit record.
func (s *SQLiteSink) Write(rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (timestamp, tenant, provider, model, prompt, response)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.Tenant, rec.Provider, rec.Model, rec.Prompt, rec.Response,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// Recent returns up to limit records for a tenant, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, tenant string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, tenant, provider, model, prompt, response
		 FROM audit_log WHERE tenant = ? ORDER BY id DESC LIMIT ?`,
		tenant, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Timestamp, &r.Tenant, &r.Provider, &r.Model, &r.Prompt, &r.Response); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
