// ABOUTME: SQLite-backed audit sink using modernc.org/sqlite via database/sql
// ABOUTME: Persists uuid-keyed entries with RFC3339 timestamps and JSON detail

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is a persisted audit record.
type Entry struct {
	ID        string
	Action    string
	Timestamp time.Time
	Detail    map[string]any
}

// SQLiteSink persists audit events to a local SQLite database.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	audit_id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	ts TEXT NOT NULL,
	detail_json TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts);
`

// NewSQLiteSink opens (creating if needed) the audit database at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteSink(path string, logger *slog.Logger) (*SQLiteSink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing audit schema: %w", err)
	}

	return &SQLiteSink{db: db, logger: logger}, nil
}

// Record appends an audit entry. Failures are logged, never surfaced; the
// request that triggered the event must not fail because auditing did.
func (s *SQLiteSink) Record(ctx context.Context, action string, detail map[string]any) {
	id := uuid.New().String()
	ts := time.Now().UTC().Format(time.RFC3339Nano)

	var detailJSON *string
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			s.logger.Warn("failed to marshal audit detail", "action", action, "error", err)
		} else {
			str := string(data)
			detailJSON = &str
		}
	}

	query := `INSERT INTO audit_log (audit_id, action, ts, detail_json) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, id, action, ts, detailJSON); err != nil {
		s.logger.Warn("failed to append audit entry", "action", action, "error", err)
		return
	}

	s.logger.Debug("appended audit entry", "id", id, "action", action)
}

// List returns the most recent entries, newest first. Limit defaults to 100
// and is capped at 1000.
func (s *SQLiteSink) List(ctx context.Context, limit int) ([]Entry, error) {
	switch {
	case limit <= 0:
		limit = 100
	case limit > 1000:
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT audit_id, action, ts, detail_json FROM audit_log ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var tsStr string
		var detailJSON *string
		if err := rows.Scan(&e.ID, &e.Action, &tsStr, &detailJSON); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
