package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/shipper-match/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS hs_company_mappings (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	hs_code             TEXT NOT NULL,
	country             TEXT NOT NULL,
	company_name        TEXT NOT NULL,
	confidence_override INTEGER CHECK (confidence_override BETWEEN 0 AND 100),
	source              TEXT NOT NULL DEFAULT 'manual',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (hs_code, country, company_name)
);

CREATE INDEX IF NOT EXISTS idx_hs_company_mappings_lookup ON hs_company_mappings(hs_code, country COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS search_logs (
	id             TEXT PRIMARY KEY,
	search_term    TEXT NOT NULL,
	filters        TEXT NOT NULL DEFAULT '{}',
	result_count   INTEGER NOT NULL DEFAULT 0,
	avg_confidence REAL NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_feedback (
	id                 TEXT PRIMARY KEY,
	original_company   TEXT NOT NULL,
	corrected_company  TEXT,
	hs_code            TEXT NOT NULL,
	country            TEXT NOT NULL,
	confidence_at_time INTEGER NOT NULL,
	feedback_type      TEXT NOT NULL CHECK (feedback_type IN ('correct', 'incorrect', 'correction')),
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_company_feedback_type ON company_feedback(feedback_type);
`

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// TopMapping returns the highest-confidence mapping for the HS code and
// country (case-insensitive), or nil when none exists.
func (s *SQLiteStore) TopMapping(ctx context.Context, hsCode, country string) (*model.HSMapping, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, hs_code, country, company_name, confidence_override, source, created_at, updated_at
		FROM hs_company_mappings
		WHERE hs_code = ? AND lower(country) = lower(?)
		ORDER BY confidence_override IS NULL, confidence_override DESC, id ASC
		LIMIT 1`,
		hsCode, country,
	)

	var m model.HSMapping
	var override sql.NullInt64
	err := row.Scan(&m.ID, &m.HSCode, &m.Country, &m.CompanyName, &override, &m.Source, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: top mapping %s/%s", hsCode, country)
	}
	if override.Valid {
		v := int(override.Int64)
		m.ConfidenceOverride = &v
	}
	return &m, nil
}

// HasMapping reports whether any mapping exists for the HS code and country.
func (s *SQLiteStore) HasMapping(ctx context.Context, hsCode, country string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM hs_company_mappings WHERE hs_code = ? AND lower(country) = lower(?))`,
		hsCode, country,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: has mapping %s/%s", hsCode, country)
	}
	return exists, nil
}

// UpsertMappings inserts mappings in one transaction, updating the override
// and source of rows that already exist unless they were curated manually.
func (s *SQLiteStore) UpsertMappings(ctx context.Context, mappings []model.HSMapping) (int64, error) {
	if len(mappings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO hs_company_mappings (hs_code, country, company_name, confidence_override, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hs_code, country, company_name) DO UPDATE SET
			confidence_override = excluded.confidence_override,
			source = excluded.source,
			updated_at = excluded.updated_at
		WHERE hs_company_mappings.source <> 'manual' OR excluded.source = 'manual'`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	var total int64
	for _, m := range dedupeMappings(mappings) {
		source := m.Source
		if source == "" {
			source = model.MappingSourceManual
		}
		var override sql.NullInt64
		if m.ConfidenceOverride != nil {
			override = sql.NullInt64{Int64: int64(*m.ConfidenceOverride), Valid: true}
		}
		res, err := stmt.ExecContext(ctx, m.HSCode, m.Country, m.CompanyName, override, source, now, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert mapping %s/%s/%s", m.HSCode, m.Country, m.CompanyName)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "rows affected")
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return total, nil
}

// AppendSearchLog inserts a search log entry.
func (s *SQLiteStore) AppendSearchLog(ctx context.Context, entry *model.SearchLog) error {
	filters := entry.Filters
	if filters == nil {
		filters = map[string]any{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal search filters")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_logs (id, search_term, filters, result_count, avg_confidence, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SearchTerm, string(filtersJSON), entry.ResultCount, entry.AvgConfidence, entry.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert search log")
}

// AppendFeedback inserts a feedback record.
func (s *SQLiteStore) AppendFeedback(ctx context.Context, fb *model.CompanyFeedback) error {
	var corrected sql.NullString
	if fb.CorrectedCompany != nil {
		corrected = sql.NullString{String: *fb.CorrectedCompany, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_feedback (id, original_company, corrected_company, hs_code, country, confidence_at_time, feedback_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		fb.ID, fb.OriginalCompany, corrected, fb.HSCode, fb.Country, fb.ConfidenceAtTime, string(fb.FeedbackType), fb.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert feedback")
}

// CorrectionVotes counts correction feedback per HS code, country and
// corrected company name.
func (s *SQLiteStore) CorrectionVotes(ctx context.Context) ([]model.CorrectionVote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hs_code, country, corrected_company, COUNT(*) AS votes
		FROM company_feedback
		WHERE feedback_type = 'correction' AND corrected_company IS NOT NULL AND corrected_company <> ''
		GROUP BY hs_code, country, corrected_company
		ORDER BY hs_code, country, corrected_company`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: correction votes")
	}
	defer rows.Close() //nolint:errcheck

	var votes []model.CorrectionVote
	for rows.Next() {
		var v model.CorrectionVote
		if err := rows.Scan(&v.HSCode, &v.Country, &v.CompanyName, &v.Votes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan correction vote")
		}
		votes = append(votes, v)
	}
	return votes, eris.Wrap(rows.Err(), "sqlite: iterate correction votes")
}
