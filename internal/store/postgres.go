package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shipper-match/internal/db"
	"github.com/sells-group/shipper-match/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlTopMapping = `SELECT id, hs_code, country, company_name, confidence_override, source, created_at, updated_at
FROM hs_company_mappings
WHERE hs_code = $1 AND lower(country) = lower($2)
ORDER BY confidence_override DESC NULLS LAST, id ASC
LIMIT 1`

	sqlHasMapping = `SELECT EXISTS (SELECT 1 FROM hs_company_mappings WHERE hs_code = $1 AND lower(country) = lower($2))`

	sqlInsertSearchLog = `INSERT INTO search_logs (id, search_term, filters, result_count, avg_confidence, created_at) VALUES ($1, $2, $3, $4, $5, $6)`

	sqlInsertFeedback = `INSERT INTO company_feedback (id, original_company, corrected_company, hs_code, country, confidence_at_time, feedback_type, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	sqlCorrectionVotes = `SELECT hs_code, country, corrected_company, COUNT(*) AS votes
FROM company_feedback
WHERE feedback_type = 'correction' AND corrected_company IS NOT NULL AND corrected_company <> ''
GROUP BY hs_code, country, corrected_company
ORDER BY hs_code, country, corrected_company`
)

// mappingMerge merges mapping rows on (hs_code, country, company_name).
// created_at is kept from the first insert. Manually curated rows are only
// replaced by other manual rows.
var mappingMerge = db.MergeConfig{
	Table:   "hs_company_mappings",
	Columns: []string{"hs_code", "country", "company_name", "confidence_override", "source", "created_at", "updated_at"},
	Key:     []string{"hs_code", "country", "company_name"},
	Update:  []string{"confidence_override", "source", "updated_at"},
	Prefer:  "confidence_override",
	Guard:   "t.source <> '" + model.MappingSourceManual + "' OR EXCLUDED.source = '" + model.MappingSourceManual + "'",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS hs_company_mappings (
	id                  BIGSERIAL PRIMARY KEY,
	hs_code             TEXT NOT NULL,
	country             TEXT NOT NULL,
	company_name        TEXT NOT NULL,
	confidence_override INTEGER CHECK (confidence_override BETWEEN 0 AND 100),
	source              TEXT NOT NULL DEFAULT 'manual',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (hs_code, country, company_name)
);

CREATE INDEX IF NOT EXISTS idx_hs_company_mappings_lookup ON hs_company_mappings(hs_code, lower(country));

CREATE TABLE IF NOT EXISTS search_logs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	search_term    TEXT NOT NULL,
	filters        JSONB NOT NULL DEFAULT '{}',
	result_count   INTEGER NOT NULL DEFAULT 0,
	avg_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_search_logs_created_at ON search_logs(created_at);

CREATE TABLE IF NOT EXISTS company_feedback (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	original_company   TEXT NOT NULL,
	corrected_company  TEXT,
	hs_code            TEXT NOT NULL,
	country            TEXT NOT NULL,
	confidence_at_time INTEGER NOT NULL,
	feedback_type      TEXT NOT NULL CHECK (feedback_type IN ('correct', 'incorrect', 'correction')),
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_company_feedback_type ON company_feedback(feedback_type);
CREATE INDEX IF NOT EXISTS idx_company_feedback_hs_country ON company_feedback(hs_code, country);
`

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool when the store owns it.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// TopMapping returns the highest-confidence mapping for the HS code and
// country (case-insensitive), or nil when none exists. Mappings without an
// override rank below any override.
func (s *PostgresStore) TopMapping(ctx context.Context, hsCode, country string) (*model.HSMapping, error) {
	var m model.HSMapping
	err := s.pool.QueryRow(ctx, sqlTopMapping, hsCode, country).Scan(
		&m.ID, &m.HSCode, &m.Country, &m.CompanyName, &m.ConfidenceOverride, &m.Source, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: top mapping %s/%s", hsCode, country)
	}
	return &m, nil
}

// HasMapping reports whether any mapping exists for the HS code and country.
func (s *PostgresStore) HasMapping(ctx context.Context, hsCode, country string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, sqlHasMapping, hsCode, country).Scan(&exists); err != nil {
		return false, eris.Wrapf(err, "postgres: has mapping %s/%s", hsCode, country)
	}
	return exists, nil
}

// UpsertMappings bulk-loads mappings, updating the override and source of
// rows that already exist unless they were curated manually.
func (s *PostgresStore) UpsertMappings(ctx context.Context, mappings []model.HSMapping) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(mappings))
	for _, m := range mappings {
		source := m.Source
		if source == "" {
			source = model.MappingSourceManual
		}
		rows = append(rows, []any{m.HSCode, m.Country, m.CompanyName, m.ConfidenceOverride, source, now, now})
	}
	n, err := db.Merge(ctx, s.pool, mappingMerge, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert mappings")
	}
	return n, nil
}

// AppendSearchLog inserts a search log entry.
func (s *PostgresStore) AppendSearchLog(ctx context.Context, entry *model.SearchLog) error {
	filters := entry.Filters
	if filters == nil {
		filters = map[string]any{}
	}
	filtersJSON, err := json.Marshal(filters)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal search filters")
	}

	_, err = s.pool.Exec(ctx, sqlInsertSearchLog,
		entry.ID, entry.SearchTerm, filtersJSON, entry.ResultCount, entry.AvgConfidence, entry.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert search log")
}

// AppendFeedback inserts a feedback record.
func (s *PostgresStore) AppendFeedback(ctx context.Context, fb *model.CompanyFeedback) error {
	_, err := s.pool.Exec(ctx, sqlInsertFeedback,
		fb.ID, fb.OriginalCompany, fb.CorrectedCompany, fb.HSCode, fb.Country,
		fb.ConfidenceAtTime, string(fb.FeedbackType), fb.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert feedback")
}

// CorrectionVotes counts correction feedback per HS code, country and
// corrected company name.
func (s *PostgresStore) CorrectionVotes(ctx context.Context) ([]model.CorrectionVote, error) {
	rows, err := s.pool.Query(ctx, sqlCorrectionVotes)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: correction votes")
	}
	defer rows.Close()

	var votes []model.CorrectionVote
	for rows.Next() {
		var v model.CorrectionVote
		var n int64
		if err := rows.Scan(&v.HSCode, &v.Country, &v.CompanyName, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan correction vote")
		}
		v.Votes = int(n)
		votes = append(votes, v)
	}
	return votes, eris.Wrap(rows.Err(), "postgres: iterate correction votes")
}
