package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/medley-health/roster-cli/internal/db"
	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/pipeline"
	"github.com/medley-health/roster-cli/internal/roster"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to PostgreSQL and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse dsn")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source_file TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS duplicates (
	i1            INTEGER NOT NULL,
	i2            INTEGER NOT NULL,
	provider_id_1 TEXT,
	provider_id_2 TEXT,
	name_1        TEXT,
	name_2        TEXT,
	score         DOUBLE PRECISION NOT NULL,
	name_score    DOUBLE PRECISION NOT NULL,
	npi_match     BOOLEAN NOT NULL,
	addr_score    DOUBLE PRECISION NOT NULL,
	phone_match   BOOLEAN NOT NULL,
	license_score DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS merged_roster (
	provider_id                 TEXT,
	full_name                   TEXT,
	first_name                  TEXT,
	last_name                   TEXT,
	credential                  TEXT,
	npi                         TEXT,
	license_number              TEXT,
	license_state               TEXT,
	license_expiration          TEXT,
	practice_address_line1      TEXT,
	practice_city               TEXT,
	practice_state              TEXT,
	practice_zip                TEXT,
	practice_phone              TEXT,
	practice_phone_standardized TEXT,
	mailing_city                TEXT,
	mailing_zip                 TEXT,
	years_in_practice           TEXT,
	accepting_new_patients      TEXT,
	status                      TEXT,
	npi_present                 TEXT,
	extra                       JSONB
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_merged_roster_npi ON merged_roster(npi);
CREATE INDEX IF NOT EXISTS idx_merged_roster_state ON merged_roster(practice_state);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, sourceFile string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source_file, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, sourceFile, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &Run{
		ID:         id,
		SourceFile: sourceFile,
		Status:     RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *pipeline.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, summary = $2, updated_at = $3 WHERE id = $4`,
		RunStatusComplete, payload, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		RunStatusFailed, cause.Error(), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var summary []byte
	var runErr *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, source_file, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.SourceFile, &run.Status, &summary, &runErr, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &run.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	if runErr != nil {
		run.Error = *runErr
	}
	return &run, nil
}

// ReplaceArtifacts swaps the duplicates and merged_roster tables inside one
// transaction, bulk-loading rows over the COPY protocol.
func (s *PostgresStore) ReplaceArtifacts(ctx context.Context, dups []match.DuplicatePair, merged *roster.Table) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace artifacts")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM duplicates`); err != nil {
		return eris.Wrap(err, "postgres: clear duplicates")
	}
	dupRows := make([][]any, 0, len(dups))
	for _, d := range dups {
		dupRows = append(dupRows, []any{
			d.I1, d.I2, d.ProviderID1, d.ProviderID2, d.Name1, d.Name2,
			d.Score, d.NameScore, d.NPIMatch, d.AddrScore, d.PhoneMatch, d.LicenseScore,
		})
	}
	dupCols := []string{
		"i1", "i2", "provider_id_1", "provider_id_2", "name_1", "name_2",
		"score", "name_score", "npi_match", "addr_score", "phone_match", "license_score",
	}
	if _, err := db.CopyFrom(ctx, tx, "duplicates", dupCols, dupRows); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM merged_roster`); err != nil {
		return eris.Wrap(err, "postgres: clear merged_roster")
	}
	mergedRows := make([][]any, 0, merged.Len())
	for _, row := range merged.Rows {
		fixed, extra := splitRow(row)
		values := make([]any, 0, len(fixed)+1)
		for _, v := range fixed {
			values = append(values, v)
		}
		var extraJSON []byte
		if extra != nil {
			extraJSON, err = json.Marshal(extra)
			if err != nil {
				return eris.Wrap(err, "postgres: marshal extra columns")
			}
		}
		values = append(values, extraJSON)
		mergedRows = append(mergedRows, values)
	}
	mergedCols := append(append([]string{}, mergedColumns...), "extra")
	if _, err := db.CopyFrom(ctx, tx, "merged_roster", mergedCols, mergedRows); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace artifacts")
}

func (s *PostgresStore) Select(ctx context.Context, query string) (*ResultSet, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: select")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	result := &ResultSet{Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		result.Rows = append(result.Rows, values)
	}
	return result, eris.Wrap(rows.Err(), "postgres: iterate rows")
}
