package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/pipeline"
	"github.com/medley-health/roster-cli/internal/roster"
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
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source_file TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	error       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS duplicates (
	i1            INTEGER NOT NULL,
	i2            INTEGER NOT NULL,
	provider_id_1 TEXT,
	provider_id_2 TEXT,
	name_1        TEXT,
	name_2        TEXT,
	score         REAL NOT NULL,
	name_score    REAL NOT NULL,
	npi_match     INTEGER NOT NULL,
	addr_score    REAL NOT NULL,
	phone_match   INTEGER NOT NULL,
	license_score REAL NOT NULL
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
	extra                       TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_merged_roster_npi ON merged_roster(npi);
CREATE INDEX IF NOT EXISTS idx_merged_roster_state ON merged_roster(practice_state);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, sourceFile string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source_file, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, sourceFile, RunStatusRunning, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &Run{
		ID:         id,
		SourceFile: sourceFile,
		Status:     RunStatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *pipeline.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		RunStatusComplete, string(payload), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		RunStatusFailed, cause.Error(), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var summary, runErr sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_file, status, summary, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	).Scan(&run.ID, &run.SourceFile, &run.Status, &summary, &runErr, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if summary.Valid {
		if err := json.Unmarshal([]byte(summary.String), &run.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	run.Error = runErr.String
	return &run, nil
}

// ReplaceArtifacts swaps the duplicates and merged_roster tables inside one
// transaction; a failure anywhere rolls both back.
func (s *SQLiteStore) ReplaceArtifacts(ctx context.Context, dups []match.DuplicatePair, merged *roster.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace artifacts")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM duplicates`); err != nil {
		return eris.Wrap(err, "sqlite: clear duplicates")
	}
	dupStmt, err := tx.PrepareContext(ctx, `INSERT INTO duplicates
		(i1, i2, provider_id_1, provider_id_2, name_1, name_2, score, name_score, npi_match, addr_score, phone_match, license_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare duplicates insert")
	}
	defer dupStmt.Close()
	for _, d := range dups {
		_, err := dupStmt.ExecContext(ctx,
			d.I1, d.I2, d.ProviderID1, d.ProviderID2, d.Name1, d.Name2,
			d.Score, d.NameScore, d.NPIMatch, d.AddrScore, d.PhoneMatch, d.LicenseScore,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert duplicate pair")
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM merged_roster`); err != nil {
		return eris.Wrap(err, "sqlite: clear merged_roster")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(mergedColumns)+1), ", ")
	rowStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO merged_roster (`+strings.Join(mergedColumns, ", ")+`, extra) VALUES (`+placeholders+`)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare merged_roster insert")
	}
	defer rowStmt.Close()
	for _, row := range merged.Rows {
		fixed, extra := splitRow(row)
		args := make([]any, 0, len(fixed)+1)
		for _, v := range fixed {
			args = append(args, v)
		}
		extraJSON := ""
		if extra != nil {
			payload, err := json.Marshal(extra)
			if err != nil {
				return eris.Wrap(err, "sqlite: marshal extra columns")
			}
			extraJSON = string(payload)
		}
		args = append(args, extraJSON)
		if _, err := rowStmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrap(err, "sqlite: insert merged row")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit replace artifacts")
}

func (s *SQLiteStore) Select(ctx context.Context, query string) (*ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: columns")
	}
	result := &ResultSet{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		result.Rows = append(result.Rows, values)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
