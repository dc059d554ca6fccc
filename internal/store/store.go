// Package store persists pipeline artifacts. The duplicates and merged_roster
// tables are replaced atomically on every run: both land or neither does.
package store

import (
	"context"
	"time"

	"github.com/medley-health/roster-cli/internal/match"
	"github.com/medley-health/roster-cli/internal/pipeline"
	"github.com/medley-health/roster-cli/internal/roster"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Run is the bookkeeping record for one pipeline invocation.
type Run struct {
	ID         string            `json:"id"`
	SourceFile string            `json:"source_file"`
	Status     string            `json:"status"`
	Summary    *pipeline.Summary `json:"summary,omitempty"`
	Error      string            `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// ResultSet is the raw output of an ad-hoc read-only query.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Store defines the persistence interface for pipeline artifacts.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, sourceFile string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, summary *pipeline.Summary) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)

	// Artifacts. ReplaceArtifacts swaps both tables in a single transaction.
	ReplaceArtifacts(ctx context.Context, dups []match.DuplicatePair, merged *roster.Table) error

	// Select executes a read-only query (used by the NL query collaborator).
	Select(ctx context.Context, query string) (*ResultSet, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// mergedColumns is the fixed relational schema for the merged_roster table.
// Merge-derived columns outside this list are folded into the extra JSON
// column so evolving input schemas never require a migration.
var mergedColumns = []string{
	roster.ColProviderID,
	roster.ColFullName,
	roster.ColFirstName,
	roster.ColLastName,
	roster.ColCredential,
	roster.ColNPI,
	roster.ColLicenseNumber,
	roster.ColLicenseState,
	roster.ColLicenseExp,
	roster.ColPracticeAddress1,
	roster.ColPracticeCity,
	roster.ColPracticeState,
	roster.ColPracticeZip,
	roster.ColPracticePhone,
	roster.ColPhoneStandard,
	roster.ColMailingCity,
	roster.ColMailingZip,
	roster.ColYearsInPractice,
	roster.ColAcceptingNew,
	roster.ColStatus,
	roster.ColNPIPresent,
}

// splitRow partitions a merged row into the fixed-schema values (ordered as
// mergedColumns) and the leftover cells destined for the extra column.
func splitRow(row roster.Row) (fixed []string, extra map[string]string) {
	known := make(map[string]bool, len(mergedColumns))
	fixed = make([]string, len(mergedColumns))
	for i, col := range mergedColumns {
		known[col] = true
		fixed[i] = row.Lookup(col)
	}
	for col, val := range row {
		if !known[col] && val != "" {
			if extra == nil {
				extra = make(map[string]string)
			}
			extra[col] = val
		}
	}
	return fixed, extra
}
