package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/roster"
)

// External source file names resolved under the merger's base path.
const (
	fileCA      = "ca.csv"
	fileNY      = "ny.csv"
	fileNPI     = "npi.csv"
	fileMockNPI = "mock_npi.csv"
)

// colRegistryExpiration is the NY board file's expiration column.
const colRegistryExpiration = "expiration_date"

// Merger left-joins the standardized roster against per-state license files
// and a national provider registry. Every source file is optional: a missing
// file skips that join step and the affected records pass through unjoined.
type Merger struct {
	BasePath string
}

// NewMerger creates a Merger reading source files from basePath.
func NewMerger(basePath string) *Merger {
	return &Merger{BasePath: basePath}
}

// NormalizeLicense canonicalizes a license number for joining: uppercase with
// hyphens and whitespace stripped. Empty → "" (absent).
func NormalizeLicense(lic string) string {
	s := strings.ToUpper(strings.TrimSpace(lic))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// NormalizeNPI canonicalizes an identifier for joining: trimmed string.
func NormalizeNPI(npi string) string {
	return strings.TrimSpace(npi)
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// normalizeDate reduces a date value to a canonical YYYY-MM-DD join key.
// Unparseable or missing → "" (absent, never joins).
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.Format("2006-01-02")
		}
	}
	return ""
}

// Merge joins the standardized table against whichever external sources are
// present and computes the npi_present flag. CA joins on normalized license
// number alone; NY additionally requires a matching normalized expiration
// date. Join keys are computed out of band and never appear as output
// columns.
func (m *Merger) Merge(t *roster.Table) (*roster.Table, error) {
	ca, err := m.loadOptional(fileCA)
	if err != nil {
		return nil, err
	}
	ny, err := m.loadOptional(fileNY)
	if err != nil {
		return nil, err
	}
	registry, err := m.loadOptional(fileNPI)
	if err != nil {
		return nil, err
	}
	reference, err := m.loadOptional(fileMockNPI)
	if err != nil {
		return nil, err
	}

	merged := joinJurisdictions(t, ca, ny)

	if registry != nil {
		merged = joinRegistry(merged, registry)
	}

	flagNPIPresence(merged, reference)
	return merged, nil
}

// loadOptional reads a source CSV under the base path. A missing file is not
// an error; it disables the corresponding join step.
func (m *Merger) loadOptional(name string) (*roster.Table, error) {
	path := filepath.Join(m.BasePath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		zap.L().Debug("merge: source file absent, join skipped", zap.String("file", name))
		return nil, nil
	}
	t, err := roster.ReadCSVFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "merge: load %s", name)
	}
	zap.L().Info("merge: loaded source file",
		zap.String("file", name),
		zap.Int("rows", t.Len()),
	)
	return t, nil
}

// joinJurisdictions partitions the roster by license state and left-joins
// each jurisdiction with a present source file; partitions without a source
// pass through unjoined. Output preserves original row order within each
// partition, concatenated CA, NY, then everything else.
func joinJurisdictions(t *roster.Table, ca, ny *roster.Table) *roster.Table {
	if ca == nil && ny == nil {
		return t.Clone()
	}

	var caRows, nyRows, otherRows []int
	for i, row := range t.Rows {
		switch row.Lookup(roster.ColLicenseState) {
		case "CA":
			caRows = append(caRows, i)
		case "NY":
			nyRows = append(nyRows, i)
		default:
			otherRows = append(otherRows, i)
		}
	}

	out := &roster.Table{Columns: append([]string(nil), t.Columns...)}

	appendJoined := func(indices []int, source *roster.Table, leftKey, sourceKey func(roster.Row) string) {
		if source == nil {
			for _, i := range indices {
				out.Append(t.Rows[i].Clone())
			}
			return
		}
		// Index source rows by join key; blank keys never join.
		bySourceKey := make(map[string][]roster.Row)
		for _, sr := range source.Rows {
			if k := sourceKey(sr); k != "" {
				bySourceKey[k] = append(bySourceKey[k], sr)
			}
		}
		for _, col := range source.Columns {
			out.AddColumn(col)
		}
		for _, i := range indices {
			left := t.Rows[i]
			matches := bySourceKey[leftKey(left)]
			if len(matches) == 0 {
				out.Append(left.Clone())
				continue
			}
			// A key matching several source rows fans out, one output row
			// per match, keeping left-hand values on column collisions.
			for _, sr := range matches {
				joined := left.Clone()
				for col, val := range sr {
					if _, exists := joined[col]; !exists {
						joined[col] = val
					}
				}
				out.Append(joined)
			}
		}
	}

	appendJoined(caRows, ca,
		func(r roster.Row) string { return NormalizeLicense(r.Lookup(roster.ColLicenseNumber)) },
		func(r roster.Row) string { return NormalizeLicense(r.Lookup(roster.ColLicenseNumber)) },
	)
	appendJoined(nyRows, ny,
		func(r roster.Row) string {
			return expirationKey(r.Lookup(roster.ColLicenseNumber), r.Lookup(roster.ColLicenseExp))
		},
		func(r roster.Row) string {
			return expirationKey(r.Lookup(roster.ColLicenseNumber), r.Lookup(colRegistryExpiration))
		},
	)
	for _, i := range otherRows {
		out.Append(t.Rows[i].Clone())
	}
	return out
}

// expirationKey builds the compound license+expiration join key. Either part
// absent → "" (never joins).
func expirationKey(license, expiration string) string {
	lic := NormalizeLicense(license)
	exp := normalizeDate(expiration)
	if lic == "" || exp == "" {
		return ""
	}
	return lic + "|" + exp
}

// joinRegistry left-joins on the normalized NPI, carrying over registry
// columns that do not collide with roster columns.
func joinRegistry(t *roster.Table, registry *roster.Table) *roster.Table {
	byNPI := make(map[string][]roster.Row)
	for _, rr := range registry.Rows {
		if k := NormalizeNPI(rr.Lookup(roster.ColNPI)); k != "" {
			byNPI[k] = append(byNPI[k], rr)
		}
	}

	out := &roster.Table{Columns: append([]string(nil), t.Columns...)}
	for _, col := range registry.Columns {
		out.AddColumn(col)
	}
	for _, left := range t.Rows {
		matches := byNPI[NormalizeNPI(left.Lookup(roster.ColNPI))]
		if len(matches) == 0 {
			out.Append(left.Clone())
			continue
		}
		for _, rr := range matches {
			joined := left.Clone()
			for col, val := range rr {
				if _, exists := joined[col]; !exists {
					joined[col] = val
				}
			}
			out.Append(joined)
		}
	}
	return out
}

// flagNPIPresence marks each record with whether its normalized NPI appears
// in the reference set. Absent reference file or absent NPI → "false".
func flagNPIPresence(t *roster.Table, reference *roster.Table) {
	present := make(map[string]bool)
	if reference != nil && reference.HasColumn(roster.ColNPI) {
		for _, rr := range reference.Rows {
			if k := NormalizeNPI(rr.Lookup(roster.ColNPI)); k != "" {
				present[k] = true
			}
		}
	}
	t.AddColumn(roster.ColNPIPresent)
	for _, row := range t.Rows {
		flag := "false"
		if k := NormalizeNPI(row.Lookup(roster.ColNPI)); k != "" && present[k] {
			flag = "true"
		}
		row.Set(roster.ColNPIPresent, flag)
	}
}
