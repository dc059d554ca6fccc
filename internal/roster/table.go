// Package roster provides the dynamic tabular model the pipeline operates on.
// Input schemas evolve, so every optional-column read goes through HasColumn
// and Row.Get rather than assuming presence.
package roster

import "slices"

// Canonical roster column names. The pipeline reads these defensively; a
// roster missing any of them still processes end to end.
const (
	ColProviderID       = "provider_id"
	ColFullName         = "full_name"
	ColFirstName        = "first_name"
	ColLastName         = "last_name"
	ColCredential       = "credential"
	ColNPI              = "npi"
	ColLicenseNumber    = "license_number"
	ColLicenseState     = "license_state"
	ColLicenseExp       = "license_expiration"
	ColPracticeAddress1 = "practice_address_line1"
	ColPracticeAddress2 = "practice_address_line2"
	ColPracticeCity     = "practice_city"
	ColPracticeState    = "practice_state"
	ColPracticeZip      = "practice_zip"
	ColPracticePhone    = "practice_phone"
	ColPhoneStandard    = "practice_phone_standardized"
	ColMailingAddress1  = "mailing_address_line1"
	ColMailingAddress2  = "mailing_address_line2"
	ColMailingCity      = "mailing_city"
	ColMailingZip       = "mailing_zip"
	ColMedicalSchool    = "medical_school"
	ColResidency        = "residency_program"
	ColYearsInPractice  = "years_in_practice"
	ColAcceptingNew     = "accepting_new_patients"
	ColLastUpdated      = "last_updated"
	ColStatus           = "status"
	ColNPIPresent       = "npi_present"
)

// Row is a single record. A cell is "missing" when the key is absent or the
// value is the empty string, mirroring how blank CSV cells arrive.
type Row map[string]string

// Get returns the cell value and whether it is present (non-missing).
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Lookup returns the cell value, or "" when missing.
func (r Row) Lookup(col string) string {
	return r[col]
}

// Set assigns a cell value.
func (r Row) Set(col, val string) {
	r[col] = val
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered collection of rows sharing a column list. Row order is
// significant: the matcher addresses records by their position in Rows.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// AddColumn appends a column if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{Columns: slices.Clone(t.Columns), Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		out.Rows = append(out.Rows, r.Clone())
	}
	return out
}

// Select returns a new table containing the rows at the given positions, in
// the order given. Rows are deep-copied.
func (t *Table) Select(indices []int) *Table {
	out := &Table{Columns: slices.Clone(t.Columns), Rows: make([]Row, 0, len(indices))}
	for _, i := range indices {
		out.Rows = append(out.Rows, t.Rows[i].Clone())
	}
	return out
}

// CountWhere returns how many rows satisfy the predicate over the named
// column. Absent column → 0.
func (t *Table) CountWhere(col string, pred func(string) bool) int {
	if !t.HasColumn(col) {
		return 0
	}
	n := 0
	for _, r := range t.Rows {
		if pred(r.Lookup(col)) {
			n++
		}
	}
	return n
}
