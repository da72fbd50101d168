package broker

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cashrec/internal/dates"
)

// Table is a rectangular report: named columns plus string rows. Broker
// files are read into tables, filtered, and finally written back out in
// their legacy layouts.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table with the given columns.
func NewTable(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// Col returns the index of a named column, or -1.
func (t *Table) Col(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Get returns the named cell of a row, or "" if the column is unknown.
func (t *Table) Get(row []string, name string) string {
	i := t.Col(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Append adds a row. Short rows are padded so later shaping is safe.
func (t *Table) Append(row []string) {
	for len(row) < len(t.Columns) {
		row = append(row, "")
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// SetColumns overrides the column names with a template. A width
// mismatch signals template drift in the source file and is fatal.
func (t *Table) SetColumns(columns []string) error {
	if len(columns) != len(t.Columns) {
		return fmt.Errorf("report has %d columns, template expects %d", len(t.Columns), len(columns))
	}
	t.Columns = append([]string(nil), columns...)
	t.reindex()
	return nil
}

// Filter returns a new table with the rows for which keep is true. The
// get argument reads a named cell of the row under test.
func (t *Table) Filter(keep func(get func(name string) string) bool) *Table {
	out := NewTable(t.Columns)
	for _, row := range t.Rows {
		row := row
		if keep(func(name string) string { return t.Get(row, name) }) {
			out.Append(row)
		}
	}
	return out
}

// Rename renames a column in place. Unknown names are ignored.
func (t *Table) Rename(from, to string) {
	if i := t.Col(from); i >= 0 {
		t.Columns[i] = to
		t.reindex()
	}
}

// Insert adds a column at position idx, computing each row's value.
// Positions past the end append. Used by the legacy output shaping,
// which must reproduce historical column placement exactly.
func (t *Table) Insert(idx int, name string, value func(get func(name string) string) string) {
	if idx < 0 || idx > len(t.Columns) {
		idx = len(t.Columns)
	}
	old := *t
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, t.Columns[:idx]...)
	cols = append(cols, name)
	cols = append(cols, t.Columns[idx:]...)
	t.Columns = cols
	t.reindex()

	for i, row := range t.Rows {
		row := row
		v := value(func(name string) string { return old.Get(row, name) })
		newRow := make([]string, 0, len(row)+1)
		newRow = append(newRow, row[:idx]...)
		newRow = append(newRow, v)
		newRow = append(newRow, row[idx:]...)
		t.Rows[i] = newRow
	}
}

// Project returns a new table with only the named columns, in order.
func (t *Table) Project(columns []string) *Table {
	out := NewTable(columns)
	for _, row := range t.Rows {
		newRow := make([]string, len(columns))
		for i, c := range columns {
			newRow[i] = t.Get(row, c)
		}
		out.Append(newRow)
	}
	return out
}

// Truncate drops all columns from idx on.
func (t *Table) Truncate(idx int) {
	if idx < 0 || idx >= len(t.Columns) {
		return
	}
	t.Columns = t.Columns[:idx]
	t.reindex()
	for i, row := range t.Rows {
		if len(row) > idx {
			t.Rows[i] = row[:idx]
		}
	}
}

// StripColumnNames removes spaces and dashes from every column name,
// matching the historical header normalization of the V2 files.
func (t *Table) StripColumnNames() {
	for i, c := range t.Columns {
		c = strings.ReplaceAll(c, "-", "")
		c = strings.ReplaceAll(c, " ", "")
		t.Columns[i] = c
	}
	t.reindex()
}

// ReadReport reads a CSV report, skipping the given 0-based physical
// row indices (cover sheets, repeated titles). The first unskipped row
// is the header. Rows whose width disagrees with the header are
// template drift and fail the read.
func ReadReport(path string, skipRows ...int) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	skip := make(map[int]bool, len(skipRows))
	for _, i := range skipRows {
		skip[i] = true
	}

	var t *Table
	for i, rec := range records {
		if skip[i] {
			continue
		}
		if t == nil {
			header := make([]string, len(rec))
			for j, h := range rec {
				header[j] = strings.TrimSpace(h)
			}
			t = NewTable(header)
			continue
		}
		if len(rec) != len(t.Columns) {
			return nil, fmt.Errorf("report %s row %d has %d fields, header has %d", path, i+1, len(rec), len(t.Columns))
		}
		t.Append(rec)
	}
	if t == nil {
		return nil, fmt.Errorf("report %s has no header row", path)
	}
	return t, nil
}

// ParseAmount parses a report cash amount. Thousands separators and
// surrounding quotes are stripped; bracketed values are negative; an
// empty cell is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// cloneTable deep-copies a table so shaping never mutates the rows the
// classifier saw.
func cloneTable(t *Table) *Table {
	out := NewTable(t.Columns)
	for _, row := range t.Rows {
		out.Append(append([]string(nil), row...))
	}
	return out
}

func sortDates(ds []dates.Date) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
