// Package table provides the ordered in-memory table used by the
// quantification pipeline. A Table has a fixed, ordered set of named columns
// and row-major cells; every operation returns a new Table and leaves its
// receiver untouched, so intermediate pipeline artifacts can be shared
// across concurrent readers.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the three states a cell can be in.
type Kind uint8

const (
	KindMissing Kind = iota
	KindString
	KindNumber
)

// Value is a single table cell: a string, a number, or missing.
// The zero Value is missing.
type Value struct {
	kind Kind
	str  string
	num  float64
}

// NewString returns a string-valued cell.
func NewString(s string) Value {
	return Value{kind: KindString, str: s}
}

// NewNumber returns a numeric cell.
func NewNumber(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Kind reports which of the three states the cell is in.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// AsString returns the cell's string and true if the cell is a string.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsNumber returns the cell's number and true if the cell is numeric.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Equal reports whether two cells hold the same state and value.
func (v Value) Equal(o Value) bool { return v == o }

// String renders the cell for display: strings verbatim, numbers in
// shortest-roundtrip form, missing as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return ""
	}
}

// key renders the cell for use in composite hash keys. The kind prefix keeps
// the string "1" and the number 1 from colliding.
func (v Value) key() string {
	switch v.kind {
	case KindString:
		return "s" + v.str
	case KindNumber:
		return "n" + strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return "m"
	}
}

// Table is an ordered collection of named columns over row-major cells.
type Table struct {
	cols []string
	idx  map[string]int
	rows [][]Value
}

// New creates an empty table with the given column names, in order.
// Duplicate column names are rejected.
func New(cols ...string) (*Table, error) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	return &Table{cols: append([]string(nil), cols...), idx: idx}, nil
}

// MustNew is New for statically known column sets; it panics on error.
func MustNew(cols ...string) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns the column names in declared order. The slice is a copy.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.idx[name]
	return ok
}

// AppendRow adds one row. The number of values must match the column count.
func (t *Table) AppendRow(vals ...Value) error {
	if len(vals) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(vals), len(t.cols))
	}
	t.rows = append(t.rows, append([]Value(nil), vals...))
	return nil
}

// MustAppendRow is AppendRow that panics on arity mismatch.
func (t *Table) MustAppendRow(vals ...Value) {
	if err := t.AppendRow(vals...); err != nil {
		panic(err)
	}
}

// Row is a read-only view of one table row.
type Row struct {
	t *Table
	i int
}

// RowAt returns a view of row i. The view is valid as long as the table is.
func (t *Table) RowAt(i int) Row { return Row{t: t, i: i} }

// Value returns the cell in the named column, or a missing Value if the
// column does not exist.
func (r Row) Value(col string) Value {
	j, ok := r.t.idx[col]
	if !ok {
		return Value{}
	}
	return r.t.rows[r.i][j]
}

// String returns the cell's string and true if the named column exists and
// holds a string.
func (r Row) String(col string) (string, bool) {
	return r.Value(col).AsString()
}

// Number returns the cell's number and true if the named column exists and
// holds a number.
func (r Row) Number(col string) (float64, bool) {
	return r.Value(col).AsNumber()
}

// columnIndices resolves names to positions, failing on the first unknown.
func (t *Table) columnIndices(cols []string) ([]int, error) {
	out := make([]int, len(cols))
	for i, c := range cols {
		j, ok := t.idx[c]
		if !ok {
			return nil, fmt.Errorf("no column %q", c)
		}
		out[i] = j
	}
	return out, nil
}

// Select returns a table with only the given columns, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	src, err := t.columnIndices(cols)
	if err != nil {
		return nil, err
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for i, row := range t.rows {
		vals := make([]Value, len(src))
		for k, j := range src {
			vals[k] = row[j]
		}
		out.rows[i] = vals
	}
	return out, nil
}

// Drop returns a table without the given columns. Dropping an absent column
// is an error: it usually means the caller is confused about the schema.
func (t *Table) Drop(cols ...string) (*Table, error) {
	if _, err := t.columnIndices(cols); err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		drop[c] = true
	}
	keep := make([]string, 0, len(t.cols))
	for _, c := range t.cols {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	return t.Select(keep...)
}

// Rename returns a table with column old renamed to new.
func (t *Table) Rename(old, new string) (*Table, error) {
	j, ok := t.idx[old]
	if !ok {
		return nil, fmt.Errorf("no column %q", old)
	}
	if _, clash := t.idx[new]; clash && new != old {
		return nil, fmt.Errorf("column %q already exists", new)
	}
	cols := t.Columns()
	cols[j] = new
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = t.rows // rows are never mutated, sharing is safe
	return out, nil
}

// MapColumn returns a table with fn applied to every cell of the named
// column; all other cells are shared with the receiver.
func (t *Table) MapColumn(col string, fn func(Value) Value) (*Table, error) {
	j, ok := t.idx[col]
	if !ok {
		return nil, fmt.Errorf("no column %q", col)
	}
	out := &Table{cols: t.cols, idx: t.idx, rows: make([][]Value, len(t.rows))}
	for i, row := range t.rows {
		vals := append([]Value(nil), row...)
		vals[j] = fn(vals[j])
		out.rows[i] = vals
	}
	return out, nil
}

// Filter returns a table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{cols: t.cols, idx: t.idx}
	for i := range t.rows {
		if keep(Row{t: t, i: i}) {
			out.rows = append(out.rows, t.rows[i])
		}
	}
	return out
}

// Distinct returns a table with duplicate rows removed, keeping the first
// occurrence. Rows are compared over the given columns, or over all columns
// when none are named; the full schema is retained either way.
func (t *Table) Distinct(cols ...string) (*Table, error) {
	if len(cols) == 0 {
		cols = t.cols
	}
	src, err := t.columnIndices(cols)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(t.rows))
	out := &Table{cols: t.cols, idx: t.idx}
	for _, row := range t.rows {
		k := compositeKey(row, src)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// InnerJoin joins t with right on equality of the named key columns.
// Output columns are t's columns followed by right's non-key columns; a
// non-key column present in both tables is a schema error. Row order follows
// t, with multiple right matches expanded in right's row order.
func (t *Table) InnerJoin(right *Table, on ...string) (*Table, error) {
	if len(on) == 0 {
		return nil, fmt.Errorf("inner join requires at least one key column")
	}
	leftKeys, err := t.columnIndices(on)
	if err != nil {
		return nil, fmt.Errorf("left table: %w", err)
	}
	rightKeys, err := right.columnIndices(on)
	if err != nil {
		return nil, fmt.Errorf("right table: %w", err)
	}

	isKey := make(map[string]bool, len(on))
	for _, c := range on {
		isKey[c] = true
	}
	var rightExtra []int
	outCols := t.Columns()
	for j, c := range right.cols {
		if isKey[c] {
			continue
		}
		if t.HasColumn(c) {
			return nil, fmt.Errorf("column %q exists in both tables and is not a join key", c)
		}
		rightExtra = append(rightExtra, j)
		outCols = append(outCols, c)
	}

	// Bucket right rows by key, preserving insertion order inside buckets.
	buckets := make(map[string][]int, right.Len())
	for i, row := range right.rows {
		k := compositeKey(row, rightKeys)
		buckets[k] = append(buckets[k], i)
	}

	out, err := New(outCols...)
	if err != nil {
		return nil, err
	}
	for _, lrow := range t.rows {
		k := compositeKey(lrow, leftKeys)
		for _, ri := range buckets[k] {
			vals := make([]Value, 0, len(outCols))
			vals = append(vals, lrow...)
			for _, j := range rightExtra {
				vals = append(vals, right.rows[ri][j])
			}
			out.rows = append(out.rows, vals)
		}
	}
	return out, nil
}

// compositeKey builds a hash key from the cells at the given positions.
// The field separator cannot occur in channel, run, or species identifiers.
func compositeKey(row []Value, idx []int) string {
	var b strings.Builder
	for n, j := range idx {
		if n > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(row[j].key())
	}
	return b.String()
}
