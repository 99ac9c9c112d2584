package table

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// grid flattens a table into cells for comparison.
func grid(t *Table) [][]Value {
	out := make([][]Value, t.Len())
	for i := 0; i < t.Len(); i++ {
		r := t.RowAt(i)
		row := make([]Value, 0, len(t.cols))
		for _, c := range t.cols {
			row = append(row, r.Value(c))
		}
		out[i] = row
	}
	return out
}

func TestValueStates(t *testing.T) {
	tests := []struct {
		name    string
		v       Value
		kind    Kind
		display string
	}{
		{"zero value is missing", Value{}, KindMissing, ""},
		{"string", NewString("r1"), KindString, "r1"},
		{"number", NewNumber(2.5), KindNumber, "2.5"},
		{"integral number", NewNumber(3), KindNumber, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.v.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", tt.v.Kind(), tt.kind)
			}
			if tt.v.String() != tt.display {
				t.Errorf("String() = %q, want %q", tt.v.String(), tt.display)
			}
		})
	}
}

func TestValueKeyDistinguishesKinds(t *testing.T) {
	if NewString("1").key() == NewNumber(1).key() {
		t.Error("string \"1\" and number 1 share a key")
	}
	if NewString("").key() == (Value{}).key() {
		t.Error("empty string and missing share a key")
	}
}

func TestNewRejectsDuplicateColumns(t *testing.T) {
	if _, err := New("run", "scan_num", "run"); err == nil {
		t.Fatal("expected error for duplicate column")
	}
}

func TestAppendRowArity(t *testing.T) {
	tb := MustNew("a", "b")
	if err := tb.AppendRow(NewNumber(1)); err == nil {
		t.Fatal("expected arity error")
	}
	if err := tb.AppendRow(NewNumber(1), NewNumber(2)); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if tb.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tb.Len())
	}
}

func TestSelect(t *testing.T) {
	tb := MustNew("run", "scan_num", "i126")
	tb.MustAppendRow(NewString("r1"), NewNumber(10), NewNumber(100))
	tb.MustAppendRow(NewString("r2"), NewNumber(11), NewNumber(200))

	got, err := tb.Select("i126", "run")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := [][]Value{
		{NewNumber(100), NewString("r1")},
		{NewNumber(200), NewString("r2")},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("selected cells mismatch (-want +got):\n%s", diff)
	}
	if _, err := tb.Select("nope"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestDrop(t *testing.T) {
	tb := MustNew("run", "is_decoy", "i126")
	tb.MustAppendRow(NewString("r1"), NewString("false"), NewNumber(1))

	got, err := tb.Drop("is_decoy")
	if err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if diff := cmp.Diff([]string{"run", "i126"}, got.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if _, err := tb.Drop("nope"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestRename(t *testing.T) {
	tb := MustNew("scan", "i126")
	tb.MustAppendRow(NewNumber(10), NewNumber(1))

	got, err := tb.Rename("scan", "scan_num")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if diff := cmp.Diff([]string{"scan_num", "i126"}, got.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	// The original keeps its name.
	if !tb.HasColumn("scan") {
		t.Error("receiver was mutated")
	}
	if _, err := tb.Rename("scan", "i126"); err == nil {
		t.Error("expected error when target name exists")
	}
	if _, err := tb.Rename("nope", "x"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestMapColumn(t *testing.T) {
	tb := MustNew("run", "v")
	tb.MustAppendRow(NewNumber(12), NewNumber(1))
	tb.MustAppendRow(NewString("r2"), NewNumber(2))

	got, err := tb.MapColumn("run", func(v Value) Value {
		return NewString(v.String())
	})
	if err != nil {
		t.Fatalf("MapColumn: %v", err)
	}
	want := [][]Value{
		{NewString("12"), NewNumber(1)},
		{NewString("r2"), NewNumber(2)},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("mapped cells mismatch (-want +got):\n%s", diff)
	}
	if _, ok := tb.RowAt(0).Number("run"); !ok {
		t.Error("receiver was mutated")
	}
	if _, err := tb.MapColumn("nope", func(v Value) Value { return v }); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestFilter(t *testing.T) {
	tb := MustNew("run", "v")
	tb.MustAppendRow(NewString("r1"), NewNumber(1))
	tb.MustAppendRow(NewString("r2"), NewNumber(2))
	tb.MustAppendRow(NewString("r1"), NewNumber(3))

	got := tb.Filter(func(r Row) bool {
		s, _ := r.String("run")
		return s == "r1"
	})
	want := [][]Value{
		{NewString("r1"), NewNumber(1)},
		{NewString("r1"), NewNumber(3)},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("filtered cells mismatch (-want +got):\n%s", diff)
	}
	if tb.Len() != 3 {
		t.Error("receiver was mutated")
	}
}

func TestDistinct(t *testing.T) {
	tb := MustNew("run", "scan_num", "prob")
	tb.MustAppendRow(NewString("r1"), NewNumber(10), NewNumber(0.99))
	tb.MustAppendRow(NewString("r1"), NewNumber(10), NewNumber(0.42))
	tb.MustAppendRow(NewString("r1"), NewNumber(11), NewNumber(0.88))

	t.Run("subset of columns keeps first occurrence", func(t *testing.T) {
		got, err := tb.Distinct("run", "scan_num")
		if err != nil {
			t.Fatalf("Distinct: %v", err)
		}
		want := [][]Value{
			{NewString("r1"), NewNumber(10), NewNumber(0.99)},
			{NewString("r1"), NewNumber(11), NewNumber(0.88)},
		}
		if diff := cmp.Diff(want, grid(got)); diff != "" {
			t.Errorf("cells mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("all columns by default", func(t *testing.T) {
		got, err := tb.Distinct()
		if err != nil {
			t.Fatalf("Distinct: %v", err)
		}
		if got.Len() != 3 {
			t.Errorf("Len() = %d, want 3", got.Len())
		}
	})

	t.Run("unknown column", func(t *testing.T) {
		if _, err := tb.Distinct("nope"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestInnerJoin(t *testing.T) {
	left := MustNew("run", "scan_num", "protein")
	left.MustAppendRow(NewString("r1"), NewNumber(10), NewString("P1"))
	left.MustAppendRow(NewString("r1"), NewNumber(11), NewString("P2"))
	left.MustAppendRow(NewString("r2"), NewNumber(10), NewString("P3"))

	right := MustNew("run", "scan_num", "i126")
	right.MustAppendRow(NewString("r1"), NewNumber(10), NewNumber(100))
	right.MustAppendRow(NewString("r2"), NewNumber(99), NewNumber(300))

	got, err := left.InnerJoin(right, "run", "scan_num")
	if err != nil {
		t.Fatalf("InnerJoin: %v", err)
	}
	if diff := cmp.Diff([]string{"run", "scan_num", "protein", "i126"}, got.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]Value{
		{NewString("r1"), NewNumber(10), NewString("P1"), NewNumber(100)},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("joined cells mismatch (-want +got):\n%s", diff)
	}
}

func TestInnerJoinExpandsMultipleMatches(t *testing.T) {
	left := MustNew("plex", "species")
	left.MustAppendRow(NewString("1"), NewString("P1"))

	right := MustNew("plex", "channel")
	right.MustAppendRow(NewString("1"), NewString("i126"))
	right.MustAppendRow(NewString("1"), NewString("i127N"))

	got, err := left.InnerJoin(right, "plex")
	if err != nil {
		t.Fatalf("InnerJoin: %v", err)
	}
	want := [][]Value{
		{NewString("1"), NewString("P1"), NewString("i126")},
		{NewString("1"), NewString("P1"), NewString("i127N")},
	}
	if diff := cmp.Diff(want, grid(got)); diff != "" {
		t.Errorf("joined cells mismatch (-want +got):\n%s", diff)
	}
}

func TestInnerJoinErrors(t *testing.T) {
	left := MustNew("run", "v")
	right := MustNew("run", "v")

	tests := []struct {
		name string
		fn   func() error
	}{
		{"no keys", func() error { _, err := left.InnerJoin(right); return err }},
		{"column collision", func() error { _, err := left.InnerJoin(right, "run"); return err }},
		{"missing left key", func() error { _, err := left.InnerJoin(right, "scan_num"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fn() == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInnerJoinKeyKinds(t *testing.T) {
	// A string "10" must not join against the number 10.
	left := MustNew("scan_num", "protein")
	left.MustAppendRow(NewString("10"), NewString("P1"))

	right := MustNew("scan_num", "i126")
	right.MustAppendRow(NewNumber(10), NewNumber(100))

	got, err := left.InnerJoin(right, "scan_num")
	if err != nil {
		t.Fatalf("InnerJoin: %v", err)
	}
	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
}

func TestRowAccessors(t *testing.T) {
	tb := MustNew("run", "i126")
	tb.MustAppendRow(NewString("r1"), NewNumber(5))
	r := tb.RowAt(0)

	if s, ok := r.String("run"); !ok || s != "r1" {
		t.Errorf("String(run) = %q, %v", s, ok)
	}
	if _, ok := r.String("i126"); ok {
		t.Error("String(i126) reported ok for a number")
	}
	if f, ok := r.Number("i126"); !ok || f != 5 {
		t.Errorf("Number(i126) = %v, %v", f, ok)
	}
	if !r.Value("nope").IsMissing() {
		t.Error("Value on unknown column should be missing")
	}
}
