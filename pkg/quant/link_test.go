package quant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

func TestLinkIdentifications(t *testing.T) {
	ids := table.MustNew("run", "scan_num", "protein", "probability")
	ids.MustAppendRow(table.NewString("r1"), table.NewNumber(1), table.NewString("P1"), table.NewNumber(0.99))
	// A second identification row for the same scan and protein must not
	// fan out the join.
	ids.MustAppendRow(table.NewString("r1"), table.NewNumber(1), table.NewString("P1"), table.NewNumber(0.42))
	ids.MustAppendRow(table.NewString("r1"), table.NewNumber(2), table.NewString("P2"), table.NewNumber(0.90))
	ids.MustAppendRow(table.NewString("r1"), table.NewNumber(3), table.NewString("P3"), table.NewNumber(0.88))

	intens := table.MustNew("run", "scannum", "i126", "i127N")
	intens.MustAppendRow(table.NewString("r1"), table.NewNumber(1), table.NewNumber(10), table.NewNumber(20))
	intens.MustAppendRow(table.NewString("r1"), table.NewNumber(2), table.NewNumber(30), table.NewNumber(40))

	linked, notices, err := LinkIdentifications(ids, intens, []string{"protein"})
	require.NoError(t, err)
	assert.Empty(t, notices)

	assert.Equal(t, []string{"run", "scan_num", "protein", "i126", "i127N"}, linked.Columns())
	require.Equal(t, 2, linked.Len())

	p, _ := linked.RowAt(0).String("protein")
	assert.Equal(t, "P1", p)
	v, _ := linked.RowAt(0).Number("i126")
	assert.Equal(t, float64(10), v)

	// Scan 3 has no intensity row and drops out.
	p, _ = linked.RowAt(1).String("protein")
	assert.Equal(t, "P2", p)
}

func TestLinkIdentificationsScanColumnVariants(t *testing.T) {
	ids := table.MustNew("run", "scan_num", "protein")
	ids.MustAppendRow(table.NewString("r1"), table.NewNumber(1), table.NewString("P1"))

	tests := []struct {
		name    string
		scanCol string
	}{
		{"already canonical", "scan_num"},
		{"bare prefix", "scan"},
		{"search engine variant", "scan_id"},
		{"capitalized", "ScanNum"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intens := table.MustNew("run", tt.scanCol, "i126")
			intens.MustAppendRow(table.NewString("r1"), table.NewNumber(1), table.NewNumber(5))

			linked, _, err := LinkIdentifications(ids, intens, []string{"protein"})
			require.NoError(t, err)
			assert.Equal(t, 1, linked.Len())
			assert.True(t, linked.HasColumn("scan_num"))
		})
	}
}

func TestLinkIdentificationsSchemaErrors(t *testing.T) {
	ids := table.MustNew("run", "scan_num", "protein")
	ids.MustAppendRow(table.NewString("r1"), table.NewNumber(1), table.NewString("P1"))

	tests := []struct {
		name   string
		intens *table.Table
		ids    *table.Table
		keys   []string
		table  string
	}{
		{
			name:   "no scan column",
			intens: table.MustNew("run", "i126"),
			ids:    ids,
			keys:   []string{"protein"},
			table:  "intensity",
		},
		{
			name:   "two scan columns",
			intens: table.MustNew("run", "scan_num", "scan_id", "i126"),
			ids:    ids,
			keys:   []string{"protein"},
			table:  "intensity",
		},
		{
			name:   "unrecognized column",
			intens: table.MustNew("run", "scan_num", "i126", "retention_time"),
			ids:    ids,
			keys:   []string{"protein"},
			table:  "intensity",
		},
		{
			name:   "no channel columns",
			intens: table.MustNew("run", "scan_num"),
			ids:    ids,
			keys:   []string{"protein"},
			table:  "intensity",
		},
		{
			name:   "missing level key",
			intens: table.MustNew("run", "scan_num", "i126"),
			ids:    ids,
			keys:   []string{"protein", "peptide"},
			table:  "identification",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LinkIdentifications(tt.ids, tt.intens, tt.keys)
			require.Error(t, err)
			var sch *core.SchemaError
			require.True(t, errors.As(err, &sch), "got %T", err)
			assert.Equal(t, tt.table, sch.Table)
		})
	}
}

func TestIsTrue(t *testing.T) {
	tests := []struct {
		name string
		v    table.Value
		want bool
	}{
		{"true string", table.NewString("true"), true},
		{"mixed case", table.NewString("True"), true},
		{"one string", table.NewString("1"), true},
		{"false string", table.NewString("false"), false},
		{"unparseable string", table.NewString("rev_"), false},
		{"nonzero number", table.NewNumber(1), true},
		{"zero number", table.NewNumber(0), false},
		{"missing", table.Value{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTrue(tt.v))
		})
	}
}
