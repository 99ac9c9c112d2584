package tsv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/QuantKey/pkg/quant"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

func crosstab(t *testing.T) *quant.Matrix {
	t.Helper()
	long := table.MustNew("plex", "quant_block", "species", "measurement", "ratio")
	str, num := table.NewString, table.NewNumber
	long.MustAppendRow(str("1"), str("1"), str("P1"), str("ctrl"), num(1))
	long.MustAppendRow(str("1"), str("1"), str("P1"), str("drugA"), num(4))
	long.MustAppendRow(str("1"), str("1"), str("P2"), str("drugA"), num(0.5))

	m, err := quant.AssembleMatrix(long)
	require.NoError(t, err)
	return m
}

func TestWriteMatrix(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteMatrix(&sb, crosstab(t)))

	want := "species\tctrl\tdrugA\n" +
		"P1\t0\t2\n" +
		"P2\tNA\t-1\n"
	assert.Equal(t, want, sb.String())
}

func TestWriteMatrixEmpty(t *testing.T) {
	long := table.MustNew("plex", "quant_block", "species", "measurement", "ratio")
	m, err := quant.AssembleMatrix(long)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, WriteMatrix(&sb, m))
	assert.Equal(t, "species\n", sb.String())
}
