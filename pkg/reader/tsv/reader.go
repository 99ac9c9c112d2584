// Package tsv reads the tab-separated input tables of the quantification
// pipeline: identification and intensity exports plus the three study-design
// tables. Cells are typed on read: empty cells and the literal NA are
// missing, cells that parse as numbers become numeric, everything else stays
// a string. Columns named in stringCols are never number-typed, which keeps
// identifiers like run ids stable across tables.
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// missingToken is the explicit missing-value marker in input files.
const missingToken = "NA"

// scanBufSize bounds a single input line; wide intensity tables stay far
// below this.
const scanBufSize = 4 * 1024 * 1024

// ReadTable reads one tab-separated table with a header line. Blank lines
// are skipped; every data line must match the header's field count.
func ReadTable(r io.Reader, stringCols ...string) (*table.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), scanBufSize)

	var tbl *table.Table
	forced := make(map[string]bool, len(stringCols))
	for _, c := range stringCols {
		forced[c] = true
	}

	var cols []string
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if tbl == nil {
			for i := range fields {
				fields[i] = strings.TrimSpace(fields[i])
			}
			var err error
			tbl, err = table.New(fields...)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			cols = fields
			continue
		}

		if len(fields) != len(cols) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", lineNum, len(fields), len(cols))
		}
		vals := make([]table.Value, len(fields))
		for i, f := range fields {
			vals[i] = parseCell(strings.TrimSpace(f), forced[cols[i]])
		}
		if err := tbl.AppendRow(vals...); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if tbl == nil {
		return nil, fmt.Errorf("empty input, no header line")
	}
	return tbl, nil
}

// parseCell types one cell. A parsed NaN counts as missing so a literal
// "NaN" in an intensity export cannot poison a downstream sum.
func parseCell(s string, forceString bool) table.Value {
	if s == "" || s == missingToken {
		return table.Value{}
	}
	if forceString {
		return table.NewString(s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) {
			return table.Value{}
		}
		return table.NewNumber(f)
	}
	return table.NewString(s)
}

// ReadIdentifications reads an identification export. The run column keeps
// string typing; scan ids and other numeric columns are typed as numbers.
func ReadIdentifications(r io.Reader) (*table.Table, error) {
	return ReadTable(r, core.ColRun)
}

// ReadIntensities reads a reporter intensity export. The run column keeps
// string typing; the scan column name is normalized later by the linker.
func ReadIntensities(r io.Reader) (*table.Table, error) {
	return ReadTable(r, core.ColRun)
}

// designStrings are the columns of the three design tables; all of them are
// identifiers, never quantities.
var designStrings = []string{
	core.ColRun, core.ColPlex, core.ColBlock,
	core.ColChannel, core.ColLabel, core.ColMeasurement, core.ColExpr,
}

// ReadFractions reads the fraction design mapping runs to plexes.
func ReadFractions(r io.Reader) ([]core.FractionRow, error) {
	tbl, err := ReadTable(r, designStrings...)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(tbl, "fraction", core.ColRun, core.ColPlex); err != nil {
		return nil, err
	}
	out := make([]core.FractionRow, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.RowAt(i)
		out[i] = core.FractionRow{
			Run:  row.Value(core.ColRun).String(),
			Plex: row.Value(core.ColPlex).String(),
		}
	}
	return out, nil
}

// ReadSamples reads the sample design. The quant-block, label, and
// measurement columns are optional; absent columns read as empty values and
// take their documented defaults downstream.
func ReadSamples(r io.Reader) ([]core.SampleRow, error) {
	tbl, err := ReadTable(r, designStrings...)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(tbl, "sample", core.ColPlex, core.ColChannel); err != nil {
		return nil, err
	}
	out := make([]core.SampleRow, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.RowAt(i)
		out[i] = core.SampleRow{
			Plex:        row.Value(core.ColPlex).String(),
			Block:       row.Value(core.ColBlock).String(),
			Channel:     row.Value(core.ColChannel).String(),
			Label:       row.Value(core.ColLabel).String(),
			Measurement: row.Value(core.ColMeasurement).String(),
		}
	}
	return out, nil
}

// ReadReferences reads the reference design. The quant-block column is
// optional.
func ReadReferences(r io.Reader) ([]core.ReferenceRow, error) {
	tbl, err := ReadTable(r, designStrings...)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(tbl, "reference", core.ColPlex, core.ColExpr); err != nil {
		return nil, err
	}
	out := make([]core.ReferenceRow, tbl.Len())
	for i := 0; i < tbl.Len(); i++ {
		row := tbl.RowAt(i)
		out[i] = core.ReferenceRow{
			Plex:  row.Value(core.ColPlex).String(),
			Block: row.Value(core.ColBlock).String(),
			Expr:  row.Value(core.ColExpr).String(),
		}
	}
	return out, nil
}

func requireColumns(tbl *table.Table, name string, cols ...string) error {
	for _, c := range cols {
		if !tbl.HasColumn(c) {
			return &core.SchemaError{Table: name, Column: c, Detail: "required column missing"}
		}
	}
	return nil
}
