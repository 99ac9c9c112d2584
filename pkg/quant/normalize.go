package quant

import (
	"math"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// NormalizeRatios divides every alias column of each block by the block's
// per-species reference value, reshapes back to long form, and renames
// aliases to measurement names. Rows whose alias has no measurement name
// and rows whose ratio is non-finite or exactly zero are dropped; both are
// expected conditions, not faults. Results from all blocks are concatenated
// in block order.
func NormalizeRatios(blocks []Block) (*table.Table, error) {
	out, err := table.New(core.ColPlex, core.ColBlock, core.ColSpecies, core.ColMeasurement, core.ColRatio)
	if err != nil {
		return nil, err
	}
	for _, b := range blocks {
		aliases := b.Wide.Columns()[1:]

		divided, err := table.New(b.Wide.Columns()...)
		if err != nil {
			return nil, err
		}
		for i := 0; i < b.Wide.Len(); i++ {
			row := b.Wide.RowAt(i)
			vals := make([]table.Value, 0, 1+len(aliases))
			vals = append(vals, row.Value(core.ColSpecies))
			for _, a := range aliases {
				cell := row.Value(a)
				if f, ok := cell.AsNumber(); ok {
					cell = table.NewNumber(f / b.Refs[i])
				}
				vals = append(vals, cell)
			}
			if err := divided.AppendRow(vals...); err != nil {
				return nil, err
			}
		}

		long, err := divided.Melt([]string{core.ColSpecies}, aliases, core.ColLabel, core.ColRatio)
		if err != nil {
			return nil, err
		}
		for i := 0; i < long.Len(); i++ {
			row := long.RowAt(i)
			alias, _ := row.String(core.ColLabel)
			m := b.Measurements[alias]
			if m == "" {
				continue
			}
			ratio, ok := row.Number(core.ColRatio)
			if !ok || ratio == 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
				continue
			}
			if err := out.AppendRow(
				table.NewString(b.Plex),
				table.NewString(b.ID),
				row.Value(core.ColSpecies),
				table.NewString(m),
				table.NewNumber(ratio),
			); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
