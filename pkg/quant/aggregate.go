package quant

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// AggregateLevel attaches the plex id from the fraction design, sums every
// channel per (plex, level keys) with missing cells contributing zero, and
// collapses the level-key columns into one species id joined with the
// species separator. The result holds one row per (plex, species) with the
// summed channel columns.
func AggregateLevel(linked *table.Table, fractions []core.FractionRow, keys []string) (*table.Table, error) {
	fracTbl, err := fractionTable(fractions)
	if err != nil {
		return nil, err
	}
	joined, err := linked.InnerJoin(fracTbl, core.ColRun)
	if err != nil {
		return nil, err
	}

	channels := channelColumns(joined)
	by := append([]string{core.ColPlex}, keys...)
	grouped, err := joined.GroupSum(by, channels)
	if err != nil {
		return nil, err
	}

	out, err := table.New(append([]string{core.ColPlex, core.ColSpecies}, channels...)...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < grouped.Len(); i++ {
		row := grouped.RowAt(i)
		parts := make([]string, len(keys))
		for n, k := range keys {
			parts[n] = row.Value(k).String()
		}
		vals := make([]table.Value, 0, 2+len(channels))
		vals = append(vals, row.Value(core.ColPlex), table.NewString(strings.Join(parts, core.SpeciesSep)))
		for _, ch := range channels {
			vals = append(vals, row.Value(ch))
		}
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// fractionTable converts the fraction design to a run→plex join table,
// rejecting a run mapped to more than one plex.
func fractionTable(fractions []core.FractionRow) (*table.Table, error) {
	seen := make(map[string]string, len(fractions))
	out := table.MustNew(core.ColRun, core.ColPlex)
	for _, f := range fractions {
		if plex, ok := seen[f.Run]; ok {
			if plex != f.Plex {
				return nil, &core.ConfigError{
					Op:     "aggregate",
					Detail: fmt.Sprintf("run %q is mapped to plexes %q and %q", f.Run, plex, f.Plex),
				}
			}
			continue
		}
		seen[f.Run] = f.Plex
		out.MustAppendRow(table.NewString(f.Run), table.NewString(f.Plex))
	}
	return out, nil
}
