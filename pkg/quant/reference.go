package quant

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/formula"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// Block is one resolved (plex, quant-block) unit: the block's abundances
// pivoted wide by reporter alias, the reference value per species row, and
// the alias-to-measurement mapping used to name the output columns.
type Block struct {
	Plex string
	ID   string
	// Wide holds a species column followed by one column per alias.
	Wide *table.Table
	// Refs holds the evaluated reference expression per Wide row.
	Refs []float64
	// Measurements maps each alias to its measurement name; an empty name
	// excludes the alias from the output.
	Measurements map[string]string
}

// ResolveReferences matches the observed channel set against the converter
// registry, attaches sample-design naming to the aggregated data, and
// evaluates the reference expression of every (plex, quant-block) in the
// reference design. Reference rows that match no data are skipped with a
// notice; a channel set no converter recognizes, a duplicated alias or
// block, and any expression failure are fatal.
func ResolveReferences(agg *table.Table, samples []core.SampleRow, refs []core.ReferenceRow, registry []core.Converter) ([]Block, []core.Notice, error) {
	channels := channelColumns(agg)
	conv, ok := core.MatchConverter(channels, registry)
	if !ok {
		return nil, nil, &core.ConfigError{
			Op:     "resolve references",
			Detail: fmt.Sprintf("no converter table matches observed reporter channels (%s)", strings.Join(channels, ", ")),
		}
	}
	samples, refs = core.NormalizeBlocks(samples, refs)

	long, err := agg.Melt([]string{core.ColPlex, core.ColSpecies}, channels, core.ColChannel, core.ColAbundance)
	if err != nil {
		return nil, nil, err
	}

	sampleTbl, measurements, err := sampleJoinTable(samples, conv)
	if err != nil {
		return nil, nil, err
	}
	attached, err := long.InnerJoin(sampleTbl, core.ColPlex, core.ColChannel)
	if err != nil {
		return nil, nil, err
	}

	var notices []core.Notice
	if n := countUnmapped(long, attached); n > 0 {
		notices = append(notices, core.Notice{
			Kind:    core.NoticeUnmappedChannel,
			Detail:  fmt.Sprintf("%d plex/channel pairs have no sample-design row", n),
			Dropped: n,
		})
	}
	notices = append(notices, plexCoverage(agg, refs)...)

	seen := make(map[string]bool, len(refs))
	var blocks []Block
	for _, r := range refs {
		unit := r.Plex + "\x1f" + r.Block
		if seen[unit] {
			return nil, nil, &core.ConfigError{
				Op:     "resolve references",
				Detail: fmt.Sprintf("plex %s block %s has more than one reference row", r.Plex, r.Block),
			}
		}
		seen[unit] = true

		expr, err := formula.Parse(r.Expr)
		if err != nil {
			return nil, nil, &core.ConfigError{
				Op:     "resolve references",
				Detail: fmt.Sprintf("plex %s block %s: %v", r.Plex, r.Block, err),
			}
		}

		rows := attached.Filter(func(row table.Row) bool {
			p, _ := row.String(core.ColPlex)
			b, _ := row.String(core.ColBlock)
			return p == r.Plex && b == r.Block
		})
		if rows.Len() == 0 {
			notices = append(notices, core.Notice{
				Kind:   core.NoticePlexMismatch,
				Detail: fmt.Sprintf("reference for plex %s block %s matches no data", r.Plex, r.Block),
			})
			continue
		}

		wide, err := rows.Pivot([]string{core.ColSpecies}, core.ColLabel, core.ColAbundance)
		if err != nil {
			return nil, nil, err
		}
		aliases := wide.Columns()[1:]

		vals := make([]float64, wide.Len())
		env := make(map[string]float64, len(aliases))
		for i := 0; i < wide.Len(); i++ {
			row := wide.RowAt(i)
			for _, a := range aliases {
				f, _ := row.Number(a)
				env[a] = f
			}
			v, err := expr.Eval(env)
			if err != nil {
				return nil, nil, &core.ConfigError{
					Op:     "resolve references",
					Detail: fmt.Sprintf("plex %s block %s: %v", r.Plex, r.Block, err),
				}
			}
			vals[i] = v
		}

		blocks = append(blocks, Block{
			Plex:         r.Plex,
			ID:           r.Block,
			Wide:         wide,
			Refs:         vals,
			Measurements: measurements[unit],
		})
	}
	return blocks, notices, nil
}

// sampleJoinTable converts the sample design into a join table keyed by
// (plex, channel) and collects the alias-to-measurement mapping per
// (plex, block) unit. Aliases left empty in the design default to the
// converter's alias for the channel.
func sampleJoinTable(samples []core.SampleRow, conv core.Converter) (*table.Table, map[string]map[string]string, error) {
	out := table.MustNew(core.ColPlex, core.ColChannel, core.ColBlock, core.ColLabel)
	measurements := make(map[string]map[string]string)
	aliasChannel := make(map[string]string)
	for _, s := range samples {
		label := s.Label
		if label == "" {
			label, _ = conv.Label(s.Channel)
			if label == "" {
				return nil, nil, &core.ConfigError{
					Op:     "resolve references",
					Detail: fmt.Sprintf("channel %q in plex %s has no alias in converter %s", s.Channel, s.Plex, conv.Name),
				}
			}
		}
		unit := s.Plex + "\x1f" + s.Block
		key := unit + "\x1f" + label
		if ch, dup := aliasChannel[key]; dup {
			if ch == s.Channel {
				continue
			}
			return nil, nil, &core.ConfigError{
				Op:     "resolve references",
				Detail: fmt.Sprintf("alias %q is defined twice in plex %s block %s", label, s.Plex, s.Block),
			}
		}
		aliasChannel[key] = s.Channel
		if measurements[unit] == nil {
			measurements[unit] = make(map[string]string)
		}
		measurements[unit][label] = s.Measurement
		out.MustAppendRow(
			table.NewString(s.Plex),
			table.NewString(s.Channel),
			table.NewString(s.Block),
			table.NewString(label),
		)
	}
	return out, measurements, nil
}

// countUnmapped counts the distinct (plex, channel) pairs that were present
// before the sample-design join and absent after it.
func countUnmapped(long, attached *table.Table) int {
	pairs := func(t *table.Table) map[string]bool {
		out := make(map[string]bool)
		for i := 0; i < t.Len(); i++ {
			row := t.RowAt(i)
			p, _ := row.String(core.ColPlex)
			ch, _ := row.String(core.ColChannel)
			out[p+"\x1f"+ch] = true
		}
		return out
	}
	before, after := pairs(long), pairs(attached)
	n := 0
	for k := range before {
		if !after[k] {
			n++
		}
	}
	return n
}

// plexCoverage reports data plexes the reference design never mentions.
func plexCoverage(agg *table.Table, refs []core.ReferenceRow) []core.Notice {
	refPlexes := make(map[string]bool, len(refs))
	for _, r := range refs {
		refPlexes[r.Plex] = true
	}
	missing := make(map[string]bool)
	for i := 0; i < agg.Len(); i++ {
		p, _ := agg.RowAt(i).String(core.ColPlex)
		if !refPlexes[p] {
			missing[p] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []core.Notice{{
		Kind:    core.NoticePlexMismatch,
		Detail:  fmt.Sprintf("%d data plexes have no reference row", len(missing)),
		Dropped: len(missing),
	}}
}
