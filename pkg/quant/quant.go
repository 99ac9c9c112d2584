// Package quant implements the linking, aggregation, and normalization
// pipeline that turns identification and reporter-ion intensity tables into
// a species-by-sample crosstab of log2 ratios.
//
// The pipeline is a fixed sequence of six stages; data flows strictly
// forward and every stage produces a new artifact:
//
//	ReconcileRuns        subset all inputs to the common run ids
//	LinkIdentifications  join identifications to intensities on (run, scan)
//	AggregateLevel       sum channels per (plex, species)
//	ResolveReferences    evaluate the reference expression per plex block
//	NormalizeRatios      divide channels by the reference, name the samples
//	AssembleMatrix       pivot to the wide crosstab and log2-transform
//
// Fatal conditions surface as *core.ConfigError or *core.SchemaError and
// abort the invocation with no partial result. Recoverable mismatches are
// repaired by subsetting and reported as core.Notice values on the Result.
package quant

import (
	"fmt"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/table"
)

// Config selects the reporting level and the converter registry for one
// invocation.
type Config struct {
	// Level chooses the identification columns that define a species.
	Level core.Level
	// Converters is the reporter converter registry to match against the
	// observed channel set. Nil means core.DefaultConverters.
	Converters []core.Converter
}

// Inputs are the five tables one invocation consumes. The pipeline treats
// them as immutable snapshots and never modifies them.
type Inputs struct {
	Identifications *table.Table
	Intensities     *table.Table
	Fractions       []core.FractionRow
	Samples         []core.SampleRow
	References      []core.ReferenceRow
}

// Result is the crosstab plus the advisory notices gathered on the way.
type Result struct {
	Matrix  *Matrix
	Notices []core.Notice
}

// Run executes the full pipeline.
func Run(cfg Config, in Inputs) (*Result, error) {
	keys := cfg.Level.Keys
	if len(keys) == 0 {
		return nil, &core.ConfigError{Op: "configure", Detail: fmt.Sprintf("level %q has no key columns", cfg.Level.Name)}
	}
	if in.Identifications == nil || in.Intensities == nil {
		return nil, &core.ConfigError{Op: "configure", Detail: "identification and intensity tables are required"}
	}
	if len(in.Fractions) == 0 {
		return nil, &core.ConfigError{Op: "configure", Detail: "fraction design is empty"}
	}
	if err := core.ValidateSampleDesign(in.Samples); err != nil {
		return nil, err
	}
	if err := core.ValidateReferenceDesign(in.References); err != nil {
		return nil, err
	}
	converters := cfg.Converters
	if converters == nil {
		converters = core.DefaultConverters
	}

	var notices []core.Notice

	ids, intens, fractions, ns, err := ReconcileRuns(in.Identifications, in.Intensities, in.Fractions)
	if err != nil {
		return nil, err
	}
	notices = append(notices, ns...)

	linked, ns, err := LinkIdentifications(ids, intens, keys)
	if err != nil {
		return nil, err
	}
	notices = append(notices, ns...)

	agg, err := AggregateLevel(linked, fractions, keys)
	if err != nil {
		return nil, err
	}

	blocks, ns, err := ResolveReferences(agg, in.Samples, in.References, converters)
	if err != nil {
		return nil, err
	}
	notices = append(notices, ns...)

	long, err := NormalizeRatios(blocks)
	if err != nil {
		return nil, err
	}

	m, err := AssembleMatrix(long)
	if err != nil {
		return nil, err
	}
	return &Result{Matrix: m, Notices: notices}, nil
}

// channelColumns returns the reporter channel columns of a table in
// declared order.
func channelColumns(t *table.Table) []string {
	var out []string
	for _, c := range t.Columns() {
		if core.IsChannel(c) {
			out = append(out, c)
		}
	}
	return out
}

// runStrings coerces the run column to string cells so run ids compare and
// join consistently across inputs regardless of how a reader typed them.
func runStrings(t *table.Table) (*table.Table, error) {
	if !t.HasColumn(core.ColRun) {
		return nil, fmt.Errorf("no column %q", core.ColRun)
	}
	return t.MapColumn(core.ColRun, func(v table.Value) table.Value {
		return table.NewString(v.String())
	})
}
