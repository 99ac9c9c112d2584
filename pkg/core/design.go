// Package core defines the vocabulary of the quantification pipeline: the
// canonical column names shared by every stage, the aggregation levels, the
// study-design row types, the reporter converter registry, and the error and
// notice types carried through a run.
package core

import "fmt"

// Canonical column names. Input tables are normalized to these before any
// join; every stage downstream of the readers can rely on them.
const (
	ColRun         = "run"
	ColScan        = "scan_num"
	ColPlex        = "plex"
	ColBlock       = "quant_block"
	ColChannel     = "channel"
	ColLabel       = "label"
	ColMeasurement = "measurement"
	ColSpecies     = "species"
	ColAbundance   = "abundance"
	ColRatio       = "ratio"
	ColDecoy       = "is_decoy"
	ColExpr        = "expression"
)

// ScanPrefix matches the scan-identifier column of an intensity table.
// Any column whose name begins with this prefix is renamed to ColScan.
const ScanPrefix = "scan"

// SpeciesSep joins level-key values into one species identifier.
const SpeciesSep = "@"

// DefaultBlock is the implicit quant-block id used when a design table
// carries no quant-block column.
const DefaultBlock = "1"

// Level selects the biological reporting unit of the output matrix: a name
// and the ordered identification columns whose values are concatenated into
// one species id. Custom levels work anywhere a Level is accepted.
type Level struct {
	Name string
	Keys []string
}

var (
	LevelProtein = Level{Name: "protein", Keys: []string{"protein"}}
	LevelPeptide = Level{Name: "peptide", Keys: []string{"peptide", "protein"}}
	LevelSite    = Level{Name: "site", Keys: []string{"protein", "site"}}
)

// ParseLevel resolves a built-in level by name.
func ParseLevel(name string) (Level, error) {
	for _, l := range []Level{LevelProtein, LevelPeptide, LevelSite} {
		if l.Name == name {
			return l, nil
		}
	}
	return Level{}, fmt.Errorf("unknown level %q", name)
}

// FractionRow maps one raw run to the plex it belongs to.
type FractionRow struct {
	Run  string
	Plex string
}

// SampleRow names one physical reporter channel within a plex and
// quant-block: the experiment-scoped alias used while resolving references,
// and the final measurement name used as the output column. An empty
// measurement marks a channel that is intentionally excluded from the
// output, an empty block means DefaultBlock, and an empty label falls back
// to the matched converter's alias for the channel.
type SampleRow struct {
	Plex        string
	Block       string
	Channel     string
	Label       string
	Measurement string
}

// ReferenceRow defines the normalization denominator for one plex and
// quant-block as an arithmetic expression over reporter aliases.
type ReferenceRow struct {
	Plex  string
	Block string
	Expr  string
}

// ValidateSampleDesign checks the invariants the sample design must satisfy
// before any data is touched: every row names a plex and a channel, and no
// two rows share a non-empty measurement name.
func ValidateSampleDesign(rows []SampleRow) error {
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		if r.Plex == "" {
			return &ConfigError{Op: "sample design", Detail: fmt.Sprintf("row %d: empty plex id", i+1)}
		}
		if r.Channel == "" {
			return &ConfigError{Op: "sample design", Detail: fmt.Sprintf("row %d: empty channel name", i+1)}
		}
		if r.Measurement == "" {
			continue
		}
		if j, dup := seen[r.Measurement]; dup {
			return &ConfigError{
				Op:     "sample design",
				Detail: fmt.Sprintf("measurement %q appears in rows %d and %d", r.Measurement, j+1, i+1),
			}
		}
		seen[r.Measurement] = i
	}
	return nil
}

// ValidateReferenceDesign checks that every reference row names a plex and
// carries an expression.
func ValidateReferenceDesign(rows []ReferenceRow) error {
	for i, r := range rows {
		if r.Plex == "" {
			return &ConfigError{Op: "reference design", Detail: fmt.Sprintf("row %d: empty plex id", i+1)}
		}
		if r.Expr == "" {
			return &ConfigError{Op: "reference design", Detail: fmt.Sprintf("row %d: empty reference expression", i+1)}
		}
	}
	return nil
}

// NormalizeBlocks fills in the implicit quant-block. When either design
// carries no block at all, blocks are collapsed to DefaultBlock on both
// sides so the two designs keep joining on (plex, block); otherwise only
// empty cells are defaulted. The inputs are not modified.
func NormalizeBlocks(samples []SampleRow, refs []ReferenceRow) ([]SampleRow, []ReferenceRow) {
	noneSample := true
	for _, r := range samples {
		if r.Block != "" {
			noneSample = false
			break
		}
	}
	noneRef := true
	for _, r := range refs {
		if r.Block != "" {
			noneRef = false
			break
		}
	}
	collapse := noneSample || noneRef

	outS := make([]SampleRow, len(samples))
	for i, r := range samples {
		if collapse || r.Block == "" {
			r.Block = DefaultBlock
		}
		outS[i] = r
	}
	outR := make([]ReferenceRow, len(refs))
	for i, r := range refs {
		if collapse || r.Block == "" {
			r.Block = DefaultBlock
		}
		outR[i] = r
	}
	return outS, outR
}
