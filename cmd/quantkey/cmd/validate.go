package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/formula"
	"github.com/ChrisMcGann/QuantKey/pkg/reader/tsv"
)

// designReport accumulates validation findings. Problems make the pipeline
// abort; warnings mean some data would be dropped or defaulted.
type designReport struct {
	problems []string
	warnings []string
}

func (r *designReport) problemf(format string, args ...interface{}) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

func (r *designReport) warnf(format string, args ...interface{}) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// runDesignChecks validates the sample and reference designs against each
// other, against the fraction design's plexes, and against the intensity
// table's channel columns when those are given. It mirrors the checks the
// pipeline applies, without touching any identification data.
func runDesignChecks(samplesPath, referencesPath, fractionsPath, intensitiesPath string) error {
	sf, err := os.Open(samplesPath)
	if err != nil {
		return fmt.Errorf("failed to open sample design: %w", err)
	}
	samples, err := tsv.ReadSamples(sf)
	sf.Close()
	if err != nil {
		return fmt.Errorf("sample design %s: %w", samplesPath, err)
	}

	rf, err := os.Open(referencesPath)
	if err != nil {
		return fmt.Errorf("failed to open reference design: %w", err)
	}
	refs, err := tsv.ReadReferences(rf)
	rf.Close()
	if err != nil {
		return fmt.Errorf("reference design %s: %w", referencesPath, err)
	}

	fmt.Printf("Validating %s + %s...\n", samplesPath, referencesPath)

	var report designReport

	if err := core.ValidateSampleDesign(samples); err != nil {
		report.problemf("%v", err)
	}
	if err := core.ValidateReferenceDesign(refs); err != nil {
		report.problemf("%v", err)
	}

	for i, s := range samples {
		if s.Channel != "" && !core.IsChannel(s.Channel) {
			report.problemf("sample row %d: %q is not a reporter channel name", i+1, s.Channel)
		}
	}

	// The converter is matched against the observed channel columns when an
	// intensity table is given; otherwise alias defaults go unverified.
	var conv core.Converter
	haveConv := false
	if intensitiesPath != "" {
		channels, err := intensityChannels(intensitiesPath)
		if err != nil {
			return err
		}
		conv, haveConv = core.MatchConverter(channels, core.DefaultConverters)
		if !haveConv {
			report.problemf("no converter table matches the intensity channels (%s)", strings.Join(channels, ", "))
		} else {
			fmt.Printf("Matched converter: %s (%d channels)\n", conv.Name, len(channels))
		}
		designed := make(map[string]bool, len(samples))
		for _, s := range samples {
			designed[s.Channel] = true
		}
		unmapped := 0
		for _, ch := range channels {
			if !designed[ch] {
				unmapped++
			}
		}
		if unmapped > 0 {
			report.warnf("%d intensity channels have no sample-design row and would be dropped", unmapped)
		}
		for i, s := range samples {
			if s.Channel != "" && !contains(channels, s.Channel) {
				report.warnf("sample row %d: channel %s is not in the intensity table", i+1, s.Channel)
			}
		}
	}

	if fractionsPath != "" {
		ff, err := os.Open(fractionsPath)
		if err != nil {
			return fmt.Errorf("failed to open fraction design: %w", err)
		}
		fractions, err := tsv.ReadFractions(ff)
		ff.Close()
		if err != nil {
			return fmt.Errorf("fraction design %s: %w", fractionsPath, err)
		}
		checkFractions(fractions, samples, &report)
	}

	samples, refs = core.NormalizeBlocks(samples, refs)
	checkUnits(samples, refs, conv, haveConv, &report)

	for _, w := range report.warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	for _, p := range report.problems {
		fmt.Fprintf(os.Stderr, "Problem: %s\n", p)
	}

	fmt.Printf("\nSample rows: %d\n", len(samples))
	fmt.Printf("Reference rows: %d\n", len(refs))
	if len(report.problems) > 0 {
		return fmt.Errorf("validation failed with %d problems", len(report.problems))
	}
	fmt.Printf("Validation passed!\n")
	return nil
}

// checkUnits cross-checks the (plex, quant-block) units of the two designs:
// block coverage in both directions, duplicate reference rows, expression
// syntax, and expression operands against each unit's alias set.
func checkUnits(samples []core.SampleRow, refs []core.ReferenceRow, conv core.Converter, haveConv bool, report *designReport) {
	type unitInfo struct {
		aliases    map[string]bool
		incomplete bool
	}
	units := make(map[string]*unitInfo)
	var order []string
	for _, s := range samples {
		unit := s.Plex + "\x1f" + s.Block
		info := units[unit]
		if info == nil {
			info = &unitInfo{aliases: make(map[string]bool)}
			units[unit] = info
			order = append(order, unit)
		}
		label := s.Label
		if label == "" && haveConv {
			label, _ = conv.Label(s.Channel)
		}
		if label == "" {
			// Alias would come from the converter; without one matched the
			// operand check for this unit cannot be complete.
			info.incomplete = true
			continue
		}
		info.aliases[label] = true
	}

	seen := make(map[string]bool, len(refs))
	for i, r := range refs {
		unit := r.Plex + "\x1f" + r.Block
		if seen[unit] {
			report.problemf("reference row %d: plex %s block %s has more than one reference row", i+1, r.Plex, r.Block)
			continue
		}
		seen[unit] = true

		expr, err := formula.Parse(r.Expr)
		if err != nil {
			report.problemf("reference row %d: %v", i+1, err)
			continue
		}

		info := units[unit]
		if info == nil {
			report.warnf("reference for plex %s block %s matches no sample rows", r.Plex, r.Block)
			continue
		}
		if info.incomplete {
			report.warnf("plex %s block %s has unaliased channels, operand check skipped", r.Plex, r.Block)
			continue
		}
		var unknown []string
		for _, op := range expr.Operands() {
			if !info.aliases[op] {
				unknown = append(unknown, op)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			report.problemf("reference for plex %s block %s uses unknown aliases: %s",
				r.Plex, r.Block, strings.Join(unknown, ", "))
		}
	}

	for _, unit := range order {
		if !seen[unit] {
			plex, block, _ := strings.Cut(unit, "\x1f")
			report.warnf("plex %s block %s has no reference row, its samples would be dropped", plex, block)
		}
	}
}

// checkFractions cross-checks the fraction design against the sample design:
// a run mapped to two plexes is fatal in the pipeline, and a plex present in
// only one of the two designs produces no output.
func checkFractions(fractions []core.FractionRow, samples []core.SampleRow, report *designReport) {
	runPlex := make(map[string]string, len(fractions))
	fracPlexes := make(map[string]bool)
	for i, f := range fractions {
		if f.Run == "" || f.Plex == "" {
			report.problemf("fraction row %d: empty run or plex id", i+1)
			continue
		}
		fracPlexes[f.Plex] = true
		if plex, ok := runPlex[f.Run]; ok && plex != f.Plex {
			report.problemf("run %q is mapped to plexes %q and %q", f.Run, plex, f.Plex)
			continue
		}
		runPlex[f.Run] = f.Plex
	}

	samplePlexes := make(map[string]bool, len(samples))
	for _, s := range samples {
		samplePlexes[s.Plex] = true
	}
	warned := make(map[string]bool)
	for _, f := range fractions {
		if f.Plex != "" && !samplePlexes[f.Plex] && !warned[f.Plex] {
			warned[f.Plex] = true
			report.warnf("plex %s has fraction runs but no sample rows, its channels would be dropped", f.Plex)
		}
	}
	for _, s := range samples {
		if !fracPlexes[s.Plex] && !warned[s.Plex] {
			warned[s.Plex] = true
			report.warnf("plex %s has sample rows but no fraction runs, it would produce no data", s.Plex)
		}
	}
}

// intensityChannels reads just enough of an intensity table to list its
// reporter channel columns.
func intensityChannels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open intensity table: %w", err)
	}
	defer f.Close()
	tbl, err := tsv.ReadIntensities(f)
	if err != nil {
		return nil, fmt.Errorf("intensity table %s: %w", path, err)
	}
	var out []string
	for _, c := range tbl.Columns() {
		if core.IsChannel(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
