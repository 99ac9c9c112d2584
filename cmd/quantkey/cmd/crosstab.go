package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
	"github.com/ChrisMcGann/QuantKey/pkg/quant"
	"github.com/ChrisMcGann/QuantKey/pkg/reader/tsv"
	"github.com/ChrisMcGann/QuantKey/pkg/writer/sqlite"
	tsvout "github.com/ChrisMcGann/QuantKey/pkg/writer/tsv"
)

func runCrosstabPipeline(exp *Experiment) error {
	in, err := loadInputs(exp)
	if err != nil {
		return err
	}
	logger.Info("inputs loaded",
		zap.Int("identifications", in.Identifications.Len()),
		zap.Int("intensity_rows", in.Intensities.Len()),
		zap.Int("fractions", len(in.Fractions)),
		zap.Int("samples", len(in.Samples)),
		zap.Int("references", len(in.References)))

	levels := make([]core.Level, len(exp.Levels))
	for i, name := range exp.Levels {
		levels[i], err = core.ParseLevel(name)
		if err != nil {
			return err
		}
	}

	// Quantify each level. Invocations share the loaded tables, which the
	// pipeline treats as immutable, so they can run concurrently.
	results := make([]*quant.Result, len(levels))
	var g errgroup.Group
	for i, lvl := range levels {
		i, lvl := i, lvl // per-iteration copies; required under the go 1.21 language version
		g.Go(func() error {
			res, err := quant.Run(quant.Config{Level: lvl}, in)
			if err != nil {
				return fmt.Errorf("level %s: %w", lvl.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := os.MkdirAll(exp.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Create SQLite writer if requested
	var db *sqlite.Writer
	if exp.Output.Database != "" {
		db, err = sqlite.NewWriter(exp.Output.Database)
		if err != nil {
			return fmt.Errorf("failed to create output database: %w", err)
		}
		defer db.Close()
	}

	warnings := 0
	for i, lvl := range levels {
		res := results[i]
		for _, n := range res.Notices {
			fmt.Fprintf(os.Stderr, "Warning: level %s: %s\n", lvl.Name, n)
			logger.Warn("pipeline notice",
				zap.String("level", lvl.Name),
				zap.String("kind", string(n.Kind)),
				zap.String("detail", n.Detail),
				zap.Int("dropped", n.Dropped))
			warnings++
		}

		species, samples := res.Matrix.Dims()
		logger.Info("crosstab assembled",
			zap.String("level", lvl.Name),
			zap.Int("species", species),
			zap.Int("samples", samples))

		outPath := filepath.Join(exp.Output.Dir, fmt.Sprintf("crosstab_%s.tsv", lvl.Name))
		if err := writeCrosstab(outPath, res.Matrix); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d species x %d samples)\n", outPath, species, samples)

		if db != nil {
			runID := uuid.NewString()
			cells, err := db.WriteMatrix(runID, lvl, res.Matrix, experimentParams(exp))
			if err != nil {
				return fmt.Errorf("failed to record %s crosstab: %w", lvl.Name, err)
			}
			logger.Info("crosstab recorded",
				zap.String("run_id", runID),
				zap.String("level", lvl.Name),
				zap.Int("cells", cells))
		}
	}

	// Finalize database
	if db != nil {
		if err := db.Finalize(); err != nil {
			return fmt.Errorf("failed to finalize database: %w", err)
		}
	}

	fmt.Printf("\nQuantification complete!\n")
	fmt.Printf("Levels: %d\n", len(exp.Levels))
	if warnings > 0 {
		fmt.Printf("Warnings: %d\n", warnings)
	}
	fmt.Printf("Output: %s\n", exp.Output.Dir)

	return nil
}

// loadInputs reads the five input tables named by the experiment.
func loadInputs(exp *Experiment) (quant.Inputs, error) {
	var in quant.Inputs

	f, err := os.Open(exp.Identifications)
	if err != nil {
		return in, fmt.Errorf("failed to open identification table: %w", err)
	}
	in.Identifications, err = tsv.ReadIdentifications(f)
	f.Close()
	if err != nil {
		return in, fmt.Errorf("identification table %s: %w", exp.Identifications, err)
	}

	f, err = os.Open(exp.Intensities)
	if err != nil {
		return in, fmt.Errorf("failed to open intensity table: %w", err)
	}
	in.Intensities, err = tsv.ReadIntensities(f)
	f.Close()
	if err != nil {
		return in, fmt.Errorf("intensity table %s: %w", exp.Intensities, err)
	}

	f, err = os.Open(exp.Fractions)
	if err != nil {
		return in, fmt.Errorf("failed to open fraction design: %w", err)
	}
	in.Fractions, err = tsv.ReadFractions(f)
	f.Close()
	if err != nil {
		return in, fmt.Errorf("fraction design %s: %w", exp.Fractions, err)
	}

	f, err = os.Open(exp.Samples)
	if err != nil {
		return in, fmt.Errorf("failed to open sample design: %w", err)
	}
	in.Samples, err = tsv.ReadSamples(f)
	f.Close()
	if err != nil {
		return in, fmt.Errorf("sample design %s: %w", exp.Samples, err)
	}

	f, err = os.Open(exp.References)
	if err != nil {
		return in, fmt.Errorf("failed to open reference design: %w", err)
	}
	in.References, err = tsv.ReadReferences(f)
	f.Close()
	if err != nil {
		return in, fmt.Errorf("reference design %s: %w", exp.References, err)
	}

	return in, nil
}

// writeCrosstab writes one matrix as a TSV file.
func writeCrosstab(path string, m *quant.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := tsvout.WriteMatrix(f, m); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// experimentParams renders the input paths as the params string stored with
// each recorded run.
func experimentParams(exp *Experiment) string {
	return fmt.Sprintf("ids=%s intensities=%s fractions=%s samples=%s references=%s",
		exp.Identifications, exp.Intensities, exp.Fractions, exp.Samples, exp.References)
}
