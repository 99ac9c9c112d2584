// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Flags for crosstab command
	configFile     string
	idsFile        string
	intensityFile  string
	fractionsFile  string
	samplesFile    string
	referencesFile string
	levelsCSV      string
	outDir         string
	databaseFile   string

	// Global flags
	verbose bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "quantkey",
	Short: "QuantKey - Isobaric reporter-ion quantification tool",
	Long: `QuantKey turns peptide-spectrum matches and reporter-ion intensities into
sample-by-species crosstabs of log2 abundance ratios.

Fast, deterministic, and cross-platform quantification with support for:
- Run reconciliation across identification, intensity, and fraction tables
- TMT and iTRAQ channel sets (4 to 18 plex) with custom sample aliases
- Protein, peptide, and site level rollups
- Arithmetic reference expressions per plex and quant block
- TSV and SQLite crosstab output`,
	Version: "1.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(crosstabCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Crosstab command flags
	crosstabCmd.Flags().StringVarP(&configFile, "config", "c", "", "Experiment config file (YAML); flags override its entries")
	crosstabCmd.Flags().StringVarP(&idsFile, "ids", "i", "", "Identification table (TSV)")
	crosstabCmd.Flags().StringVar(&intensityFile, "intensities", "", "Reporter intensity table (TSV)")
	crosstabCmd.Flags().StringVar(&fractionsFile, "fractions", "", "Fraction design table (TSV)")
	crosstabCmd.Flags().StringVar(&samplesFile, "samples", "", "Sample design table (TSV)")
	crosstabCmd.Flags().StringVar(&referencesFile, "references", "", "Reference design table (TSV)")
	crosstabCmd.Flags().StringVarP(&levelsCSV, "level", "l", "", "Comma-separated reporting levels: protein, peptide, site")
	crosstabCmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for crosstab TSV files")
	crosstabCmd.Flags().StringVar(&databaseFile, "db", "", "Optional SQLite database to record crosstabs in")

	// Validate command flags
	validateCmd.Flags().StringVar(&samplesFile, "samples", "", "Sample design table (TSV) (required)")
	validateCmd.Flags().StringVar(&referencesFile, "references", "", "Reference design table (TSV) (required)")
	validateCmd.Flags().StringVar(&fractionsFile, "fractions", "", "Optional fraction design to cross-check plex coverage")
	validateCmd.Flags().StringVar(&intensityFile, "intensities", "", "Optional intensity table to check channel coverage against")

	validateCmd.MarkFlagRequired("samples")
	validateCmd.MarkFlagRequired("references")
}

var crosstabCmd = &cobra.Command{
	Use:   "crosstab",
	Short: "Build species-by-sample crosstabs of log2 ratios",
	Long: `Build a crosstab of log2 abundance ratios from identifications, reporter
intensities, and the fraction, sample, and reference design tables.

Examples:
  # Quantify at protein level using individual input flags
  quantkey crosstab --ids psm.tsv --intensities reporters.tsv \
    --fractions fractions.tsv --samples samples.tsv --references refs.tsv \
    --level protein --out results/

  # Drive everything from an experiment config, protein and peptide levels
  quantkey crosstab --config experiment.yaml --level protein,peptide

  # Also record the crosstabs in a SQLite database
  quantkey crosstab --config experiment.yaml --db crosstabs.db`,
	RunE: runCrosstab,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate sample and reference design tables",
	Long: `Check sample and reference designs for problems before running quantification:
unknown channel names, duplicate measurement names, malformed reference
expressions, and quant blocks that no reference covers.`,
	RunE: runValidate,
}

func runCrosstab(cmd *cobra.Command, args []string) error {
	exp, err := resolveExperiment()
	if err != nil {
		return err
	}

	fmt.Printf("Quantifying %s + %s...\n", exp.Identifications, exp.Intensities)
	fmt.Printf("Levels: %s\n", strings.Join(exp.Levels, ", "))
	fmt.Printf("Output: %s\n", exp.Output.Dir)
	if exp.Output.Database != "" {
		fmt.Printf("Database: %s\n", exp.Output.Database)
	}

	return runCrosstabPipeline(exp)
}

func runValidate(cmd *cobra.Command, args []string) error {
	for _, path := range []string{samplesFile, referencesFile} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", path)
		}
	}
	return runDesignChecks(samplesFile, referencesFile, fractionsFile, intensityFile)
}
