package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ChrisMcGann/QuantKey/pkg/core"
)

// Experiment names the five input tables and the output targets of one
// quantification experiment. It can come from a YAML config file, from
// command-line flags, or both; flags override config entries.
type Experiment struct {
	Identifications string       `mapstructure:"identifications"`
	Intensities     string       `mapstructure:"intensities"`
	Fractions       string       `mapstructure:"fractions"`
	Samples         string       `mapstructure:"samples"`
	References      string       `mapstructure:"references"`
	Levels          []string     `mapstructure:"levels"`
	Output          OutputConfig `mapstructure:"output"`
}

// OutputConfig names the crosstab destinations.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Database string `mapstructure:"database"`
}

// loadExperiment reads an experiment config file. Environment variables with
// the QUANTKEY_ prefix override file entries.
func loadExperiment(path string) (*Experiment, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("QUANTKEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("levels", []string{core.LevelProtein.Name})
	v.SetDefault("output.dir", ".")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var exp Experiment
	if err := v.Unmarshal(&exp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &exp, nil
}

// resolveExperiment merges the config file (if any) with the crosstab flags
// and validates the result.
func resolveExperiment() (*Experiment, error) {
	exp := &Experiment{
		Levels: []string{core.LevelProtein.Name},
		Output: OutputConfig{Dir: "."},
	}
	if configFile != "" {
		loaded, err := loadExperiment(configFile)
		if err != nil {
			return nil, err
		}
		exp = loaded
	}

	if idsFile != "" {
		exp.Identifications = idsFile
	}
	if intensityFile != "" {
		exp.Intensities = intensityFile
	}
	if fractionsFile != "" {
		exp.Fractions = fractionsFile
	}
	if samplesFile != "" {
		exp.Samples = samplesFile
	}
	if referencesFile != "" {
		exp.References = referencesFile
	}
	if levelsCSV != "" {
		exp.Levels = splitCSV(levelsCSV)
	}
	if outDir != "" {
		exp.Output.Dir = outDir
	}
	if databaseFile != "" {
		exp.Output.Database = databaseFile
	}
	if exp.Output.Dir == "" {
		exp.Output.Dir = "."
	}

	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

// Validate checks that every input table is named and present on disk and
// that the requested levels are known.
func (e *Experiment) Validate() error {
	required := []struct{ name, path string }{
		{"identifications", e.Identifications},
		{"intensities", e.Intensities},
		{"fractions", e.Fractions},
		{"samples", e.Samples},
		{"references", e.References},
	}
	for _, r := range required {
		if r.path == "" {
			return fmt.Errorf("%s table is required, set it via flag or config", r.name)
		}
		if _, err := os.Stat(r.path); os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", r.path)
		}
	}
	if len(e.Levels) == 0 {
		return fmt.Errorf("at least one reporting level is required")
	}
	for _, l := range e.Levels {
		if _, err := core.ParseLevel(l); err != nil {
			return fmt.Errorf("invalid level %q, must be protein, peptide, or site", l)
		}
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
