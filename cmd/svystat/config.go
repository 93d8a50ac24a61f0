package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/svystat/glm"
)

// Config describes one analysis run: where the data lives, which columns
// carry the sampling design, and the model to fit.
type Config struct {
	// Data is the input file: CSV, optionally .gz/.zst/.lz4 compressed.
	Data string `yaml:"data"`
	// OutputDir receives one CSV per report table. Defaults to ".".
	OutputDir string `yaml:"output_dir"`

	// Design column bindings. Weight is required; empty Strata, Clusters
	// or FPC fall back to the design defaults (single stratum, one cluster
	// per row, no finite population correction).
	Weight   string `yaml:"weight"`
	Strata   string `yaml:"strata"`
	Clusters string `yaml:"clusters"`
	FPC      string `yaml:"fpc"`

	// Outcome and Exposure are the analysis columns: outcome a 0/1 numeric
	// column, exposure the predictor whose odds ratio is reported.
	Outcome  string `yaml:"outcome"`
	Exposure string `yaml:"exposure"`

	// Covariates enter the adjusted model alongside the exposure.
	Covariates []string `yaml:"covariates"`

	// Year names a numeric column carrying the survey year; when set, the
	// pipeline reports prevalence by year and the annual percent change
	// from the adjusted model. Year is also included as a covariate if not
	// already listed.
	Year string `yaml:"year"`

	// RefLevels overrides reference levels of categorical predictors.
	RefLevels map[string]string `yaml:"ref_levels"`

	// Domains lists grouping columns for per-domain prevalence tables.
	Domains []string `yaml:"domains"`

	// AltOutcomes are alternate outcome columns for the sensitivity table.
	AltOutcomes []string `yaml:"alt_outcomes"`

	GLM GLMConfig `yaml:"glm"`
}

// GLMConfig tunes the iterative fitter.
type GLMConfig struct {
	Tol           float64 `yaml:"tol"`
	MaxIterations int     `yaml:"max_iterations"`
}

// LoadConfig reads and parses an analysis config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return parseConfig(data)
}

// parseConfig parses YAML bytes into a Config, applying defaults.
func parseConfig(data []byte) (*Config, error) {
	cfg := &Config{
		OutputDir: ".",
		GLM: GLMConfig{
			Tol:           glm.DefaultTol,
			MaxIterations: glm.DefaultMaxIterations,
		},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate checks the bindings the pipeline cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Data == "":
		return fmt.Errorf("config: data path is required")
	case c.Weight == "":
		return fmt.Errorf("config: weight column is required")
	case c.Outcome == "":
		return fmt.Errorf("config: outcome column is required")
	case c.Exposure == "":
		return fmt.Errorf("config: exposure column is required")
	case c.GLM.Tol <= 0:
		return fmt.Errorf("config: glm.tol must be positive, got %g", c.GLM.Tol)
	case c.GLM.MaxIterations < 1:
		return fmt.Errorf("config: glm.max_iterations must be at least 1, got %d", c.GLM.MaxIterations)
	}

	return nil
}

// adjustedPredictors returns the exposure, covariates and year column with
// duplicates removed, preserving order.
func (c *Config) adjustedPredictors() []string {
	preds := make([]string, 0, len(c.Covariates)+2)
	seen := make(map[string]struct{}, len(c.Covariates)+2)
	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		preds = append(preds, name)
	}

	add(c.Exposure)
	for _, cov := range c.Covariates {
		add(cov)
	}
	add(c.Year)

	return preds
}
