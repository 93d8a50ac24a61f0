// Package main implements the svystat CLI: it loads a survey extract, runs
// the analysis described by a YAML config and writes the resulting report
// tables as CSV files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataPath   string
	outDir     string
	verbose    bool

	// version is stamped at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "svystat",
	Short: "Design-based estimation for complex survey samples",
	Long: `svystat runs survey-weighted analyses: prevalences with linearized
variances, domain estimates, logistic regression with sandwich covariance
and derived measures (odds ratios, annual percent change, attributable
fractions). Analyses are described by a YAML config binding data columns to
the sampling design and the model.`,
	Version: version,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the configured analysis and write report CSVs",
	Long: `Run the full analysis pipeline: load the data file, build the survey
design, estimate prevalences overall and by domain, fit crude and adjusted
logistic models, derive odds ratios, trend and attributable fraction, and
refit alternate outcomes. Each report table is written as a CSV file in the
output directory.

Examples:
  # Run the analysis described by analysis.yaml
  svystat analyze --config analysis.yaml

  # Same analysis against a different extract, results elsewhere
  svystat analyze --config analysis.yaml --data brfss_2023.csv.gz --out results/2023

  # Console logging with per-iteration fit detail
  svystat analyze --config analysis.yaml --verbose`,
	RunE: runAnalyze,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the svystat version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("svystat", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "console logging with debug detail")
	analyzeCmd.Flags().StringVar(&configPath, "config", "", "path to the YAML analysis config (required)")
	analyzeCmd.Flags().StringVar(&dataPath, "data", "", "data file overriding the config's data path")
	analyzeCmd.Flags().StringVar(&outDir, "out", "", "output directory overriding the config")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
}
