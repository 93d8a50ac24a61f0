package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/svystat/epi"
	"github.com/arloliu/svystat/frame"
	"github.com/arloliu/svystat/glm"
	"github.com/arloliu/svystat/report"
	"github.com/arloliu/svystat/survey"
)

func runAnalyze(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}

	logger, err := buildLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if dataPath != "" {
		cfg.Data = dataPath
	}
	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tables, err := analyze(cfg, logger)
	if err != nil {
		return err
	}

	return writeTables(cfg.OutputDir, tables, logger)
}

// analyze runs the full pipeline: design, prevalences, crude and adjusted
// models, derived measures and the sensitivity table. It returns one report
// table per output file.
func analyze(cfg *Config, logger *zap.Logger) ([]*report.Table, error) {
	f, err := frame.Open(cfg.Data)
	if err != nil {
		return nil, err
	}
	logger.Info("data loaded",
		zap.String("path", cfg.Data),
		zap.Int("rows", f.Len()),
		zap.Int("columns", len(f.Names())),
	)

	d, err := survey.NewDesign(f, cfg.Weight, designOptions(cfg, logger)...)
	if err != nil {
		return nil, err
	}
	logger.Info("design ready",
		zap.Int("rows", d.Len()),
		zap.Int("strata", d.Strata()),
		zap.Int("clusters", d.Clusters()),
		zap.Int("df", d.DF()),
	)

	var tables []*report.Table

	prevOutcome, err := survey.Mean(d, cfg.Outcome)
	if err != nil {
		return nil, fmt.Errorf("outcome prevalence: %w", err)
	}
	means := []report.LabeledMean{{Label: cfg.Outcome, Mean: prevOutcome}}

	// The exposure prevalence feeds the attributable fraction; a
	// categorical exposure has no single prevalence, so both are skipped.
	var exposurePrev *survey.Result
	if f.IsNumeric(cfg.Exposure) {
		prev, err := survey.Mean(d, cfg.Exposure)
		if err != nil {
			return nil, fmt.Errorf("exposure prevalence: %w", err)
		}
		exposurePrev = &prev
		means = append(means, report.LabeledMean{Label: cfg.Exposure, Mean: prev})
	} else {
		logger.Warn("categorical exposure: skipping its prevalence and the attributable fraction",
			zap.String("column", cfg.Exposure))
	}
	tables = append(tables, report.FromMeans("prevalence", means))

	domainCols := cfg.Domains
	if cfg.Year != "" {
		domainCols = append([]string{cfg.Year}, domainCols...)
	}
	for _, col := range domainCols {
		domains, err := survey.ByDomain(d, cfg.Outcome, col)
		if err != nil {
			return nil, fmt.Errorf("domain %q: %w", col, err)
		}
		failed := 0
		for _, dm := range domains {
			if dm.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			logger.Warn("domains without estimates",
				zap.String("group_by", col),
				zap.Int("failed", failed),
				zap.Int("total", len(domains)),
			)
		}
		tables = append(tables, report.FromDomains("prevalence_by_"+col, cfg.Outcome, domains))
	}

	fitOpts := []glm.FitOption{
		glm.WithTol(cfg.GLM.Tol),
		glm.WithMaxIterations(cfg.GLM.MaxIterations),
		glm.WithLogger(logger),
	}

	crude, err := glm.Fit(d, glm.ModelSpec{
		Outcome:    cfg.Outcome,
		Predictors: []string{cfg.Exposure},
		RefLevels:  cfg.RefLevels,
	}, fitOpts...)
	if err != nil {
		return nil, fmt.Errorf("crude model: %w", err)
	}
	logFit(logger, "crude model", crude)
	tables = append(tables, report.FromFit("model_crude", crude))

	adjustedSpec := glm.ModelSpec{
		Outcome:    cfg.Outcome,
		Predictors: cfg.adjustedPredictors(),
		RefLevels:  cfg.RefLevels,
	}
	adjusted, err := glm.Fit(d, adjustedSpec, fitOpts...)
	if err != nil {
		return nil, fmt.Errorf("adjusted model: %w", err)
	}
	logFit(logger, "adjusted model", adjusted)
	tables = append(tables, report.FromFit("model_adjusted", adjusted))

	crudeTerm, err := exposureTerm(crude, cfg.Exposure)
	if err != nil {
		return nil, err
	}
	adjTerm, err := exposureTerm(adjusted, cfg.Exposure)
	if err != nil {
		return nil, err
	}

	crudeOR, err := epi.OddsRatio(crude, crudeTerm)
	if err != nil {
		return nil, err
	}
	adjOR, err := epi.OddsRatio(adjusted, adjTerm)
	if err != nil {
		return nil, err
	}
	derived := &report.Table{Title: "derived"}
	derived.Append(
		report.EstimateRow("odds_ratio_crude", crudeOR),
		report.EstimateRow("odds_ratio_adjusted", adjOR),
	)

	if cfg.Year != "" {
		if adjusted.TermIndex(cfg.Year) >= 0 {
			apc, err := epi.AnnualPercentChange(adjusted, cfg.Year)
			if err != nil {
				return nil, err
			}
			derived.Append(report.EstimateRow("annual_percent_change", apc))
		} else {
			logger.Warn("year column contributes no single trend term; annual percent change skipped",
				zap.String("column", cfg.Year))
		}
	}

	if exposurePrev != nil {
		paf, err := epi.PAFFromResults(*exposurePrev, adjOR)
		if err != nil {
			logger.Warn("attributable fraction unavailable", zap.Error(err))
		} else {
			derived.Append(report.PointRow("paf", paf, "from adjusted OR; assumes rare outcome"))
		}
	}
	tables = append(tables, derived)

	if len(cfg.AltOutcomes) > 0 {
		rows := epi.Sensitivity(d, adjustedSpec, cfg.AltOutcomes, adjTerm, fitOpts...)
		failed := 0
		for _, r := range rows {
			if r.Err != nil {
				failed++
				logger.Warn("alternate outcome failed",
					zap.String("outcome", r.Outcome),
					zap.Error(r.Err),
				)
			}
		}
		logger.Info("sensitivity fits done",
			zap.Int("outcomes", len(rows)),
			zap.Int("failed", failed),
		)
		tables = append(tables, report.FromSensitivity("sensitivity", rows))
	}

	return tables, nil
}

func designOptions(cfg *Config, logger *zap.Logger) []survey.DesignOption {
	opts := []survey.DesignOption{survey.WithLogger(logger)}
	if cfg.Strata != "" {
		opts = append(opts, survey.WithStrata(cfg.Strata))
	}
	if cfg.Clusters != "" {
		opts = append(opts, survey.WithClusters(cfg.Clusters))
	}
	if cfg.FPC != "" {
		opts = append(opts, survey.WithFPC(cfg.FPC))
	}

	return opts
}

// exposureTerm locates the model term carrying the exposure: the column
// itself when numeric, or its first non-reference indicator when
// categorical.
func exposureTerm(m *glm.Model, col string) (string, error) {
	for _, term := range m.Terms {
		if term == col || strings.HasPrefix(term, col+"=") {
			return term, nil
		}
	}

	return "", fmt.Errorf("no model term for exposure column %q (terms %v)", col, m.Terms)
}

func logFit(logger *zap.Logger, name string, m *glm.Model) {
	logger.Info(name+" fitted",
		zap.Int("n", m.N),
		zap.Int("excluded", m.Excluded),
		zap.Int("iterations", m.Iterations),
		zap.Int("df", m.DF),
		zap.Float64("dispersion", m.Dispersion),
	)
}

func writeTables(dir string, tables []*report.Table, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, tbl := range tables {
		path := filepath.Join(dir, tbl.Title+".csv")
		if err := writeTable(path, tbl); err != nil {
			return err
		}
		logger.Info("table written", zap.String("path", path), zap.Int("rows", len(tbl.Rows)))
	}

	return nil
}

func writeTable(path string, tbl *report.Table) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := tbl.WriteCSV(out); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return out.Close()
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}
