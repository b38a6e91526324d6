package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/journalbrand/compliance/internal/config"
	"github.com/journalbrand/compliance/internal/history"
	"github.com/journalbrand/compliance/internal/matrix"
	"github.com/journalbrand/compliance/internal/ui"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Aggregate requirements and test results into a compliance matrix",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().String("results", "", "directory containing per-component test result documents")
	generateCmd.Flags().String("output", "", "output file or directory for the matrix document")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New(cfg.Verbose)

	resultsDir := cfg.ResultsPath()
	if v, _ := cmd.Flags().GetString("results"); v != "" {
		resultsDir = v
	}
	output := filepath.Join(cfg.ReportsPath(), matrix.FileName)
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		output = matrix.ResolveOutputPath(v)
	}

	printer.Banner("Compliance Matrix Generation")

	started := time.Now().UTC()
	gen := &matrix.Generator{
		RequirementsPath: cfg.RequirementsFile(),
		ComponentsDir:    cfg.ComponentsPath(),
		ResultsDir:       resultsDir,
		Printer:          printer,
	}
	m, err := gen.Generate(started)
	if err != nil {
		return err
	}

	if err := matrix.WriteDocument(m, output); err != nil {
		return err
	}
	if err := matrix.CopyFile(output, filepath.Join(cfg.DashboardPath(), matrix.FileName)); err != nil {
		printer.Warnf("could not copy matrix into dashboard: %v", err)
	}

	printer.OKf("compliance matrix written to %s", output)
	printStatistics(printer, m)
	recordManualRun(cfg, printer, m, started)
	return nil
}

// recordManualRun records the one-shot generation in the run history. The
// history is an observability aid; failures never fail the command.
func recordManualRun(cfg config.Config, printer *ui.Printer, m *matrix.Matrix, started time.Time) {
	ctx := context.Background()
	store, err := history.Open(ctx, cfg.HistoryFile())
	if err != nil {
		printer.Warnf("could not record run history: %v", err)
		return
	}
	defer store.Close()

	s := m.Statistics
	err = store.RecordRun(ctx, history.Run{
		ID:                 uuid.NewString(),
		StartedAt:          started,
		FinishedAt:         time.Now().UTC(),
		Trigger:            history.TriggerManual,
		Outcome:            history.OutcomeGenerated,
		TotalRequirements:  s.TotalRequirements,
		TestedRequirements: s.TestedRequirements,
		TotalTests:         s.TotalTests,
		PassingTests:       s.PassingTests,
		FailingTests:       s.FailingTests,
		Components:         s.Components,
		Coverage:           s.CoveragePercentage,
	})
	if err != nil {
		printer.Warnf("could not record run history: %v", err)
	}
}

func printStatistics(printer *ui.Printer, m *matrix.Matrix) {
	s := m.Statistics
	printer.Statf("requirements:  %d total, %d tested, %d untested", s.TotalRequirements, s.TestedRequirements, s.UntestedRequirements)
	printer.Statf("coverage:      %.1f%%", s.CoveragePercentage)
	printer.Statf("tests:         %d total, %d passing, %d failing", s.TotalTests, s.PassingTests, s.FailingTests)
	printer.Statf("components:    %d", s.Components)
}
