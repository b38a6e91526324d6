package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/journalbrand/compliance/internal/config"
	"github.com/journalbrand/compliance/internal/history"
	"github.com/journalbrand/compliance/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent aggregation runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of runs to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New(cfg.Verbose)
	limit, _ := cmd.Flags().GetInt("limit")

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.HistoryFile())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printer.Infof("no runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTRIGGER\tOUTCOME\tREQS\tTESTED\tCOVERAGE\tTESTS\tPASS\tFAIL\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.1f%%\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Trigger, r.Outcome,
			r.TotalRequirements, r.TestedRequirements, r.Coverage,
			r.TotalTests, r.PassingTests, r.FailingTests,
			r.Error,
		)
	}
	return w.Flush()
}
