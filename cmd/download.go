package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/journalbrand/compliance/internal/config"
	"github.com/journalbrand/compliance/internal/ghcli"
	"github.com/journalbrand/compliance/internal/ui"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the latest pre-built compliance matrix artifact",
	RunE:  runDownload,
}

func init() {
	downloadCmd.Flags().String("repo", "", "repository whose workflow builds the matrix")
	downloadCmd.Flags().String("output", "", "directory to download the artifact into")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New(cfg.Verbose)

	repo := cfg.SystemRepo
	if v, _ := cmd.Flags().GetString("repo"); v != "" {
		repo = v
	}
	output := cfg.DashboardPath()
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		output = v
	}

	gh := &ghcli.Client{GhPath: cfg.GhPath, Timeout: cfg.GhTimeout, Verbose: cfg.Verbose}
	if err := gh.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gh.AuthStatus(ctx); err != nil {
		return err
	}

	printer.Downloadf("finding latest successful %s run in %s...", cfg.MatrixWorkflow, repo)
	runID, err := gh.LatestRun(ctx, repo, cfg.MatrixWorkflow)
	if err != nil {
		return err
	}
	printer.Infof("latest successful run: %s", runID)

	if err := gh.DownloadArtifact(ctx, repo, runID, cfg.MatrixArtifact, output); err != nil {
		return err
	}
	printer.OKf("compliance matrix downloaded to %s", output)
	return nil
}
