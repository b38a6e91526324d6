package cmd

import (
	"context"
	"fmt"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/journalbrand/compliance/internal/config"
	"github.com/journalbrand/compliance/internal/dashboard"
	"github.com/journalbrand/compliance/internal/ghcli"
	"github.com/journalbrand/compliance/internal/history"
	"github.com/journalbrand/compliance/internal/refresh"
	"github.com/journalbrand/compliance/internal/telemetry"
	"github.com/journalbrand/compliance/internal/ui"
	"github.com/journalbrand/compliance/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard with periodic data refresh",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "dashboard port (overrides config)")
	serveCmd.Flags().Duration("interval", 0, "refresh interval (overrides config)")
	serveCmd.Flags().Bool("no-browser", false, "do not open the dashboard in a browser")
	serveCmd.Flags().Bool("local", false, "skip artifact downloads, use local files only")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	printer := ui.New(cfg.Verbose)

	if v, _ := cmd.Flags().GetInt("port"); v > 0 {
		cfg.Port = v
	}
	if v, _ := cmd.Flags().GetDuration("interval"); v > 0 {
		cfg.RefreshInterval = v
	}
	if v, _ := cmd.Flags().GetBool("no-browser"); v {
		cfg.OpenBrowser = false
	}
	local, _ := cmd.Flags().GetBool("local")

	printer.Banner("Compliance Dashboard")

	emitter, err := telemetry.NewEmitter(cfg.TelemetryFile())
	if err != nil {
		printer.Warnf("telemetry disabled: %v", err)
	} else {
		defer emitter.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := history.Open(ctx, cfg.HistoryFile())
	if err != nil {
		printer.Warnf("run history disabled: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	var gh *ghcli.Client
	if local {
		printer.Infof("local mode: skipping artifact downloads")
	} else {
		gh = &ghcli.Client{GhPath: cfg.GhPath, Timeout: cfg.GhTimeout, Verbose: cfg.Verbose}
		if err := gh.Validate(); err != nil {
			printer.Warnf("%v; continuing with local files only", err)
			gh = nil
		}
	}

	orch := &refresh.Orchestrator{
		Config:  cfg,
		GH:      gh,
		Printer: printer,
		Emitter: emitter,
		History: store,
	}

	orch.ClearCache()
	if err := orch.EnsureDirs(); err != nil {
		return err
	}
	if _, err := orch.RunOnce(ctx, history.TriggerStartup); err != nil {
		printer.Warnf("initial refresh incomplete: %v", err)
	}

	var changes <-chan watch.Change
	watcher, err := watch.NewWatcher(cfg.ResultsPath())
	if err != nil {
		printer.Warnf("results watcher disabled: %v", err)
	} else if err := watcher.Start(); err != nil {
		printer.Warnf("results watcher disabled: %v", err)
	} else {
		changes = watcher.Changes
		defer watcher.Stop()
	}

	srv := dashboard.New(cfg.DashboardPath(), cfg.Port, printer, emitter)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutCtx); err != nil {
			printer.Warnf("server shutdown: %v", err)
		}
	}()

	if cfg.OpenBrowser {
		openBrowser(printer, fmt.Sprintf("http://localhost:%d", srv.Port()))
	}

	printer.Infof("refreshing every %s; press Ctrl+C to stop", cfg.RefreshInterval)
	orch.Run(ctx, changes)

	printer.Infof("shutting down")
	return nil
}

// openBrowser opens url in the system default browser. Failure is only an
// inconvenience; the URL is printed either way.
func openBrowser(printer *ui.Printer, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		printer.Warnf("could not open browser: %v", err)
	}
}
