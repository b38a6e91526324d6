// Package refresh drives the periodic refresh cycle: clear cached result
// documents, fetch fresh ones from component CI workflows, rebuild the
// compliance matrix, and fall back to older data when nothing fresh is
// available.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/journalbrand/compliance/internal/config"
	"github.com/journalbrand/compliance/internal/ghcli"
	"github.com/journalbrand/compliance/internal/history"
	"github.com/journalbrand/compliance/internal/matrix"
	"github.com/journalbrand/compliance/internal/telemetry"
	"github.com/journalbrand/compliance/internal/ui"
	"github.com/journalbrand/compliance/internal/watch"
)

// ResultsFileName is the canonical per-component result document name that
// downloaded artifacts are moved into.
const ResultsFileName = "test-results.jsonld"

// ErrUnavailable indicates the whole fallback chain was exhausted: no fresh
// matrix, no pre-built artifact, no previous matrix, and no requirements.
var ErrUnavailable = errors.New("could not obtain compliance matrix or requirements")

// Orchestrator runs refresh cycles. GH and History may be nil; artifact
// fetching and run recording are then skipped.
type Orchestrator struct {
	Config  config.Config
	GH      *ghcli.Client
	Printer *ui.Printer
	Emitter *telemetry.Emitter
	History *history.Store
}

// EnsureDirs creates the results, reports, and dashboard directories,
// including one results subdirectory per configured component.
func (o *Orchestrator) EnsureDirs() error {
	dirs := []string{
		o.Config.ResultsPath(),
		o.Config.ReportsPath(),
		o.Config.DashboardPath(),
	}
	for _, name := range o.componentNames() {
		dirs = append(dirs, filepath.Join(o.Config.ResultsPath(), name))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("refresh: create %s: %w", dir, err)
		}
	}
	return nil
}

// componentNames returns the configured component names in lexicographic
// order, so every cycle processes components in the same order.
func (o *Orchestrator) componentNames() []string {
	names := make([]string, 0, len(o.Config.Components))
	for name := range o.Config.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClearCache deletes cached result documents and previously generated
// matrix files. The root requirements document is a durable source, never a
// cache, and is left alone. Individual deletion failures are warnings.
func (o *Orchestrator) ClearCache() {
	o.Printer.Refreshf("clearing cached JSON-LD files...")

	_ = filepath.WalkDir(o.Config.ResultsPath(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonld") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			o.Printer.Warnf("could not delete %s: %v", path, err)
		} else {
			o.Printer.Debugf("deleted %s", path)
		}
		return nil
	})

	for _, path := range []string{
		filepath.Join(o.Config.DashboardPath(), matrix.FileName),
		filepath.Join(o.Config.ReportsPath(), matrix.FileName),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.Printer.Warnf("could not delete %s: %v", path, err)
		}
	}

	_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindCacheCleared})
	o.Printer.OKf("cache cleared")
}

// FetchResults downloads each configured component's latest test-result
// artifact. A failure for one component never blocks the others; outcomes
// are recorded into state.
func (o *Orchestrator) FetchResults(ctx context.Context, runID string, state *State) {
	if o.GH == nil {
		return
	}
	for _, name := range o.componentNames() {
		cc := o.Config.Components[name]
		if err := o.fetchComponent(ctx, name, cc); err != nil {
			o.Printer.Warnf("%s: test results download failed: %v", name, err)
			state.SetComponent(name, ComponentState{Error: err.Error()})
			_ = o.Emitter.Emit(telemetry.Event{
				Kind: telemetry.KindFetchFailed, RunID: runID, Component: name,
				Data: map[string]string{"error": err.Error()},
			})
			continue
		}
		o.Printer.OKf("%s test results downloaded", name)
		state.SetComponent(name, ComponentState{Fetched: true, FetchedAt: time.Now().UTC()})
		_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindFetchDone, RunID: runID, Component: name})
	}
}

func (o *Orchestrator) fetchComponent(ctx context.Context, name string, cc config.ComponentConfig) error {
	o.Printer.Downloadf("%s: downloading test results from latest workflow run...", name)

	runID, err := o.GH.LatestRun(ctx, cc.Repo, cc.Workflow)
	if err != nil {
		return err
	}

	dir := filepath.Join(o.Config.ResultsPath(), name)
	if err := o.GH.DownloadArtifact(ctx, cc.Repo, runID, cc.Artifact, dir); err != nil {
		return err
	}

	// Artifacts may nest the document inside intermediate directories; find
	// it and settle it at the canonical per-component path.
	dest := filepath.Join(dir, ResultsFileName)
	found, err := findFile(dir, ResultsFileName)
	if err != nil {
		return err
	}
	if found != dest {
		if err := matrix.CopyFile(found, dest); err != nil {
			return err
		}
		if err := os.Remove(found); err != nil {
			o.Printer.Warnf("could not remove %s: %v", found, err)
		}
	}
	return nil
}

// findFile locates the first file named name anywhere under root.
func findFile(root, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%s not found in downloaded artifact", name)
	}
	return found, nil
}

// HasResults reports whether any result document exists under the results
// tree.
func (o *Orchestrator) HasResults() bool {
	found := false
	_ = filepath.WalkDir(o.Config.ResultsPath(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonld") {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// Generate runs one local aggregation pass and writes the matrix to the
// reports directory and the dashboard directory. The root requirements
// document is also mirrored into the dashboard so the front-end can render
// the full tree.
func (o *Orchestrator) Generate(now time.Time) (*matrix.Matrix, error) {
	gen := &matrix.Generator{
		RequirementsPath: o.Config.RequirementsFile(),
		ComponentsDir:    o.Config.ComponentsPath(),
		ResultsDir:       o.Config.ResultsPath(),
		Printer:          o.Printer,
	}
	m, err := gen.Generate(now)
	if err != nil {
		return nil, err
	}

	reportPath := filepath.Join(o.Config.ReportsPath(), matrix.FileName)
	if err := matrix.WriteDocument(m, reportPath); err != nil {
		return nil, err
	}
	if err := matrix.CopyFile(reportPath, filepath.Join(o.Config.DashboardPath(), matrix.FileName)); err != nil {
		return nil, err
	}
	if err := matrix.CopyFile(o.Config.RequirementsFile(), filepath.Join(o.Config.DashboardPath(), "requirements.jsonld")); err != nil {
		o.Printer.Warnf("could not mirror requirements into dashboard: %v", err)
	}
	return m, nil
}

// RunOnce executes one full refresh cycle: fetch fresh artifacts, rebuild
// the matrix, and fall back through progressively staler sources when a
// fresh build is impossible. The returned outcome is one of the
// history.Outcome values; the error is non-nil only when the whole chain
// was exhausted.
func (o *Orchestrator) RunOnce(ctx context.Context, trigger string) (string, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()

	state, err := LoadState(o.Config.ReportsPath())
	if err != nil {
		o.Printer.Warnf("could not load refresh state: %v", err)
		state = &State{Version: 1, Components: make(map[string]*ComponentState)}
	}

	_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindRefreshStart, RunID: runID, Data: map[string]string{"trigger": trigger}})

	if err := o.EnsureDirs(); err != nil {
		return history.OutcomeUnavailable, err
	}

	o.FetchResults(ctx, runID, state)

	outcome, m, runErr := o.produce(ctx, runID)

	finished := time.Now().UTC()
	o.recordRun(ctx, runID, started, finished, trigger, outcome, m, runErr)
	o.saveState(state, runID, finished, outcome, runErr)

	_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindRefreshDone, RunID: runID, Data: map[string]string{"outcome": outcome}})
	return outcome, runErr
}

// Regenerate rebuilds the matrix from local files only, without touching the
// network. Used when the results watcher reports a change.
func (o *Orchestrator) Regenerate(ctx context.Context, trigger string) error {
	runID := uuid.NewString()
	started := time.Now().UTC()

	m, err := o.Generate(started)
	if err != nil {
		o.Printer.Warnf("regeneration failed: %v", err)
	} else {
		o.Printer.OKf("compliance matrix regenerated from local results")
		_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindAggregateDone, RunID: runID})
	}

	outcome := history.OutcomeGenerated
	if err != nil {
		outcome = history.OutcomeUnavailable
	}
	o.recordRun(ctx, runID, started, time.Now().UTC(), trigger, outcome, m, err)
	return err
}

// produce builds or recovers a matrix, walking the fallback chain.
func (o *Orchestrator) produce(ctx context.Context, runID string) (string, *matrix.Matrix, error) {
	if o.HasResults() {
		o.Printer.Refreshf("generating fresh compliance matrix from test results...")
		m, err := o.Generate(time.Now())
		if err == nil {
			o.Printer.OKf("fresh compliance matrix generated from test results")
			_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindAggregateDone, RunID: runID})
			return history.OutcomeGenerated, m, nil
		}
		o.Printer.Warnf("error generating compliance matrix: %v", err)
	} else {
		o.Printer.Warnf("no test result files found")
	}

	// Fallback (a): download the pre-built matrix artifact.
	if o.GH != nil {
		if err := o.downloadPrebuilt(ctx); err != nil {
			o.Printer.Warnf("failed to download pre-built compliance matrix: %v", err)
		} else {
			o.Printer.OKf("downloaded pre-built compliance matrix")
			_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindFallbackUsed, RunID: runID, Data: map[string]string{"fallback": "prebuilt"}})
			return history.OutcomePrebuilt, nil, nil
		}
	}

	// Fallback (b): reuse a previously generated matrix.
	reportPath := filepath.Join(o.Config.ReportsPath(), matrix.FileName)
	if _, err := os.Stat(reportPath); err == nil {
		if err := matrix.CopyFile(reportPath, filepath.Join(o.Config.DashboardPath(), matrix.FileName)); err == nil {
			o.Printer.OKf("using existing compliance matrix")
			_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindFallbackUsed, RunID: runID, Data: map[string]string{"fallback": "reused_existing"}})
			return history.OutcomeReusedExisting, nil, nil
		}
	}

	// Fallback (c): serve requirements alone.
	if _, err := os.Stat(o.Config.RequirementsFile()); err == nil {
		if err := matrix.CopyFile(o.Config.RequirementsFile(), filepath.Join(o.Config.DashboardPath(), "requirements.jsonld")); err == nil {
			o.Printer.Infof("creating minimal dashboard from requirements only")
			_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindFallbackUsed, RunID: runID, Data: map[string]string{"fallback": "requirements_only"}})
			return history.OutcomeRequirementsOnly, nil, nil
		}
	}

	o.Printer.Errorf("could not obtain compliance matrix or requirements")
	_ = o.Emitter.Emit(telemetry.Event{Kind: telemetry.KindUnavailable, RunID: runID})
	return history.OutcomeUnavailable, nil, ErrUnavailable
}

// downloadPrebuilt fetches the matrix artifact built by the system repo's
// own CI into the dashboard directory.
func (o *Orchestrator) downloadPrebuilt(ctx context.Context) error {
	o.Printer.Downloadf("downloading latest compliance matrix artifact...")
	runID, err := o.GH.LatestRun(ctx, o.Config.SystemRepo, o.Config.MatrixWorkflow)
	if err != nil {
		return err
	}
	return o.GH.DownloadArtifact(ctx, o.Config.SystemRepo, runID, o.Config.MatrixArtifact, o.Config.DashboardPath())
}

func (o *Orchestrator) recordRun(ctx context.Context, runID string, started, finished time.Time, trigger, outcome string, m *matrix.Matrix, runErr error) {
	if o.History == nil {
		return
	}
	run := history.Run{
		ID:         runID,
		StartedAt:  started,
		FinishedAt: finished,
		Trigger:    trigger,
		Outcome:    outcome,
	}
	if m != nil {
		run.TotalRequirements = m.Statistics.TotalRequirements
		run.TestedRequirements = m.Statistics.TestedRequirements
		run.TotalTests = m.Statistics.TotalTests
		run.PassingTests = m.Statistics.PassingTests
		run.FailingTests = m.Statistics.FailingTests
		run.Components = m.Statistics.Components
		run.Coverage = m.Statistics.CoveragePercentage
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := o.History.RecordRun(ctx, run); err != nil {
		o.Printer.Warnf("could not record run history: %v", err)
	}
}

func (o *Orchestrator) saveState(state *State, runID string, finished time.Time, outcome string, runErr error) {
	state.Version = 1
	state.LastRun = finished
	state.LastRunID = runID
	state.Outcome = outcome
	state.Error = ""
	if runErr != nil {
		state.Error = runErr.Error()
	}
	if err := SaveState(o.Config.ReportsPath(), state); err != nil {
		o.Printer.Warnf("could not save refresh state: %v", err)
	}
}

// Run executes refresh cycles until ctx is canceled: one cycle per interval
// tick, plus a local-only regeneration whenever the results watcher reports
// a change. Changes may be nil when no watcher is running.
func (o *Orchestrator) Run(ctx context.Context, changes <-chan watch.Change) {
	interval := o.Config.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.Printer.Refreshf("auto-refreshing compliance matrix data...")
			_, _ = o.RunOnce(ctx, history.TriggerInterval)
			drain(changes)
		case _, ok := <-changes:
			if !ok {
				changes = nil // a nil channel blocks forever
				continue
			}
			drain(changes)
			_ = o.Regenerate(ctx, history.TriggerWatch)
		}
	}
}

// drain discards queued change notifications; the cycle that is about to
// run (or just ran) already sees their effect on disk.
func drain(changes <-chan watch.Change) {
	for {
		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
