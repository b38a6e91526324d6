// Package ghcli wraps the GitHub CLI (gh) for listing workflow runs and
// downloading their artifacts. The tool is an optional environment
// dependency: when it is missing, callers degrade to local-file-only
// operation where possible.
package ghcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotInstalled indicates gh is not on PATH (or not at the configured path).
var ErrNotInstalled = errors.New("GitHub CLI (gh) not found")

// ErrNotAuthenticated indicates gh is installed but `gh auth status` failed.
var ErrNotAuthenticated = errors.New("GitHub CLI is not authenticated")

// ErrNoRuns indicates a workflow has no successful completed runs.
var ErrNoRuns = errors.New("no successful workflow runs found")

// DefaultTimeout bounds each gh invocation so a wedged download cannot
// stall the refresh cycle.
const DefaultTimeout = 60 * time.Second

// Client invokes the GitHub CLI.
type Client struct {
	GhPath  string
	Timeout time.Duration
	Verbose bool
}

// workflowRun mirrors the fields requested from `gh run list --json`.
type workflowRun struct {
	DatabaseID int64     `json:"databaseId"`
	Conclusion string    `json:"conclusion"`
	CreatedAt  time.Time `json:"createdAt"`
}

// buildListArgs constructs the CLI arguments for listing recent completed
// runs of a workflow.
func buildListArgs(repo, workflow string) []string {
	return []string{
		"run", "list",
		"--repo", repo,
		"--workflow", workflow,
		"--status", "completed",
		"--limit", "5",
		"--json", "databaseId,conclusion,createdAt",
	}
}

// buildDownloadArgs constructs the CLI arguments for downloading one named
// artifact of a run into dir.
func buildDownloadArgs(repo, runID, name, dir string) []string {
	return []string{
		"run", "download", runID,
		"--repo", repo,
		"--name", name,
		"--dir", dir,
	}
}

// Validate checks that the gh binary is present and runnable.
func (c *Client) Validate() error {
	cmd := exec.Command(c.GhPath, "--version")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("%w at %q: %v", ErrNotInstalled, c.GhPath, err)
	}
	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[gh] version: %s", firstLine(out))
	}
	return nil
}

// AuthStatus checks that gh is authenticated. Used as a preflight by the
// download command, which cannot fall back to local files.
func (c *Client) AuthStatus(ctx context.Context) error {
	_, err := c.run(ctx, "auth", "status")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	return nil
}

// LatestRun returns the database ID of the most recent successful completed
// run of the given workflow, as a decimal string.
func (c *Client) LatestRun(ctx context.Context, repo, workflow string) (string, error) {
	out, err := c.run(ctx, buildListArgs(repo, workflow)...)
	if err != nil {
		return "", fmt.Errorf("ghcli: list runs for %s/%s: %w", repo, workflow, err)
	}

	var runs []workflowRun
	if err := json.Unmarshal(out, &runs); err != nil {
		return "", fmt.Errorf("ghcli: parse run list output: %w", err)
	}

	id, err := pickLatestSuccessful(runs)
	if err != nil {
		return "", fmt.Errorf("%w for %s/%s", err, repo, workflow)
	}
	return id, nil
}

// pickLatestSuccessful filters for successful runs and returns the newest
// one's ID. Split out for testing without a gh binary.
func pickLatestSuccessful(runs []workflowRun) (string, error) {
	var successful []workflowRun
	for _, r := range runs {
		if r.Conclusion == "success" {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		return "", ErrNoRuns
	}
	sort.Slice(successful, func(i, j int) bool {
		return successful[i].CreatedAt.After(successful[j].CreatedAt)
	})
	return strconv.FormatInt(successful[0].DatabaseID, 10), nil
}

// DownloadArtifact downloads the named artifact of a run into dir.
func (c *Client) DownloadArtifact(ctx context.Context, repo, runID, name, dir string) error {
	if _, err := c.run(ctx, buildDownloadArgs(repo, runID, name, dir)...); err != nil {
		return fmt.Errorf("ghcli: download artifact %q from run %s: %w", name, runID, err)
	}
	return nil
}

// run executes gh with the given arguments under the client timeout.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.GhPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[gh] running: %s %s\n", c.GhPath, strings.Join(args, " "))
	}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%v\nstderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

func firstLine(out []byte) string {
	s := string(out)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i+1]
	}
	return s + "\n"
}
