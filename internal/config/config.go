package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ComponentConfig describes one component whose test results are fetched
// from its CI workflow artifacts.
type ComponentConfig struct {
	Repo     string `mapstructure:"repo"`
	Workflow string `mapstructure:"workflow"`
	Artifact string `mapstructure:"artifact"`
}

// Config holds all runtime configuration for a compliance run.
// Values are populated from .compliance.yaml, COMPLIANCE_* env vars, and CLI flags.
type Config struct {
	GhPath           string                     `mapstructure:"gh_path"`
	BaseDir          string                     `mapstructure:"base_dir"`
	ResultsDir       string                     `mapstructure:"results_dir"`
	ReportsDir       string                     `mapstructure:"reports_dir"`
	DashboardDir     string                     `mapstructure:"dashboard_dir"`
	RequirementsPath string                     `mapstructure:"requirements_path"`
	ComponentsDir    string                     `mapstructure:"components_dir"`
	Port             int                        `mapstructure:"port"`
	RefreshInterval  time.Duration              `mapstructure:"refresh_interval"`
	GhTimeout        time.Duration              `mapstructure:"gh_timeout"`
	SystemRepo       string                     `mapstructure:"system_repo"`
	MatrixWorkflow   string                     `mapstructure:"matrix_workflow"`
	MatrixArtifact   string                     `mapstructure:"matrix_artifact"`
	HistoryPath      string                     `mapstructure:"history_path"`
	TelemetryPath    string                     `mapstructure:"telemetry_path"`
	OpenBrowser      bool                       `mapstructure:"open_browser"`
	Verbose          bool                       `mapstructure:"verbose"`
	Components       map[string]ComponentConfig `mapstructure:"components"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("gh_path", "gh")
	viper.SetDefault("base_dir", ".")
	viper.SetDefault("results_dir", "compliance/results")
	viper.SetDefault("reports_dir", "compliance/reports")
	viper.SetDefault("dashboard_dir", "compliance/dashboard")
	viper.SetDefault("requirements_path", "requirements/requirements.jsonld")
	viper.SetDefault("components_dir", "components")
	viper.SetDefault("port", 8000)
	viper.SetDefault("refresh_interval", 60*time.Second)
	viper.SetDefault("gh_timeout", 60*time.Second)
	viper.SetDefault("system_repo", "journalbrand/journaltrove-system")
	viper.SetDefault("matrix_workflow", "compliance-matrix.yml")
	viper.SetDefault("matrix_artifact", "compliance-matrix-jsonld")
	viper.SetDefault("history_path", "compliance/history.db")
	viper.SetDefault("telemetry_path", "dashboard.log")
	viper.SetDefault("open_browser", true)
	viper.SetDefault("verbose", false)
	viper.SetDefault("components", map[string]ComponentConfig{
		"ios": {
			Repo:     "journalbrand/journaltrove-ios",
			Workflow: "ci.yml",
			Artifact: "ios-test-results-jsonld",
		},
		"android": {
			Repo:     "journalbrand/journaltrove-android",
			Workflow: "ci.yml",
			Artifact: "android-test-results-jsonld",
		},
		"ipfs": {
			Repo:     "journalbrand/journaltrove-ipfs",
			Workflow: "ci.yml",
			Artifact: "ipfs-test-results-jsonld",
		},
	})

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}

// Resolve joins a configured path with the base directory. Absolute paths
// are returned unchanged.
func (c Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// ResultsPath returns the absolute results directory.
func (c Config) ResultsPath() string { return c.Resolve(c.ResultsDir) }

// ReportsPath returns the absolute reports directory.
func (c Config) ReportsPath() string { return c.Resolve(c.ReportsDir) }

// DashboardPath returns the absolute dashboard directory.
func (c Config) DashboardPath() string { return c.Resolve(c.DashboardDir) }

// RequirementsFile returns the absolute path of the root requirements document.
func (c Config) RequirementsFile() string { return c.Resolve(c.RequirementsPath) }

// ComponentsPath returns the absolute components directory, or "" when no
// components directory is configured.
func (c Config) ComponentsPath() string {
	if c.ComponentsDir == "" {
		return ""
	}
	return c.Resolve(c.ComponentsDir)
}

// HistoryFile returns the absolute path of the run-history database.
func (c Config) HistoryFile() string { return c.Resolve(c.HistoryPath) }

// TelemetryFile returns the absolute path of the JSONL event log.
func (c Config) TelemetryFile() string { return c.Resolve(c.TelemetryPath) }
