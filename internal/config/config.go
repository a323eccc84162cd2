package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and control-file configuration.
type Paths struct {
	DataDir      string   `toml:"data_dir"`
	LogDir       string   `toml:"log_dir"`
	BackupDir    string   `toml:"backup_dir"`
	TriggerDirs  []string `toml:"trigger_dirs"`
	IntervalFile string   `toml:"interval_file"`
}

// Scheduler contains configuration for the polling loop.
type Scheduler struct {
	DefaultInterval int    `toml:"default_interval"`
	FailureCooldown int    `toml:"failure_cooldown"`
	TriggerPoll     int    `toml:"trigger_poll"`
	JobBinary       string `toml:"job_binary"`
	JobTimeout      int    `toml:"job_timeout"`
}

// Backup contains configuration for the backup and retention manager.
type Backup struct {
	Prefix             string   `toml:"prefix"`
	RetentionDays      int      `toml:"retention_days"`
	LogRetentionDays   int      `toml:"log_retention_days"`
	RecentLogDays      int      `toml:"recent_log_days"`
	CredentialsFile    string   `toml:"credentials_file"`
	ServiceAccountFile string   `toml:"service_account_file"`
	ConfigFiles        []string `toml:"config_files"`
	MinFreePercent     int      `toml:"min_free_percent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Skimmer.
//
// Configuration sections by subsystem:
//   - Paths: data/log/backup directories, trigger directories, interval file
//   - Scheduler: polling cadence, failure cooldown, scrape job invocation
//   - Backup: archive prefix, retention windows, candidate state files
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Scheduler Scheduler `toml:"scheduler"`
	Backup    Backup    `toml:"backup"`
	Logging   Logging   `toml:"logging"`
}

// DefaultIntervalDuration returns the batch interval used when the interval
// file is absent or unreadable.
func (s Scheduler) DefaultIntervalDuration() time.Duration {
	return time.Duration(s.DefaultInterval) * time.Second
}

// FailureCooldownDuration returns the pause applied after a failed cycle.
func (s Scheduler) FailureCooldownDuration() time.Duration {
	return time.Duration(s.FailureCooldown) * time.Second
}

// TriggerPollDuration returns the cadence at which the idle sleep checks for
// new trigger flags.
func (s Scheduler) TriggerPollDuration() time.Duration {
	return time.Duration(s.TriggerPoll) * time.Second
}

// JobTimeoutDuration returns the per-invocation scrape job bound. Zero means
// unlimited.
func (s Scheduler) JobTimeoutDuration() time.Duration {
	return time.Duration(s.JobTimeout) * time.Second
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/skimmer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/skimmer/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("skimmer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// Trigger directories are created on a best-effort basis because external
// actors may mount or remove them independently of the scheduler.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	for _, dir := range c.Paths.TriggerDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		_ = os.MkdirAll(dir, 0o755)
	}
	return nil
}

// QueueDBPath returns the location of the queue database file.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// JobLogPath returns the shared log file that scrape job output is appended to.
func (c *Config) JobLogPath() string {
	return filepath.Join(c.Paths.LogDir, "scrape-jobs.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
