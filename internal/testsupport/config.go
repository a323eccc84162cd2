package testsupport

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"skimmer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.BackupDir = filepath.Join(base, "backups")
	cfgVal.Paths.TriggerDirs = []string{filepath.Join(base, "triggers")}
	cfgVal.Paths.IntervalFile = filepath.Join(base, "scrape_interval")
	cfgVal.Backup.CredentialsFile = filepath.Join(base, "secrets", "credentials.json")
	cfgVal.Backup.ServiceAccountFile = filepath.Join(base, "service_account.json")
	cfgVal.Backup.MinFreePercent = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTriggerDirs replaces the watched trigger directories on the test config.
func WithTriggerDirs(dirs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.TriggerDirs = dirs
	}
}

// WithSchedulerTiming shortens the loop timing knobs so tests run quickly.
func WithSchedulerTiming(intervalSecs, cooldownSecs, pollSecs int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.DefaultInterval = intervalSecs
		b.cfg.Scheduler.FailureCooldown = cooldownSecs
		b.cfg.Scheduler.TriggerPoll = pollSecs
	}
}

// WithStubbedJob writes a stub scrape-job executable that exits with the given
// code, prepends it to PATH, and points scheduler.job_binary at it.
func WithStubbedJob(exitCode int) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit " + strconv.Itoa(exitCode) + "\n")
		target := filepath.Join(binDir, "skimmer-scrape")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub job: %v", err)
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
		b.cfg.Scheduler.JobBinary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
