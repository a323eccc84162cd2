package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"skimmer/internal/config"
	"skimmer/internal/daemon"
	"skimmer/internal/ingest"
	"skimmer/internal/logging"
	"skimmer/internal/queue"
	"skimmer/internal/scheduler"
	"skimmer/internal/trigger"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the skimmer daemon runtime loop and blocks until SIGINT or
// SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405Z")
	instanceID := uuid.NewString()
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("skimmer-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update skimmer.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "skimmer-*.log", Exclude: []string{logPath}},
	)

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	runner := ingest.NewCLI(cfg.Scheduler.JobBinary, cfg.JobLogPath(),
		ingest.WithTimeout(cfg.Scheduler.JobTimeoutDuration()))
	loop := scheduler.New(cfg, trigger.NewFileChannel(cfg), runner, logger)

	d, err := daemon.New(cfg, store, logger, loop)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	logger.Info("skimmer runtime starting",
		logging.String(logging.FieldEventType, "runtime_starting"),
		logging.String("run_id", runID),
		logging.String("instance_id", instanceID),
		logging.String("job_binary", cfg.Scheduler.JobBinary),
	)

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("skimmer daemon shutting down", logging.String(logging.FieldEventType, "runtime_stopping"))
	return nil
}

// ensureCurrentLogPointer keeps <log_dir>/skimmer.log pointing at the current
// per-run log file. Falls back to a hard link on filesystems without symlinks.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "skimmer.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}
