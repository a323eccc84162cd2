package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"skimmer/internal/config"
	"skimmer/internal/logging"
	"skimmer/internal/queue"
	"skimmer/internal/scheduler"
)

// Daemon runs the scheduler loop in the background and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	loop   *scheduler.Loop

	lockPath string
	pidPath  string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	QueueDBPath  string
	LockFilePath string
	PIDFilePath  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, loop *scheduler.Loop) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || loop == nil {
		return nil, errors.New("daemon requires config, store, logger, and scheduler loop")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "skimmerd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		loop:     loop,
		lockPath: lockPath,
		pidPath:  filepath.Join(cfg.Paths.LogDir, "skimmerd.pid"),
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, records the pid, and launches the scheduler
// loop in a background goroutine.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another skimmer daemon instance is already running")
	}

	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.loop.Run(runCtx); err != nil {
			logging.ErrorWithContext(d.logger, "scheduler loop exited", "scheduler_exited",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the daemon after resolving the failure"),
			)
		}
	}()

	d.logger.Info("skimmer daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
	)
	return nil
}

// Stop cancels the scheduler loop, waits for it to finish, and releases the
// lock and pid file. Safe to call more than once.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("skimmer daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon, including the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for CLI display.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		PIDFilePath:  d.pidPath,
	}
}
