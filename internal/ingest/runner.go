package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Runner abstracts the external scrape job so the scheduler loop can be tested
// without spawning processes.
type Runner interface {
	// RunSource scrapes one source: `job --source <id>`.
	RunSource(ctx context.Context, source string) error
	// RunBatch processes every source with pending work: `job --batch`.
	RunBatch(ctx context.Context) error
}

// ExitError reports a scrape job that ran but exited non-zero.
type ExitError struct {
	Code int
	Args []string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("scrape job %s exited with status %d", strings.Join(e.Args, " "), e.Code)
}

// Option configures the CLI runner.
type Option func(*CLI)

// WithTimeout bounds each job invocation. Zero means no limit.
func WithTimeout(timeout time.Duration) Option {
	return func(c *CLI) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// CLI invokes the scrape job binary, appending its combined output to the
// shared job log so all runs land in one place.
type CLI struct {
	binary  string
	logPath string
	timeout time.Duration
}

// NewCLI constructs a runner for the given binary and shared log file.
func NewCLI(binary, logPath string, opts ...Option) *CLI {
	cli := &CLI{binary: binary, logPath: logPath}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// RunSource invokes the job scoped to a single source.
func (c *CLI) RunSource(ctx context.Context, source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return errors.New("source is required")
	}
	return c.run(ctx, "--source", source)
}

// RunBatch invokes the job for all pending work.
func (c *CLI) RunBatch(ctx context.Context) error {
	return c.run(ctx, "--batch")
}

func (c *CLI) run(ctx context.Context, args ...string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	logFile, err := c.openLog()
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Args: append([]string{c.binary}, args...)}
		}
		return fmt.Errorf("run scrape job: %w", err)
	}
	return nil
}

func (c *CLI) openLog() (*os.File, error) {
	if strings.TrimSpace(c.logPath) == "" {
		return nil, nil
	}
	if dir := filepath.Dir(c.logPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure job log dir: %w", err)
		}
	}
	file, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job log %s: %w", c.logPath, err)
	}
	return file, nil
}

var _ Runner = (*CLI)(nil)
