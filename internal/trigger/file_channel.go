package trigger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"skimmer/internal/config"
)

const (
	flagPrefix = "trigger_scrape_"
	flagSuffix = ".flag"
)

// FileChannel watches directories for trigger_scrape_<source>.flag markers and
// reads the polling interval from a single-integer file. It is the filesystem
// realization of the Channel contract.
type FileChannel struct {
	dirs            []string
	intervalFile    string
	defaultInterval time.Duration
}

// NewFileChannel builds a file-backed channel from configuration.
func NewFileChannel(cfg *config.Config) *FileChannel {
	return &FileChannel{
		dirs:            append([]string(nil), cfg.Paths.TriggerDirs...),
		intervalFile:    cfg.Paths.IntervalFile,
		defaultInterval: time.Duration(cfg.Scheduler.DefaultInterval) * time.Second,
	}
}

// PendingTriggers scans every watched directory for marker files. Names are
// sorted per directory so runs are reproducible; the same name in two
// directories yields two independent triggers. Directories that do not exist
// are skipped silently.
func (c *FileChannel) PendingTriggers() ([]Trigger, error) {
	var triggers []Trigger
	for _, dir := range c.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return triggers, fmt.Errorf("scan trigger dir %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if source, ok := ParseFlagName(entry.Name()); ok && source != "" {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			source, _ := ParseFlagName(name)
			triggers = append(triggers, Trigger{
				Source: source,
				Path:   filepath.Join(dir, name),
			})
		}
	}
	return triggers, nil
}

// Consume deletes the marker file. A marker already gone is not an error; the
// request was honored or withdrawn either way.
func (c *FileChannel) Consume(t Trigger) error {
	if err := os.Remove(t.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("consume trigger %s: %w", t.Path, err)
	}
	return nil
}

// ReadInterval re-reads the interval file. Absent, unreadable, non-numeric, or
// negative content all mean the configured default; the scheduler never treats
// a bad setting as fatal.
func (c *FileChannel) ReadInterval() time.Duration {
	data, err := os.ReadFile(c.intervalFile)
	if err != nil {
		return c.defaultInterval
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || seconds < 0 {
		return c.defaultInterval
	}
	return time.Duration(seconds) * time.Second
}

// ParseFlagName recovers the source identifier from a marker filename by
// stripping the fixed prefix and suffix. Anything left over is accepted as-is;
// the scrape job validates identifiers itself.
func ParseFlagName(name string) (string, bool) {
	if !strings.HasPrefix(name, flagPrefix) || !strings.HasSuffix(name, flagSuffix) {
		return "", false
	}
	source := strings.TrimSuffix(strings.TrimPrefix(name, flagPrefix), flagSuffix)
	return source, true
}

// FlagName builds the marker filename for a source identifier.
func FlagName(source string) string {
	return flagPrefix + source + flagSuffix
}

var _ Channel = (*FileChannel)(nil)
