package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skimmer/internal/config"
	"skimmer/internal/fileutil"
	"skimmer/internal/logging"
)

// snapshotFileName is the transient on-disk copy; inside the archive the
// snapshot carries the live database's name.
const (
	snapshotFileName   = "queue.db.snapshot"
	snapshotMemberName = "queue.db"
)

// archiveTimestamp is the UTC layout embedded in archive filenames.
const archiveTimestamp = "20060102T150405Z"

// freeDiskPercent is a seam so tests can simulate a full disk.
var freeDiskPercent = fileutil.FreeDiskPercent

// Snapshotter produces a consistent copy of the queue database. Implemented
// by queue.Store.
type Snapshotter interface {
	SnapshotTo(ctx context.Context, destPath string) error
	Path() string
}

// Report summarizes a backup run for logging and CLI output.
type Report struct {
	// ArchivePath is empty when no candidates existed and no archive was
	// written.
	ArchivePath  string
	ArchiveBytes int64
	// Members lists archive-internal names in the order they were written.
	Members []string
	// SnapshotFallback is true when the online snapshot failed and the raw
	// database file was copied instead.
	SnapshotFallback bool
	ArchivesDeleted  int
	LogsDeleted      int
	JSONLogsDeleted  int
}

// Manager implements the backup and retention pass: snapshot the queue
// database, archive it with whichever state files currently exist, then
// enforce the archive and log retention windows.
type Manager struct {
	cfg    *config.Config
	store  Snapshotter
	logger *slog.Logger
}

// NewManager builds a backup manager. store may be nil when no queue database
// is available, in which case only state files are archived.
func NewManager(cfg *config.Config, store Snapshotter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "backup"),
	}
}

// Run performs one backup cycle. Retention runs even when nothing was
// archived; an empty candidate set is a warning, not an error. The database
// snapshot is removed before returning regardless of the outcome.
func (m *Manager) Run(ctx context.Context) (Report, error) {
	var report Report

	if err := m.preflight(); err != nil {
		return report, err
	}
	if err := os.MkdirAll(m.cfg.Paths.BackupDir, 0o755); err != nil {
		return report, fmt.Errorf("create backup directory: %w", err)
	}

	snapshotPath := filepath.Join(m.cfg.Paths.BackupDir, snapshotFileName)
	defer m.removeSnapshot(snapshotPath)

	members := m.collectCandidates(ctx, snapshotPath, &report)
	if len(members) == 0 {
		logging.WarnWithContext(m.logger, "no backup candidates found; skipping archive", "backup_empty",
			logging.String(logging.FieldErrorHint, "check backup.config_files and credential paths"),
			logging.String(logging.FieldImpact, "no archive written this cycle"),
		)
	} else {
		archivePath := filepath.Join(m.cfg.Paths.BackupDir,
			fmt.Sprintf("%s_%s.tar.gz", m.cfg.Backup.Prefix, time.Now().UTC().Format(archiveTimestamp)))
		if err := writeArchive(archivePath, members); err != nil {
			return report, fmt.Errorf("write backup archive: %w", err)
		}
		report.ArchivePath = archivePath
		if info, err := os.Stat(archivePath); err == nil {
			report.ArchiveBytes = info.Size()
		}
		for _, member := range members {
			report.Members = append(report.Members, member.Name)
		}
		m.logger.Info("backup archive written",
			logging.String(logging.FieldEventType, "backup_written"),
			logging.String("archive", archivePath),
			logging.Int("members", len(members)),
			logging.Int64("bytes", report.ArchiveBytes),
		)
	}

	m.enforceRetention(&report)
	return report, nil
}

// preflight rejects the run when the backup filesystem is low on space, so a
// near-full disk is not pushed over the edge by a new archive.
func (m *Manager) preflight() error {
	min := m.cfg.Backup.MinFreePercent
	if min <= 0 {
		return nil
	}
	probe := m.cfg.Paths.BackupDir
	if _, err := os.Stat(probe); err != nil {
		probe = filepath.Dir(probe)
	}
	pct, err := freeDiskPercent(probe)
	if err != nil {
		logging.WarnWithContext(m.logger, "free disk probe failed; continuing without preflight", "backup_preflight_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "low-disk protection skipped this cycle"),
		)
		return nil
	}
	if pct < float64(min) {
		return fmt.Errorf("insufficient free disk for backup: %.1f%% available, %d%% required", pct, min)
	}
	return nil
}

type candidate struct {
	// Name is the archive-internal path.
	Name string
	Path string
}

// collectCandidates assembles everything that exists right now: the database
// snapshot, credential and service-account files, configured state files, and
// any logs touched within the recent-log window. Absent files are skipped
// silently; they are conditional by design of the config surface.
func (m *Manager) collectCandidates(ctx context.Context, snapshotPath string, report *Report) []candidate {
	var members []candidate

	if m.snapshotDatabase(ctx, snapshotPath, report) {
		members = append(members, candidate{Name: snapshotMemberName, Path: snapshotPath})
	}

	stateFiles := make([]string, 0, 2+len(m.cfg.Backup.ConfigFiles))
	stateFiles = append(stateFiles, m.cfg.Backup.CredentialsFile, m.cfg.Backup.ServiceAccountFile)
	stateFiles = append(stateFiles, m.cfg.Backup.ConfigFiles...)
	for _, path := range stateFiles {
		if strings.TrimSpace(path) == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		members = append(members, candidate{Name: filepath.Base(path), Path: path})
	}

	members = append(members, m.recentLogs()...)
	return members
}

// snapshotDatabase runs the online snapshot, falling back to a verified raw
// copy when it fails. Reports whether a snapshot file was produced.
func (m *Manager) snapshotDatabase(ctx context.Context, snapshotPath string, report *Report) bool {
	if m.store == nil {
		return false
	}
	err := m.store.SnapshotTo(ctx, snapshotPath)
	if err == nil {
		return true
	}
	logging.WarnWithContext(m.logger, "online snapshot failed; falling back to raw copy", "snapshot_fallback",
		logging.Error(err),
		logging.String(logging.FieldImpact, "snapshot may include uncheckpointed WAL state"),
	)
	if err := fileutil.CopyFileVerified(m.store.Path(), snapshotPath); err != nil {
		logging.ErrorWithContext(m.logger, "database snapshot failed", "snapshot_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database path and backup directory permissions"),
		)
		return false
	}
	report.SnapshotFallback = true
	return true
}

// recentLogs returns log files modified within the recent-log window, stored
// under a logs/ prefix inside the archive.
func (m *Manager) recentLogs() []candidate {
	days := m.cfg.Backup.RecentLogDays
	if days <= 0 {
		return nil
	}
	entries, err := os.ReadDir(m.cfg.Paths.LogDir)
	if err != nil {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	var members []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".log") && !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			continue
		}
		members = append(members, candidate{
			Name: "logs/" + name,
			Path: filepath.Join(m.cfg.Paths.LogDir, name),
		})
	}
	return members
}

// enforceRetention prunes old archives and then the two log families
// independently, recording per-family counts on the report.
func (m *Manager) enforceRetention(report *Report) {
	archiveCounts := logging.CleanupOldLogs(m.logger, m.cfg.Backup.RetentionDays, logging.RetentionTarget{
		Dir:     m.cfg.Paths.BackupDir,
		Pattern: m.cfg.Backup.Prefix + "_*.tar.gz",
		Exclude: []string{report.ArchivePath},
	})
	report.ArchivesDeleted = archiveCounts[0]

	logCounts := logging.CleanupOldLogs(m.logger, m.cfg.Backup.LogRetentionDays,
		logging.RetentionTarget{Dir: m.cfg.Paths.LogDir, Pattern: "*.log"},
		logging.RetentionTarget{Dir: m.cfg.Paths.LogDir, Pattern: "*.jsonl"},
	)
	report.LogsDeleted = logCounts[0]
	report.JSONLogsDeleted = logCounts[1]

	m.logger.Info("retention pass completed",
		logging.String(logging.FieldEventType, "retention_completed"),
		logging.Int("archives_deleted", report.ArchivesDeleted),
		logging.Int("logs_deleted", report.LogsDeleted),
		logging.Int("json_logs_deleted", report.JSONLogsDeleted),
	)
}

func (m *Manager) removeSnapshot(snapshotPath string) {
	if err := os.Remove(snapshotPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(m.logger, "snapshot cleanup failed", "snapshot_cleanup_failed",
			logging.Error(err),
			logging.String("path", snapshotPath),
			logging.String(logging.FieldImpact, "stale snapshot left in backup directory"),
		)
	}
}
