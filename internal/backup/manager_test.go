package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"skimmer/internal/logging"
	"skimmer/internal/testsupport"
)

func archiveMembers(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer file.Close()
	gz, err := gzip.NewReader(file)
	if err != nil {
		t.Fatalf("open gzip stream: %v", err)
	}
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read tar entry: %v", err)
		}
		names = append(names, header.Name)
	}
	sort.Strings(names)
	return names
}

func TestRunArchivesOnlyExistingCandidates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, "cricket_news", "https://example.com/a")

	if err := os.MkdirAll(filepath.Dir(cfg.Backup.CredentialsFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.Backup.CredentialsFile, []byte(`{"token":"x"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	appConfig := filepath.Join(testsupport.BaseDir(cfg), "app.toml")
	if err := os.WriteFile(appConfig, []byte("sources = []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Backup.ConfigFiles = []string{appConfig}
	// Service account file is configured but never created.

	report, err := NewManager(cfg, store, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.ArchivePath == "" {
		t.Fatal("expected an archive to be written")
	}

	if report.ArchiveBytes <= 0 {
		t.Fatalf("ArchiveBytes = %d, want > 0", report.ArchiveBytes)
	}
	got := archiveMembers(t, report.ArchivePath)
	want := []string{"app.toml", "credentials.json", "queue.db"}
	if len(got) != len(want) {
		t.Fatalf("archive members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("archive members = %v, want %v", got, want)
		}
	}
}

func TestSnapshotRemovedAfterRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, "cricket_news", "https://example.com/a")

	report, err := NewManager(cfg, store, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.ArchivePath == "" {
		t.Fatal("expected an archive to be written")
	}

	snapshot := filepath.Join(cfg.Paths.BackupDir, snapshotFileName)
	if _, err := os.Stat(snapshot); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("snapshot still present after run: %v", err)
	}
	if _, err := os.Stat(report.ArchivePath); err != nil {
		t.Fatalf("archive missing after run: %v", err)
	}
}

func TestArchiveRetentionWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Backup.RetentionDays = 7

	day := 24 * time.Hour
	fresh := filepath.Join(cfg.Paths.BackupDir, cfg.Backup.Prefix+"_20260828T000000Z.tar.gz")
	old1 := filepath.Join(cfg.Paths.BackupDir, cfg.Backup.Prefix+"_20260821T000000Z.tar.gz")
	old2 := filepath.Join(cfg.Paths.BackupDir, cfg.Backup.Prefix+"_20260820T000000Z.tar.gz")
	testsupport.WriteAgedFile(t, fresh, 1*day)
	testsupport.WriteAgedFile(t, old1, 8*day)
	testsupport.WriteAgedFile(t, old2, 9*day)

	report, err := NewManager(cfg, nil, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.ArchivesDeleted != 2 {
		t.Fatalf("ArchivesDeleted = %d, want 2", report.ArchivesDeleted)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh archive should survive: %v", err)
	}
	for _, gone := range []string{old1, old2} {
		if _, err := os.Stat(gone); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expired archive %s still present", gone)
		}
	}
}

func TestRecentLogWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Backup.RecentLogDays = 2
	cfg.Backup.LogRetentionDays = 30

	day := 24 * time.Hour
	testsupport.WriteAgedFile(t, filepath.Join(cfg.Paths.LogDir, "fresh.log"), 0)
	testsupport.WriteAgedFile(t, filepath.Join(cfg.Paths.LogDir, "stale.log"), 5*day)

	report, err := NewManager(cfg, nil, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got := archiveMembers(t, report.ArchivePath)
	if len(got) != 1 || got[0] != "logs/fresh.log" {
		t.Fatalf("archive members = %v, want [logs/fresh.log]", got)
	}
}

func TestLogFamiliesPrunedIndependently(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Backup.LogRetentionDays = 7

	day := 24 * time.Hour
	testsupport.WriteAgedFile(t, filepath.Join(cfg.Paths.LogDir, "a.log"), 8*day)
	testsupport.WriteAgedFile(t, filepath.Join(cfg.Paths.LogDir, "b.log"), 1*day)
	testsupport.WriteAgedFile(t, filepath.Join(cfg.Paths.LogDir, "c.jsonl"), 9*day)
	testsupport.WriteAgedFile(t, filepath.Join(cfg.Paths.LogDir, "d.jsonl"), 0)

	report, err := NewManager(cfg, nil, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.LogsDeleted != 1 {
		t.Fatalf("LogsDeleted = %d, want 1", report.LogsDeleted)
	}
	if report.JSONLogsDeleted != 1 {
		t.Fatalf("JSONLogsDeleted = %d, want 1", report.JSONLogsDeleted)
	}
	for _, kept := range []string{"b.log", "d.jsonl"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, kept)); err != nil {
			t.Fatalf("%s should survive retention: %v", kept, err)
		}
	}
}

func TestEmptyRunSucceedsWithoutArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	report, err := NewManager(cfg, nil, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.ArchivePath != "" {
		t.Fatalf("expected no archive, got %s", report.ArchivePath)
	}
}

func TestPreflightAbortsOnLowDisk(t *testing.T) {
	original := freeDiskPercent
	freeDiskPercent = func(string) (float64, error) { return 3, nil }
	t.Cleanup(func() { freeDiskPercent = original })

	cfg := testsupport.NewConfig(t)
	cfg.Backup.MinFreePercent = 10
	store := testsupport.MustOpenStore(t, cfg)

	_, err := NewManager(cfg, store, logging.NewNop()).Run(context.Background())
	if err == nil {
		t.Fatal("expected low-disk preflight to abort the run")
	}

	entries, readErr := os.ReadDir(cfg.Paths.BackupDir)
	if readErr == nil && len(entries) > 0 {
		t.Fatalf("expected no archive after aborted run, found %d entries", len(entries))
	}
}

type failingSnapshotter struct {
	path string
}

func (f *failingSnapshotter) SnapshotTo(context.Context, string) error {
	return errors.New("database is locked")
}

func (f *failingSnapshotter) Path() string { return f.path }

func TestSnapshotFallsBackToRawCopy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dbPath := filepath.Join(testsupport.BaseDir(cfg), "queue.db")
	if err := os.WriteFile(dbPath, []byte("raw database bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := NewManager(cfg, &failingSnapshotter{path: dbPath}, logging.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !report.SnapshotFallback {
		t.Fatal("expected raw-copy fallback to be reported")
	}
	got := archiveMembers(t, report.ArchivePath)
	if len(got) != 1 || got[0] != snapshotMemberName {
		t.Fatalf("archive members = %v, want [%s]", got, snapshotMemberName)
	}
}
