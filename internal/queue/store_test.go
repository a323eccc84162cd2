package queue_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"skimmer/internal/queue"
	"skimmer/internal/testsupport"
)

func TestEnqueueAndFetch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.Enqueue(ctx, "cricket_shorts", "https://example.com/v/1", "Best catch")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("unexpected status: %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Source != "cricket_shorts" || fetched.Title != "Best catch" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestEnqueueDeduplicatesSourceURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.Enqueue(ctx, "memes", "https://example.com/v/7", "")
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	second, err := store.Enqueue(ctx, "memes", "https://example.com/v/7", "")
	if err != nil {
		t.Fatalf("duplicate Enqueue failed: %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Fatalf("expected duplicate to resolve to item %d, got %#v", first.ID, second)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 1 {
		t.Fatalf("expected one item after dedup, got %d", health.Total)
	}
}

func TestEnqueueRejectsMissingFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, "", "https://example.com", ""); err == nil {
		t.Fatal("expected error for missing source")
	}
	if _, err := store.Enqueue(ctx, "memes", "  ", ""); err == nil {
		t.Fatal("expected error for missing url")
	}
}

func TestNextPendingClaimsOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.Enqueue(t, store, "memes", "https://example.com/v/1")
	testsupport.Enqueue(t, store, "memes", "https://example.com/v/2")

	claimed, err := store.NextPending(ctx, "")
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected oldest item %d, got %#v", first.ID, claimed)
	}
	if claimed.Status != queue.StatusClaimed {
		t.Fatalf("expected claimed status, got %s", claimed.Status)
	}
}

func TestNextPendingScopedToSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.Enqueue(t, store, "cricket_shorts", "https://example.com/v/1")
	target := testsupport.Enqueue(t, store, "memes", "https://example.com/v/2")

	claimed, err := store.NextPending(ctx, "memes")
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if claimed == nil || claimed.ID != target.ID {
		t.Fatalf("expected memes item %d, got %#v", target.ID, claimed)
	}
}

func TestMarkFailedBumpsAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.Enqueue(t, store, "memes", "https://example.com/v/1")

	if err := store.MarkFailed(ctx, item.ID, "download timed out"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	failed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != queue.StatusFailed || failed.Attempts != 1 {
		t.Fatalf("unexpected failed item: %#v", failed)
	}
	if failed.ErrorMessage != "download timed out" {
		t.Fatalf("unexpected error message: %q", failed.ErrorMessage)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one retried item, got %d", count)
	}
	retried, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("unexpected retried item: %#v", retried)
	}
}

func TestRetryFailedScopedToIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.Enqueue(t, store, "memes", "https://example.com/v/1")
	second := testsupport.Enqueue(t, store, "memes", "https://example.com/v/2")
	for _, item := range []*queue.Item{first, second} {
		if err := store.MarkFailed(ctx, item.ID, "quota exceeded"); err != nil {
			t.Fatalf("MarkFailed failed: %v", err)
		}
	}

	count, err := store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one retried item, got %d", count)
	}

	untouched, err := store.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusFailed {
		t.Fatalf("item %d should still be failed, got %s", second.ID, untouched.Status)
	}

	// Retrying an item that is no longer failed is a no-op.
	count, err = store.RetryFailed(ctx, first.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no retried items, got %d", count)
	}
}

func TestSnapshotToProducesStandaloneDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.Enqueue(t, store, "memes", "https://example.com/v/1")
	testsupport.Enqueue(t, store, "cricket_shorts", "https://example.com/v/2")

	snapshotPath := filepath.Join(testsupport.BaseDir(cfg), "queue.db.snapshot")
	if err := store.SnapshotTo(ctx, snapshotPath); err != nil {
		t.Fatalf("SnapshotTo failed: %v", err)
	}

	snap, err := queue.OpenPath(snapshotPath)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer snap.Close()

	health, err := snap.Health(ctx)
	if err != nil {
		t.Fatalf("snapshot Health failed: %v", err)
	}
	if health.Total != 2 {
		t.Fatalf("expected snapshot to carry 2 items, got %d", health.Total)
	}
}

func TestSnapshotToReplacesStaleFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	snapshotPath := filepath.Join(testsupport.BaseDir(cfg), "queue.db.snapshot")
	if err := os.WriteFile(snapshotPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("write stale snapshot: %v", err)
	}

	if err := store.SnapshotTo(context.Background(), snapshotPath); err != nil {
		t.Fatalf("SnapshotTo failed: %v", err)
	}
	info, err := os.Stat(snapshotPath)
	if err != nil {
		t.Fatalf("stat snapshot: %v", err)
	}
	if info.Size() <= int64(len("stale")) {
		t.Fatalf("snapshot looks stale: %d bytes", info.Size())
	}
}

func TestCheckHealthReportsIntegrity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %#v", health)
	}
	if !health.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}
