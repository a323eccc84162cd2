package main

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"skimmer/internal/queue"
	"skimmer/internal/testsupport"
)

func TestQueueStatusShowsCounts(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.Enqueue(t, store, "cricket_news", "https://example.com/a")
	testsupport.Enqueue(t, store, "match_highlights", "https://example.com/b")
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "pending")
	requireContains(t, out, "2")
	requireContains(t, out, "Cricket News")
	requireContains(t, out, "Match Highlights")
}

func TestQueueStatusEmptyQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "total")
}

func TestQueueListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, env.cfg)
	keep := testsupport.Enqueue(t, store, "cricket_news", "https://example.com/a")
	drop := testsupport.Enqueue(t, store, "memes", "https://example.com/b")
	if err := store.MarkFailed(ctx, drop.ID, "download timed out"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "list", "--status", "pending"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, keep.URL)
	if strings.Contains(out, drop.URL) {
		t.Fatalf("failed item leaked into pending listing:\n%s", out)
	}
}

func TestQueueListEmptyQueue(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueRetryResetsFailedItems(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	store := testsupport.MustOpenStore(t, env.cfg)
	item := testsupport.Enqueue(t, store, "memes", "https://example.com/a")
	if err := store.MarkFailed(ctx, item.ID, "rate limited"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Retried 1 failed items")

	store = testsupport.MustOpenStore(t, env.cfg)
	defer store.Close()
	retried, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", retried.Status)
	}
}

func TestQueueRetrySpecificItemNotFailed(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	item := testsupport.Enqueue(t, store, "memes", "https://example.com/a")
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	id := strconv.FormatInt(item.ID, 10)
	out, _, err := runCLI(t, []string{"queue", "retry", id}, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Item "+id+" is not in failed state")
}

func TestQueueRetryRejectsBadID(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"queue", "retry", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected an error for a non-numeric item id")
	}
}

func TestQueueHealthReportsDatabaseState(t *testing.T) {
	env := setupCLITestEnv(t)

	store := testsupport.MustOpenStore(t, env.cfg)
	testsupport.Enqueue(t, store, "memes", "https://example.com/a")
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Integrity OK: true")
	requireContains(t, out, "Items: 1")
}

func TestSourceLabels(t *testing.T) {
	got := sourceLabels([]string{"cricket_news", "match-highlights", "live"})
	want := []string{"Cricket News", "Match Highlights", "Live"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sourceLabels[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
