package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const itemColumns = `id, source, url, title, status, attempts, error_message, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		createdAt string
		updatedAt string
	)
	if err := row.Scan(
		&item.ID,
		&item.Source,
		&item.URL,
		&item.Title,
		&item.Status,
		&item.Attempts,
		&item.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	item.CreatedAt = parseTimestamp(createdAt)
	item.UpdatedAt = parseTimestamp(updatedAt)
	return &item, nil
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

// Enqueue inserts a pending item for a source. Re-enqueueing the same
// source/url pair is a no-op returning the existing item.
func (s *Store) Enqueue(ctx context.Context, source, url, title string) (*Item, error) {
	source = strings.TrimSpace(source)
	url = strings.TrimSpace(url)
	if source == "" {
		return nil, errors.New("source is required")
	}
	if url == "" {
		return nil, errors.New("url is required")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO scrape_queue (source, url, title, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(source, url) DO NOTHING`,
		source, url, title, StatusPending, timestamp, timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue item: %w", err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return s.findBySourceURL(ctx, source, url)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) findBySourceURL(ctx context.Context, source, url string) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM scrape_queue WHERE source = ? AND url = ? LIMIT 1`,
		source, url,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

// GetByID fetches a queue item by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM scrape_queue WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// NextPending claims the oldest pending item, optionally scoped to a source.
func (s *Store) NextPending(ctx context.Context, source string) (*Item, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + itemColumns + ` FROM scrape_queue WHERE status = ? ORDER BY id LIMIT 1`
	args := []any{StatusPending}
	if strings.TrimSpace(source) != "" {
		query = `SELECT ` + itemColumns + ` FROM scrape_queue WHERE status = ? AND source = ? ORDER BY id LIMIT 1`
		args = append(args, strings.TrimSpace(source))
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}

	if err := s.setStatus(ctx, item.ID, StatusClaimed, ""); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, item.ID)
}

// MarkCompleted transitions an item to completed.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	return s.setStatus(ctx, id, StatusCompleted, "")
}

// MarkFailed transitions an item to failed, recording the error and bumping the
// attempt counter.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE scrape_queue
         SET status = ?, error_message = ?, attempts = attempts + 1, updated_at = ?
         WHERE id = ?`,
		StatusFailed, strings.TrimSpace(message), timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res, id)
}

// RetryFailed resets failed items back to pending and returns the count.
// With no ids every failed item is reset; otherwise only the named items
// are considered, and items not currently failed are left untouched.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE scrape_queue SET status = ?, error_message = '', updated_at = ? WHERE status = ?`
	args := []any{StatusPending, timestamp, StatusFailed}
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND id IN (` + strings.Join(placeholders, ",") + `)`
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// List returns items, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM scrape_queue`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Sources returns the distinct source identifiers present in the queue.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT DISTINCT source FROM scrape_queue ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *Store) setStatus(ctx context.Context, id int64, status Status, message string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE scrape_queue SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, message, timestamp, id,
	)
	if err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("queue item %d not found", id)
	}
	return nil
}
