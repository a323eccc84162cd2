package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"skimmer/internal/queue"
)

var statusDisplayOrder = []queue.Status{
	queue.StatusPending,
	queue.StatusClaimed,
	queue.StatusCompleted,
	queue.StatusFailed,
}

func newQueueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the scrape queue",
	}
	cmd.AddCommand(
		newQueueStatusCommand(ctx),
		newQueueListCommand(ctx),
		newQueueRetryCommand(ctx),
		newQueueHealthCommand(ctx),
	)
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return fmt.Errorf("read queue stats: %w", err)
				}
				sources, err := store.Sources(cmd.Context())
				if err != nil {
					return fmt.Errorf("read queue sources: %w", err)
				}

				rows := make([][]string, 0, len(statusDisplayOrder)+1)
				total := 0
				for _, status := range statusDisplayOrder {
					count := stats[status]
					total += count
					rows = append(rows, []string{string(status), strconv.Itoa(count)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out,
					[]string{"Status", "Items"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				if len(sources) > 0 {
					fmt.Fprintf(out, "Sources: %s\n", strings.Join(sourceLabels(sources), ", "))
				}
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				statuses := make([]queue.Status, 0, len(listStatuses))
				for _, raw := range listStatuses {
					statuses = append(statuses, queue.Status(strings.ToLower(strings.TrimSpace(raw))))
				}

				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					title := item.Title
					if title == "" {
						title = item.URL
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						sourceLabel(item.Source),
						title,
						string(item.Status),
						item.CreatedAt.UTC().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Source", "Title", "Status", "Created"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by queue status (repeatable)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [itemID...]",
		Short: "Retry failed queue items",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(store *queue.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					updated, err := store.RetryFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Retried %d failed items\n", updated)
					return nil
				}

				for _, id := range ids {
					updated, err := store.RetryFailed(cmd.Context(), id)
					if err != nil {
						return err
					}
					if updated > 0 {
						fmt.Fprintf(out, "Item %d reset for retry\n", id)
					} else {
						fmt.Fprintf(out, "Item %d is not in failed state\n", id)
					}
				}
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show queue database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists: %t\nReadable: %t\nTable present: %t\nIntegrity OK: %t\n",
					health.DatabaseExists,
					health.DatabaseReadable,
					health.TableExists,
					health.IntegrityCheck,
				)
				fmt.Fprintf(out, "Items: %d\n", health.TotalItems)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return nil
			})
		},
	}
}

// sourceLabels turns raw source identifiers like "cricket_news" into
// display labels like "Cricket News".
func sourceLabels(sources []string) []string {
	labels := make([]string, 0, len(sources))
	for _, source := range sources {
		labels = append(labels, sourceLabel(source))
	}
	return labels
}

func sourceLabel(source string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(source)
	return cases.Title(language.Und).String(strings.TrimSpace(cleaned))
}
