package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skimmer/internal/backup"
	"skimmer/internal/logging"
	"skimmer/internal/queue"
)

func newBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Run one backup and retention pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			// The queue database is optional here: a host that has never
			// enqueued anything still gets its state files archived.
			var store *queue.Store
			if _, statErr := os.Stat(cfg.QueueDBPath()); statErr == nil {
				store, err = queue.Open(cfg)
				if err != nil {
					return fmt.Errorf("open queue store: %w", err)
				}
				defer store.Close()
			} else if !errors.Is(statErr, os.ErrNotExist) {
				return fmt.Errorf("stat queue database: %w", statErr)
			}

			var snapshotter backup.Snapshotter
			if store != nil {
				snapshotter = store
			}
			report, err := backup.NewManager(cfg, snapshotter, logger).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.ArchivePath == "" {
				fmt.Fprintln(out, "No backup candidates found; nothing archived")
			} else {
				fmt.Fprintf(out, "Archived %d file(s) to %s (%d bytes)\n",
					len(report.Members), report.ArchivePath, report.ArchiveBytes)
			}
			fmt.Fprintf(out, "Retention: %d archive(s), %d log(s), %d structured log(s) removed\n",
				report.ArchivesDeleted, report.LogsDeleted, report.JSONLogsDeleted)
			return nil
		},
	}
}
