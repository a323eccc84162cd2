package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"skimmer/internal/trigger"
)

func newTriggerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <source>",
		Short: "Request an immediate scrape of one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return errors.New("source is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(cfg.Paths.TriggerDirs) == 0 {
				return errors.New("no trigger directories configured")
			}

			path := filepath.Join(cfg.Paths.TriggerDirs[0], trigger.FlagName(source))
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				return fmt.Errorf("write trigger flag: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Trigger written: %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "The scheduler will pick it up on its next poll")
			return nil
		},
	}
}
