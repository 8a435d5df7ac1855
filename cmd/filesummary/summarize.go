package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/memohai/filesummary/internal/config"
	"github.com/memohai/filesummary/internal/logger"
	"github.com/memohai/filesummary/internal/summary"
)

func newSummarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <file>",
		Short: "Summarize a local file with the configured AI backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			config.WarnIncomplete(logger.L, &cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, closeFn, err := buildSummaryClient(ctx, logger.L, cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			if !client.Enabled() {
				return summary.ErrDisabled
			}
			text, err := client.SummarizeFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
