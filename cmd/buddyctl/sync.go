package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"studybuddy_backend/internal/offline"
	"studybuddy_backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued reports; with --watch keep syncing whenever the server comes back",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watch, _ := cmd.Flags().GetBool("watch"); !watch {
			return runDrain(cmd, args)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		interval := time.Duration(e.cfg.Client.PollIntervalSeconds) * time.Second
		if interval <= 0 {
			interval = 15 * time.Second
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w := offline.NewWatcher(e.api, e.queue, interval)
		w.OnDrain = func(result offline.DrainResult, err error) {
			if err != nil {
				logger.Log.Warn("Sync interrupted", zap.Error(err))
				return
			}
			printDrain(cmd, result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %s\n", e.cfg.Client.BaseURL, interval)
		return w.Run(ctx)
	},
}

func init() {
	syncCmd.Flags().Bool("watch", false, "Keep running and sync on reconnect")
}

func runDrain(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.queue.Drain(cmd.Context())
	if err != nil {
		return err
	}
	printDrain(cmd, result)
	return nil
}

func printDrain(cmd *cobra.Command, result offline.DrainResult) {
	if result.Synced == 0 && result.Failed == 0 && result.Rejected == 0 && result.Remaining == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "All caught up!")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Synced %d activity report(s)", result.Synced)
	if result.Remaining > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d item(s) still pending", result.Remaining)
	}
	if result.Rejected > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", %d rejected by the server (see queue list)", result.Rejected)
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
