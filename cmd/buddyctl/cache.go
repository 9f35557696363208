package main

import (
	"fmt"
	"math/rand"
	"text/tabwriter"
	"time"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/offline"
	"studybuddy_backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage recently fetched activities kept for offline practice",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached activities, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		activities, err := e.cache.List(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACTIVITY\tSKILL\tTITLE\tCACHED")
		for _, a := range activities {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.ActivityID, a.SkillCode, a.Title, a.CachedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached activities",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return e.cache.Clear(cmd.Context())
	},
}

// next 在线时取推荐并缓存，离线时从缓存中随机挑一个
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Fetch the next recommended activity, or a cached one when offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		var activity offline.CachedActivity
		if hydrate, _ := cmd.Flags().GetBool("hydrate"); hydrate {
			res, err := e.api.Hydrate(cmd.Context())
			if err == nil {
				activity = offline.FromHydrate(res)
			}
			return cacheOrFallback(cmd, e, activity, err)
		}

		res, err := e.api.Next(cmd.Context())
		if err == nil {
			activity = offline.FromNext(res)
		}
		return cacheOrFallback(cmd, e, activity, err)
	},
}

func cacheOrFallback(cmd *cobra.Command, e *env, activity offline.CachedActivity, fetchErr error) error {
	if fetchErr == nil {
		if err := e.cache.Cache(cmd.Context(), activity); err != nil {
			logger.Log.Warn("Failed to cache activity", zap.Error(err))
		}
		return printJSON(cmd, activity)
	}
	if !client.IsRetryable(fetchErr) {
		return fetchErr
	}

	cached, err := e.cache.Random(cmd.Context(), rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return err
	}
	if cached == nil {
		return fmt.Errorf("server unreachable and no cached activities: %w", fetchErr)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Offline, picked a cached activity")
	return printJSON(cmd, cached)
}

func init() {
	nextCmd.Flags().Bool("hydrate", false, "Use the session starter instead of the next recommendation")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
