package main

import (
	"encoding/json"
	"fmt"
	"time"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/config"
	"studybuddy_backend/internal/offline"
	"studybuddy_backend/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "buddyctl",
	Short:         "StudyBuddy offline sync client",
	Long:          "buddyctl submits activity reports, queues them while the server is unreachable and replays them once it is back.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger.InitConsole(verbose)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "configs", "Directory containing config.yaml")
	flags.String("api-url", "", "Server base URL (overrides client.base_url)")
	flags.String("token", "", "Bearer token (overrides client.token / STUDYBUDDY_TOKEN)")
	flags.String("queue", "", "Path to the local SQLite file (overrides client.queue_path)")
	flags.BoolP("verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(tokenCmd)
}

// env 一次命令执行所需的配置、客户端和本地存储
type env struct {
	cfg    *config.Config
	api    *client.Client
	db     *gorm.DB
	queue  *offline.Queue
	cache  *offline.ActivityCache
	closer func()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.Client.BaseURL = v
	}
	if v, _ := cmd.Flags().GetString("token"); v != "" {
		cfg.Client.Token = v
	}
	if v, _ := cmd.Flags().GetString("queue"); v != "" {
		cfg.Client.QueuePath = v
	}
	return cfg, nil
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	db, err := offline.Open(cfg.Client.QueuePath)
	if err != nil {
		return nil, fmt.Errorf("open local store %s: %w", cfg.Client.QueuePath, err)
	}

	api := client.New(cfg.Client.BaseURL, cfg.Client.Token, 15*time.Second)
	return &env{
		cfg:   cfg,
		api:   api,
		db:    db,
		queue: offline.NewQueue(db, api),
		cache: offline.NewActivityCache(db),
		closer: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}

func (e *env) Close() {
	e.closer()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
