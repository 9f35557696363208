package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/offline"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Submit an activity report, queueing it if the server is unreachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, skill, err := reportFromFlags(cmd)
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		rec := offline.NewRecorder(e.api, e.queue, e.cache)
		result, queued, err := rec.Record(cmd.Context(), report, skill)
		if err != nil {
			return err
		}
		if queued {
			n, _ := e.queue.Len(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Saved offline, %d report(s) waiting to sync\n", n)
			return nil
		}
		return printJSON(cmd, result)
	},
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("activity", "", "Activity ID (uuid)")
	cmd.Flags().Float64("score", 0, "Score in [0,1]")
	cmd.Flags().Int("time", 0, "Time spent in seconds")
	cmd.Flags().String("skill", "", "Skill code, keeps queued reports for one skill in order")
	cmd.Flags().StringSlice("meta", nil, "Metadata as key=value, repeatable")
	cmd.Flags().String("completed-at", "", "Completion time (RFC3339), defaults to now")
	cmd.MarkFlagRequired("activity")
	cmd.MarkFlagRequired("score")
	cmd.MarkFlagRequired("time")
}

func init() {
	addReportFlags(reportCmd)
}

func reportFromFlags(cmd *cobra.Command) (*client.Report, string, error) {
	activityID, _ := cmd.Flags().GetString("activity")
	score, _ := cmd.Flags().GetFloat64("score")
	timeSpent, _ := cmd.Flags().GetInt("time")
	skill, _ := cmd.Flags().GetString("skill")
	metaPairs, _ := cmd.Flags().GetStringSlice("meta")
	completedAt, _ := cmd.Flags().GetString("completed-at")

	report := &client.Report{
		ActivityID:   activityID,
		Score:        score,
		TimeSpentSec: timeSpent,
	}

	if len(metaPairs) > 0 {
		report.Metadata = make(map[string]interface{}, len(metaPairs))
		for _, pair := range metaPairs {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return nil, "", fmt.Errorf("invalid metadata %q, expected key=value", pair)
			}
			report.Metadata[key] = parseScalar(value)
		}
	}

	if completedAt != "" {
		t, err := time.Parse(time.RFC3339, completedAt)
		if err != nil {
			return nil, "", fmt.Errorf("invalid --completed-at: %w", err)
		}
		report.CompletedAt = &t
	} else {
		now := time.Now()
		report.CompletedAt = &now
	}

	return report, skill, nil
}

// parseScalar 数字和布尔值按原类型发送，其余作为字符串
func parseScalar(s string) interface{} {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
