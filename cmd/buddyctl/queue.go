package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the offline report queue",
}

var queueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Queue a report locally without contacting the server",
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

		e.queue.Enqueue(cmd.Context(), report, skill)
		n, err := e.queue.Len(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d report(s) waiting to sync\n", n)
		return nil
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued reports in sync order",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		items, err := e.queue.List(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd, items)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tACTIVITY\tSKILL\tSCORE\tCOMPLETED\tSTATUS\tATTEMPTS\tLAST ERROR")
		for _, item := range items {
			status := "pending"
			if item.Rejected() {
				status = "rejected"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%s\t%d\t%s\n",
				item.Seq, item.ActivityID, item.SkillCode, item.Score,
				item.CompletedAt.Format(time.RFC3339), status, item.Attempts, item.LastError)
		}
		return w.Flush()
	},
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard queued reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		if rejected, _ := cmd.Flags().GetBool("rejected"); rejected {
			return e.queue.ClearRejected(cmd.Context())
		}
		return e.queue.Clear(cmd.Context())
	},
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Replay queued reports once",
	RunE:  runDrain,
}

func init() {
	addReportFlags(queueAddCmd)
	queueListCmd.Flags().Bool("json", false, "Print as JSON")
	queueClearCmd.Flags().Bool("rejected", false, "Only discard reports the server rejected")

	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueCmd.AddCommand(queueDrainCmd)
}
