package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List recent security-check jobs on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		jobs, err := appCtx.newClient().Jobs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No jobs.")
			return nil
		}
		return renderJobs(cmd.OutOrStdout(), jobs)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a running cracking job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		if err := appCtx.newClient().Cancel(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Cancellation requested for %s\n", colorSuccess("✓"), args[0])
		return nil
	},
}

func init() {
	jobsCmd.Flags().Int("limit", 20, "maximum number of jobs to list")
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cancelCmd)
}

func renderJobs(out io.Writer, jobs []job.Job) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTARGET\tPROGRESS\tSTARTED\tSTATUS")
	for _, j := range jobs {
		started := "-"
		if j.StartedAt != nil {
			started = j.StartedAt.Local().Format(time.DateTime)
		}
		target := j.Target.SSID
		if j.Target.BSSID != "" {
			target += " (" + j.Target.BSSID + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
			j.ID, j.Type, target, j.Progress, started, formatStatusWithColor(string(j.Status)))
	}
	return w.Flush()
}
