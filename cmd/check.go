package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/khanhnv2901/wisafe/internal/checker"
	"github.com/khanhnv2901/wisafe/internal/client"
	"github.com/khanhnv2901/wisafe/internal/domain/job"
	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/spf13/cobra"
)

// cancelTimeout bounds the cancel request sent after Ctrl+C.
const cancelTimeout = 5 * time.Second

var checkCmd = &cobra.Command{
	Use:   "check <ssid>",
	Short: "Run a security check against a network from the last scan",
	Long: `Run a security check against a network from the last expert scan.

Catalog networks receive an immediate verdict. Live networks start a cracking
job on the server whose progress is polled until it finishes; Ctrl+C cancels
the job.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		bssid, _ := cmd.Flags().GetString("bssid")
		detach, _ := cmd.Flags().GetBool("detach")

		cache := appCtx.networkCache()
		list, err := cache.Load()
		if err != nil {
			return err
		}
		rec, err := selectNetwork(list, args[0], bssid)
		if err != nil {
			return err
		}

		c := appCtx.newClient()
		out := cmd.OutOrStdout()
		res, err := c.SecurityCheck(cmd.Context(), rec)
		if err != nil {
			return err
		}

		if res.Result != nil {
			renderVerdict(out, rec, res.Result)
			if err := list.ApplyCheckStatus(rec.Key(), res.Result.CheckStatus()); err != nil {
				return err
			}
			return cache.Save(list)
		}

		if res.CrackingID == "" {
			return errors.New("server returned neither a verdict nor a cracking job")
		}
		fmt.Fprintf(out, "%s Cracking job %s started for %s (%s)\n", colorInfo("→"), res.CrackingID, rec.SSID, rec.Protocol)
		if detach {
			fmt.Fprintf(out, "Follow it with: wisafe progress %s --bssid %s %s\n", res.CrackingID, rec.BSSID, rec.SSID)
			return nil
		}
		return followCrack(cmd.Context(), appCtx, c, list, rec, res.CrackingID, out)
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <job-id> [ssid]",
	Short: "Follow a cracking job until it finishes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		bssid, _ := cmd.Flags().GetString("bssid")
		c := appCtx.newClient()

		var (
			list *network.List
			rec  network.Record
		)
		if len(args) == 2 {
			list, err = appCtx.networkCache().Load()
			if err != nil {
				return err
			}
			if rec, err = selectNetwork(list, args[1], bssid); err != nil {
				return err
			}
		}
		return followCrack(cmd.Context(), appCtx, c, list, rec, args[0], cmd.OutOrStdout())
	},
}

var krackCmd = &cobra.Command{
	Use:   "krack <ssid>",
	Short: "Check a WPA2 network from the last scan for key reinstallation (KRACK)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		bssid, _ := cmd.Flags().GetString("bssid")

		cache := appCtx.networkCache()
		list, err := cache.Load()
		if err != nil {
			return err
		}
		rec, err := selectNetwork(list, args[0], bssid)
		if err != nil {
			return err
		}

		result, err := appCtx.newClient().Krack(cmd.Context(), rec)
		if err != nil {
			return err
		}
		renderKrack(cmd.OutOrStdout(), result)
		if err := list.ApplyKrackResult(rec.Key(), result.Vulnerable); err != nil {
			return err
		}
		return cache.Save(list)
	},
}

func init() {
	for _, c := range []*cobra.Command{checkCmd, progressCmd, krackCmd} {
		c.Flags().String("bssid", "", "select the access point when several share the SSID")
	}
	checkCmd.Flags().Bool("detach", false, "start the cracking job and return without following it")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(krackCmd)
}

// selectNetwork finds the record for ssid, narrowed by bssid when given.
func selectNetwork(list *network.List, ssid, bssid string) (network.Record, error) {
	var matches []network.Record
	for _, r := range list.Records() {
		if r.SSID != ssid {
			continue
		}
		if bssid != "" && !strings.EqualFold(r.BSSID, bssid) {
			continue
		}
		matches = append(matches, r)
	}
	switch len(matches) {
	case 0:
		return network.Record{}, &NetworkNotFoundError{SSID: ssid, BSSID: bssid}
	case 1:
		return matches[0], nil
	}
	bssids := make([]string, 0, len(matches))
	for _, m := range matches {
		bssids = append(bssids, m.BSSID)
	}
	return network.Record{}, &AmbiguousNetworkError{SSID: ssid, BSSIDs: bssids}
}

// followCrack polls job id until it finishes and applies a recovered
// password to rec in list. list may be nil when no record is tracked.
func followCrack(ctx context.Context, appCtx *AppContext, c *client.Client, list *network.List, rec network.Record, id string, out io.Writer) error {
	printer := newProgressPrinter(out, id)
	poller := client.NewPoller(appCtx.Config.Client.PollInterval, appCtx.Logger.Desugar().Named("poller"))
	outcome := <-poller.Start(ctx, func(ctx context.Context) (job.Progress, *job.Result, error) {
		return c.Progress(ctx, id)
	}, printer.Update)
	printer.Stop()

	if outcome.Err != nil {
		if errors.Is(outcome.Err, context.Canceled) {
			cancelCtx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			defer cancel()
			if err := c.Cancel(cancelCtx, id); err != nil {
				appCtx.Logger.Warnw("cancel request failed", "job_id", id, "error", err)
			}
			fmt.Fprintf(out, "%s Cracking job %s cancelled\n", colorWarn("!"), id)
			return nil
		}
		return outcome.Err
	}

	renderCrackOutcome(out, outcome.Progress, outcome.Result)

	// Failed and errored jobs leave the record as it was.
	if list == nil || outcome.Progress.Status != job.StatusCompleted || outcome.Result == nil || outcome.Result.Password == "" {
		return nil
	}
	if err := list.ApplyCrackResult(rec.Key(), outcome.Result.Password); err != nil {
		return err
	}
	return appCtx.networkCache().Save(list)
}

func renderVerdict(out io.Writer, rec network.Record, v *checker.Verdict) {
	fmt.Fprintf(out, "%s %s (%s): risk %s\n", colorInfo("→"), rec.SSID, v.Protocol,
		formatLevelWithColor(network.SecurityLevel(v.RiskLevel)))
	renderList(out, "Vulnerabilities", v.Vulnerabilities)
	renderList(out, "Recommendations", v.Recommendations)
	renderList(out, "Check steps", v.CheckSteps)
}

func renderList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "    - %s\n", item)
	}
}

func renderCrackOutcome(out io.Writer, p job.Progress, r *job.Result) {
	switch {
	case p.Status == job.StatusCompleted && r != nil && r.Password != "":
		fmt.Fprintf(out, "%s Password recovered: %s (method: %s)\n", colorError("✗"), r.Password, r.Method)
	case r != nil && r.Message != "":
		fmt.Fprintf(out, "%s %s: %s\n", colorInfo("→"), formatStatusWithColor(string(p.Status)), r.Message)
	default:
		fmt.Fprintf(out, "%s %s: %s\n", colorInfo("→"), formatStatusWithColor(string(p.Status)), p.Message)
	}
}

func renderKrack(out io.Writer, r checker.KrackResult) {
	if r.Vulnerable {
		fmt.Fprintf(out, "%s %s (%s) is vulnerable to key reinstallation attacks\n", colorError("✗"), r.SSID, r.BSSID)
		return
	}
	fmt.Fprintf(out, "%s %s (%s) shows no KRACK exposure\n", colorSuccess("✓"), r.SSID, r.BSSID)
}
