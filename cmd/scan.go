package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby WiFi networks",
	Long: `Scan for nearby WiFi networks.

Expert scans (the default) require a session from "wisafe login" and return
full records, which are cached locally for "check" and "krack". With --public
the anonymous user view is shown and nothing is cached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		public, _ := cmd.Flags().GetBool("public")
		c := appCtx.newClient()
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%s Scanning via %s...\n", colorInfo("→"), c.BaseURL())

		if public {
			records, err := c.UserScan(cmd.Context())
			if err != nil {
				return err
			}
			renderUserRecords(out, records)
			return nil
		}

		result, err := c.Scan(cmd.Context())
		if err != nil {
			return err
		}
		if result.Warning != "" {
			fmt.Fprintf(out, "%s %s\n", colorWarn("!"), result.Warning)
		}

		list := network.NewList()
		list.Replace(result.WifiList)
		if err := appCtx.networkCache().Save(list); err != nil {
			appCtx.Logger.Warnw("network cache not saved", "error", err)
		}

		renderRecords(out, list.Records())
		fmt.Fprintf(out, "%s %d networks (scan %s)\n", colorSuccess("✓"), list.Len(), result.ScanID)
		return nil
	},
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Show the networks from the last expert scan with their check results",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		list, err := appCtx.networkCache().Load()
		if err != nil {
			return err
		}
		if list.Len() == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No cached networks. Run \"wisafe scan\" first.")
			return nil
		}
		renderRecords(cmd.OutOrStdout(), list.Records())
		return nil
	},
}

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "List recent expert scans stored on the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		if id, _ := cmd.Flags().GetString("id"); id != "" {
			return loadStoredScan(cmd, appCtx, id)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		summaries, err := appCtx.newClient().Scans(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTIME\tOPERATOR\tNETWORKS\tREAL\tOPEN\tROGUE")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				s.ID, s.ScannedAt.Local().Format(time.DateTime), s.Operator, s.Count, s.RealCount, s.OpenCount, s.RogueCount)
		}
		return w.Flush()
	},
}

func init() {
	scanCmd.Flags().Bool("public", false, "run the anonymous user scan")
	scansCmd.Flags().Int("limit", 20, "maximum number of scans to list")
	scansCmd.Flags().String("id", "", "load a stored scan into the local network cache")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(scansCmd)
}

// loadStoredScan replaces the local network cache with a stored scan so
// "check" and "krack" can target its networks.
func loadStoredScan(cmd *cobra.Command, appCtx *AppContext, id string) error {
	summary, records, err := appCtx.newClient().ScanDetail(cmd.Context(), id)
	if err != nil {
		return err
	}
	list := network.NewList()
	list.Replace(records)
	if err := appCtx.networkCache().Save(list); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	renderRecords(out, list.Records())
	fmt.Fprintf(out, "%s Loaded scan %s by %s from %s (%d networks)\n", colorSuccess("✓"),
		summary.ID, summary.Operator, summary.ScannedAt.Local().Format(time.DateTime), list.Len())
	return nil
}

func renderRecords(out io.Writer, records []network.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SSID\tBSSID\tCH\tSIGNAL\tPROTOCOL\tSOURCE\tFLAGS\tSTATUS\tLEVEL")
	for _, r := range records {
		source := "catalog"
		if r.IsRealScan {
			source = "live"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.SSID, r.BSSID, r.Channel, r.SignalStrength, r.Protocol, source,
			recordFlags(r), r.CheckStatus, formatLevelWithColor(r.SecurityLevel))
	}
	_ = w.Flush()
}

func renderUserRecords(out io.Writer, records []network.UserRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SSID\tPROTOCOL\tFLAGS\tLEVEL")
	for _, r := range records {
		flags := "-"
		switch {
		case r.RogueImpostor:
			flags = "impostor"
		case r.RogueAP:
			flags = "shared-ssid"
		case r.KrackVulnerable:
			flags = "krack"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.SSID, r.Protocol, flags, formatLevelWithColor(r.SecurityLevel))
	}
	_ = w.Flush()
}

func recordFlags(r network.Record) string {
	var flags string
	add := func(f string) {
		if flags != "" {
			flags += ","
		}
		flags += f
	}
	switch {
	case r.RogueImpostor:
		add("impostor")
	case r.RogueAP:
		add("shared-ssid")
	}
	if r.KrackChecked && r.KrackVulnerable {
		add("krack")
	}
	if r.CrackedPassword != "" {
		add("cracked")
	}
	if flags == "" {
		return "-"
	}
	return flags
}
