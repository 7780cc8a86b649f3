package cmd

import (
	"fmt"
	"io"

	"github.com/khanhnv2901/wisafe/internal/domain/network"
	"github.com/khanhnv2901/wisafe/internal/scanner"
	"github.com/spf13/cobra"
)

// guideOrder lists levels from most to least severe.
var guideOrder = []network.SecurityLevel{
	network.LevelCritical,
	network.LevelDanger,
	network.LevelWarning,
	network.LevelSafe,
}

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Show the WiFi security guide",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx, err := requireAppContext(cmd)
		if err != nil {
			return err
		}
		audience, _ := cmd.Flags().GetString("audience")
		guide, err := appCtx.newClient().Guide(cmd.Context(), audience)
		if err != nil {
			return err
		}
		renderGuide(cmd.OutOrStdout(), guide)
		return nil
	},
}

func init() {
	guideCmd.Flags().String("audience", string(scanner.AudienceUser), "guide audience (user or expert)")
	rootCmd.AddCommand(guideCmd)
}

func renderGuide(out io.Writer, guide scanner.Guide) {
	for _, level := range guideOrder {
		entry, ok := guide[level]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s %s\n", formatLevelWithColor(level), entry.Title)
		if len(entry.Protocols) > 0 {
			fmt.Fprintf(out, "  Protocols: %v\n", entry.Protocols)
		}
		if entry.Description != "" {
			fmt.Fprintf(out, "  %s\n", entry.Description)
		}
		renderList(out, "Attack vectors", entry.AttackVectors)
		renderList(out, "Recommendations", entry.Recommendations)
		fmt.Fprintln(out)
	}
}
