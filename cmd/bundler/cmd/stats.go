package cmd

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show bundle directory statistics",
	Long:  "List the bundles recorded in the bundle directory of the configured type.",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	base, err := baseConfig()
	if err != nil {
		return err
	}
	cfg := base.WithDefaults()
	_, store, err := options()
	if err != nil {
		return err
	}

	entries, err := store.Entries(cfg)
	if err != nil {
		return err
	}
	stats, err := store.Stats(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s\t%d files\t%s\t%s\n", e.Identifier, e.Members,
			humanize.Bytes(uint64(e.Size)), humanize.Time(e.CreatedAt))
	}
	fmt.Fprintf(out, "%d bundles, %s, oldest %s old\n", stats.Entries,
		humanize.Bytes(uint64(stats.TotalSize)), stats.OldestEntry.Round(time.Second))
	return nil
}
