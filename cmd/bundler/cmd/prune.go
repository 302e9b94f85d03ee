package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old or stale bundles",
	Long:  "Delete bundles built before --older-than, or bundles whose files changed since they were built (--stale).",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().Duration("older-than", 0, "delete bundles built longer ago than this")
	pruneCmd.Flags().Bool("stale", false, "delete bundles whose files changed")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	olderThan, _ := cmd.Flags().GetDuration("older-than")
	stale, _ := cmd.Flags().GetBool("stale")
	if olderThan <= 0 && !stale {
		return errors.New("nothing to prune: pass --older-than or --stale")
	}

	base, err := baseConfig()
	if err != nil {
		return err
	}
	cfg := base.WithDefaults()
	_, store, err := options()
	if err != nil {
		return err
	}

	removed := 0
	if olderThan > 0 {
		n, err := store.Prune(cfg, olderThan)
		removed += n
		if err != nil {
			return err
		}
	}
	if stale {
		n, err := store.PruneStale(cfg)
		removed += n
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %d bundles\n", removed)
	return nil
}
