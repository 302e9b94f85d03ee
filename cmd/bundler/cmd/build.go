package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var buildCmd = &cobra.Command{
	Use:   "build [definitions]",
	Short: "Build bundles",
	Long:  "Build every bundle of a definitions file. Existing bundles are reused unless --force is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().Bool("force", false, "rebuild bundles that already exist")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	path := viper.GetString("definitions")
	if len(args) > 0 {
		path = args[0]
	}
	force, _ := cmd.Flags().GetBool("force")

	defs, err := loadDefinitions(path)
	if err != nil {
		return err
	}
	base, err := baseConfig()
	if err != nil {
		return err
	}
	opts, _, err := options()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, def := range defs.Bundles {
		b, err := def.Bundler(base, opts...)
		if err != nil {
			return err
		}
		a, err := b.Bundle(force)
		if err != nil {
			return fmt.Errorf("bundle %q: %w", def.Name, err)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", def.Name, a.WebPath(), a.Outcome(), humanize.Bytes(uint64(a.Size())))
	}
	return nil
}
