package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tagsCmd = &cobra.Command{
	Use:   "tags <name>",
	Short: "Print the HTML tags of a bundle",
	Long:  "Print the script or link tag for a bundle, building it if needed. With bundling disabled one tag per file is printed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTags,
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}

func runTags(cmd *cobra.Command, args []string) error {
	defs, err := loadDefinitions(viper.GetString("definitions"))
	if err != nil {
		return err
	}
	def, ok := defs.Lookup(args[0])
	if !ok {
		return fmt.Errorf("no bundle named %q", args[0])
	}

	base, err := baseConfig()
	if err != nil {
		return err
	}
	opts, _, err := options()
	if err != nil {
		return err
	}

	b, err := def.Bundler(base, opts...)
	if err != nil {
		return err
	}
	return b.WriteTags(cmd.OutOrStdout(), false)
}
