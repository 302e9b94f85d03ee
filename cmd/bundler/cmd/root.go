package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gophersatwork/bundler"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "bundler",
	Short:        "Script and stylesheet bundler",
	Long:         "Build, inspect and prune concatenated script and stylesheet bundles.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./bundler.yaml or ~/.config/bundler/config.yaml)")
	flags.String("app-root", "", "directory the root-relative paths hang from")
	flags.String("type", "", "bundle type: script or style")
	flags.String("definitions", "bundles.yaml", "bundle definitions file")
	flags.Bool("debug", false, "log diagnostics to stderr")

	viper.BindPFlag("app_root", flags.Lookup("app-root"))
	viper.BindPFlag("type", flags.Lookup("type"))
	viper.BindPFlag("definitions", flags.Lookup("definitions"))
	viper.BindPFlag("debug", flags.Lookup("debug"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(configDir())
		viper.SetConfigName("bundler")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("BUNDLER")
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bundler")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "bundler")
	}
	return ".bundler"
}

// baseConfig returns the configuration shared by every bundle, without
// defaults so that definitions can still change the type.
func baseConfig() (bundler.Config, error) {
	var cfg bundler.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return bundler.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	if !viper.GetBool("debug") {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// options returns the bundler options shared by every command.
func options() ([]bundler.Option, *bundler.Store, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	fs := afero.NewOsFs()
	store := bundler.NewStore(bundler.WithFs(fs), bundler.WithLogger(log))
	return []bundler.Option{bundler.WithFs(fs), bundler.WithLogger(log), bundler.WithStore(store)}, store, nil
}

func loadDefinitions(path string) (*bundler.Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return bundler.LoadDefinitions(f)
}
