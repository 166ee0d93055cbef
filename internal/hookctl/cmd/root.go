package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hooklog/hooklog/internal/hookctl/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hookctl",
	Short: "Hooklog CLI",
	Long: `hookctl is the command-line interface for the Hooklog webhook pipeline.

Generate request signatures, send test events, seed fake traffic, and
inspect the dead-letter queue from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.hookctl/config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// resolveSecret picks the secret flag when set, falling back to the config
// file value.
func resolveSecret(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg != nil && cfg.Secret != "" {
		return cfg.Secret, nil
	}
	return "", fmt.Errorf("secret is required (use --secret or set it in the config file)")
}
