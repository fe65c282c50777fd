package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/sentinel-sea/internal/config"
	"github.com/mr1hm/sentinel-sea/internal/logging"
)

func main() {
	_ = godotenv.Load()

	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:           "sentinel-cli",
		Short:         "Sentinel-Sea maintenance tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		*cfg = *loaded
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	}

	rootCmd.AddCommand(
		seedCommand(cfg),
		reportCommand(cfg),
		scoreCommand(),
		zonesCommand(),
	)
	return rootCmd
}
