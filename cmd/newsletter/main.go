package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFolder string
	// filled in PersistentPreRunE, read by subcommands
	cfg := new(config.Config)

	root := &cobra.Command{
		Use:          "newsletter",
		Short:        "Newsletter subscription and broadcast service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real environment wins over it
			_ = godotenv.Load()

			loaded, err := config.Load(configFolder)
			if err != nil {
				return err
			}
			*cfg = *loaded
			logger.Initialize(cfg.Public.Log.Level, cfg.Public.Log.JSON)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configFolder, "config_folder", "config", "path to folder with configs")

	root.AddCommand(
		newServeCmd(cfg),
		newMigrateCmd(cfg),
		newUsersCmd(cfg),
		newPublishCmd(),
	)
	return root
}
