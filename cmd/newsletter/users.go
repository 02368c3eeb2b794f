package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itchan-dev/newsletter/internal/auth"
	"github.com/itchan-dev/newsletter/internal/config"
	"github.com/itchan-dev/newsletter/internal/logger"
	"github.com/itchan-dev/newsletter/internal/setup"
)

func newUsersCmd(cfg *config.Config) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage newsletter operators",
	}

	var username, password string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create an operator allowed to publish newsletters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			if cfg.Public.Storage.Driver == config.StorageDriverMemory {
				return errors.New("operators added to the memory driver are lost when this command exits")
			}

			hasher, err := auth.NewHasher(cfg.Public.Auth)
			if err != nil {
				return err
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := setup.NewStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			userId, err := store.SaveCredential(ctx, username, hash)
			if err != nil {
				return err
			}
			logger.Log.Info("operator created", "user_id", userId, "username", username)
			fmt.Fprintln(cmd.OutOrStdout(), userId)
			return nil
		},
	}
	addCmd.Flags().StringVar(&username, "username", "", "operator username")
	addCmd.Flags().StringVar(&password, "password", "", "operator password")

	usersCmd.AddCommand(addCmd)
	return usersCmd
}
