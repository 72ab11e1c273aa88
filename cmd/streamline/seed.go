package main

import (
	"fmt"

	"github.com/gartstein/streamline/internal/streamline/db"
	"github.com/gartstein/streamline/internal/streamline/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedOpts seed.Options

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install default roles, permissions and sample users",
	Long: `Creates the default permissions, permission groups and roles plus the
"admin" and "user" accounts. Does nothing when roles already exist.

Example:
  streamline seed --admin-password s3cret --user-password s3cret`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer syncLogger(logger)

		repo, err := db.NewRepository(cfg.Database(), logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := repo.Close(); err != nil {
				logger.Error("failed to close database", zap.Error(err))
			}
		}()

		result, err := seed.Run(cmd.Context(), repo, seedOpts, logger)
		if err != nil {
			return err
		}
		if result.Skipped {
			fmt.Fprintln(cmd.OutOrStdout(), "roles already exist, nothing seeded")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d permissions, %d groups, %d roles, %d users\n",
			result.Permissions, result.Groups, result.Roles, result.Users)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.AdminPassword, "admin-password", "", "Password of the admin user")
	seedCmd.Flags().StringVar(&seedOpts.UserPassword, "user-password", "", "Password of the sample user")
	_ = seedCmd.MarkFlagRequired("admin-password")
	_ = seedCmd.MarkFlagRequired("user-password")
}
