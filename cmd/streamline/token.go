package main

import (
	"fmt"

	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var tokenUser string

// tokenCmd mints an API token without a password, for local testing.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print an API token for an existing user",
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

		user, err := repo.FindUserByUsername(cmd.Context(), tokenUser)
		if err != nil {
			return fmt.Errorf("user %q: %w", tokenUser, err)
		}
		if user.Status != models.StatusActive {
			return fmt.Errorf("user %q is inactive", tokenUser)
		}

		token, expiresAt, err := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL).Issue(user.ID.String(), user.Username, user.RoleName())
		if err != nil {
			return err
		}
		logger.Info("Issued token", zap.String("user", user.Username), zap.Time("expires_at", expiresAt))
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "Username to issue the token for")
	_ = tokenCmd.MarkFlagRequired("user")
}
