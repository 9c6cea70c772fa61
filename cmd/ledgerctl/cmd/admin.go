package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/agency-ledger/internal/app"
	"github.com/josh-kwaku/agency-ledger/internal/auth"
)

var (
	tokenEmail  string
	tokenRole   string
	tokenUserID string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an operator",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		userID := uuid.New()
		if tokenUserID != "" {
			if userID, err = uuid.Parse(tokenUserID); err != nil {
				return fmt.Errorf("--user-id: %w", err)
			}
		}

		token, err := auth.GenerateToken(userID, tokenEmail, auth.Role(tokenRole), cfg.JWTSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var purgeIdempotencyCmd = &cobra.Command{
	Use:   "purge-idempotency",
	Short: "Delete expired idempotency replay entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Idempotency.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired entries\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd, purgeIdempotencyCmd)

	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Operator email carried in the token.")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleViewer), "admin, finance or viewer.")
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "Operator ID (random when empty).")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 12*time.Hour, "Token lifetime.")
	_ = tokenCmd.MarkFlagRequired("email")
}
