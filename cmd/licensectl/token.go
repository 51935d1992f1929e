package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/gymdesk-backend/pkg/auth"
	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/enums"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for the admin API",
	Long: `Token signs a short-lived access token with GYMDESK_JWT_SECRET so an
operator can call the admin routes. Only the GYMDESK_JWT_ settings are read.`,
	Example: `  # One hour admin token
  licensectl token --user=ops-1

  curl -H "Authorization: Bearer $(licensectl token --user=ops-1 --ttl=15m)" ...`,
	Args: cobra.NoArgs,
	RunE: tokenCmdRun,
}

type tokenFlags struct {
	userID string
	role   string
	ttl    time.Duration
}

var tokenArgs = tokenFlags{role: string(enums.RoleAdmin)}

func init() {
	tokenCmd.Flags().StringVar(&tokenArgs.userID, "user", "", "user id placed in the token subject (required)")
	tokenCmd.Flags().StringVar(&tokenArgs.role, "role", tokenArgs.role, "role claim")
	tokenCmd.Flags().DurationVar(&tokenArgs.ttl, "ttl", 0,
		"token lifetime, rounded up to whole minutes; defaults to GYMDESK_JWT_EXPIRATION_MINUTES")
	_ = tokenCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(tokenCmd)
}

func tokenCmdRun(cmd *cobra.Command, args []string) error {
	role, err := enums.ParseRole(tokenArgs.role)
	if err != nil {
		return err
	}
	if tokenArgs.ttl < 0 {
		return fmt.Errorf("invalid --ttl %s", tokenArgs.ttl)
	}

	_ = godotenv.Load()
	cfg, err := config.LoadJWT()
	if err != nil {
		return err
	}
	if tokenArgs.ttl > 0 {
		cfg.ExpirationMinutes = int((tokenArgs.ttl + time.Minute - 1) / time.Minute)
	}

	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: tokenArgs.userID,
		Role:   role,
	})
	if err != nil {
		return err
	}
	cmd.Println(token)
	return nil
}
