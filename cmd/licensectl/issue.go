package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/gymdesk-backend/internal/gyms"
	"github.com/angelmondragon/gymdesk-backend/internal/licenses"
	"github.com/angelmondragon/gymdesk-backend/internal/subscriptions"
	"github.com/angelmondragon/gymdesk-backend/internal/users"
	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/db"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
	"github.com/angelmondragon/gymdesk-backend/pkg/logger"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a license key for an existing gym",
	Long: `Issue signs a license key for a gym already present in the database.
Without --expires the end date of the gym's active subscription is used.
Database and signing key settings are read from the GYMDESK_ environment.`,
	Example: `  # Derive the expiry from the active subscription
  licensectl issue --gym=gym-1 --owner=owner-1

  # Explicit expiry with a first-login password for the owner
  licensectl issue --gym=gym-1 --owner=owner-1 --expires=2026-12-31 --owner-password=changeme123`,
	Args: cobra.NoArgs,
	RunE: issueCmdRun,
}

type issueFlags struct {
	gymID         string
	ownerID       string
	expires       string
	ownerPassword string
	output        string
}

var issueArgs = issueFlags{output: "token"}

func init() {
	issueCmd.Flags().StringVar(&issueArgs.gymID, "gym", "", "gym id (required)")
	issueCmd.Flags().StringVar(&issueArgs.ownerID, "owner", "", "owner user id (required)")
	issueCmd.Flags().StringVar(&issueArgs.expires, "expires", "",
		"expiry as RFC3339 or YYYY-MM-DD; defaults to the active subscription end date")
	issueCmd.Flags().StringVar(&issueArgs.ownerPassword, "owner-password", "",
		"password embedded for the owner's first login")
	issueCmd.Flags().StringVarP(&issueArgs.output, "output", "o", issueArgs.output,
		"output format: token or json")
	_ = issueCmd.MarkFlagRequired("gym")
	_ = issueCmd.MarkFlagRequired("owner")

	rootCmd.AddCommand(issueCmd)
}

func issueCmdRun(cmd *cobra.Command, args []string) (err error) {
	if issueArgs.output != "token" && issueArgs.output != "json" {
		return fmt.Errorf("unsupported --output %q", issueArgs.output)
	}
	expiresAt, err := parseExpiry(issueArgs.expires)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "licensectl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Output:      cmd.ErrOrStderr(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), rootArgs.timeout)
	defer cancel()

	privateKey, err := licensekey.LoadPrivateKey(cfg.License)
	if err != nil {
		return err
	}
	signer, err := licensekey.NewSigner(privateKey, licensekey.WithIssuer(cfg.License.Issuer))
	if err != nil {
		return err
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	issuer, err := licenses.NewIssuer(
		gyms.NewRepository(dbClient.DB()),
		users.NewRepository(dbClient.DB()),
		subscriptions.NewRepository(dbClient.DB()),
		signer,
		logg,
		nil,
	)
	if err != nil {
		return err
	}

	in := licenses.IssueInput{
		GymID:     issueArgs.gymID,
		OwnerID:   issueArgs.ownerID,
		ExpiresAt: expiresAt,
	}
	if issueArgs.ownerPassword != "" {
		in.OwnerPassword = &issueArgs.ownerPassword
	}

	issued, err := issuer.Issue(ctx, in)
	if err != nil {
		return err
	}

	if issueArgs.output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"license_key": issued.LicenseKey,
			"gym_id":      issued.GymID,
			"owner_id":    issued.OwnerID,
			"issued_at":   issued.IssuedAt,
			"expires_at":  issued.ExpiresAt,
		})
	}
	cmd.Println(issued.LicenseKey)
	return nil
}

func parseExpiry(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, fmt.Errorf("invalid --expires %q: use RFC3339 or YYYY-MM-DD", value)
}
