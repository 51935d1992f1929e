package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/gymdesk-backend/pkg/config"
	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [license-key]",
	Short: "Verify a license key against a public key",
	Example: `  # Verify with an explicit public key file
  licensectl verify --public-key=./keys/public.pem --gym=gym-1 eyJhbGciOiJSUzI1NiIs...

  # Verify with GYMDESK_LICENSE_PUBLIC_KEY from the environment
  licensectl verify --input=license.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: verifyCmdRun,
}

type verifyFlags struct {
	publicKey   string
	inputPath   string
	gymID       string
	activatedAt string
}

var verifyArgs verifyFlags

func init() {
	verifyCmd.Flags().StringVar(&verifyArgs.publicKey, "public-key", "",
		"PEM public key or path to one; defaults to "+config.EnvPrefix+"_LICENSE_PUBLIC_KEY")
	verifyCmd.Flags().StringVarP(&verifyArgs.inputPath, "input", "i", "",
		"path to a file holding the license key, or - for stdin")
	verifyCmd.Flags().StringVar(&verifyArgs.gymID, "gym", "",
		"expected gym id")
	verifyCmd.Flags().StringVar(&verifyArgs.activatedAt, "activated-at", "",
		"RFC3339 activation time, enables the clock rollback check")

	rootCmd.AddCommand(verifyCmd)
}

func verifyCmdRun(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd, args, verifyArgs.inputPath)
	if err != nil {
		return err
	}

	keyValue := verifyArgs.publicKey
	if keyValue == "" {
		keyValue = os.Getenv(config.EnvPrefix + "_LICENSE_PUBLIC_KEY")
	}
	publicKey, err := licensekey.LoadPublicKey(config.LicenseConfig{PublicKey: keyValue})
	if err != nil {
		return err
	}
	validator, err := licensekey.NewValidator(publicKey)
	if err != nil {
		return err
	}

	opts := licensekey.ValidateOptions{ExpectedGymID: verifyArgs.gymID}
	if verifyArgs.activatedAt != "" {
		at, err := time.Parse(time.RFC3339, verifyArgs.activatedAt)
		if err != nil {
			return fmt.Errorf("invalid --activated-at: %w", err)
		}
		opts.ActivatedAt = &at
	}

	res := validator.Validate(token, opts)
	if !res.Valid() {
		return fmt.Errorf("license key rejected: %s", res.Status)
	}

	cmd.Printf("✔ license key valid\n")
	cmd.Printf("  gym:     %s (%s)\n", res.Gym.ID, res.Gym.Name)
	cmd.Printf("  owner:   %s (%s)\n", res.Owner.ID, res.Owner.Username)
	cmd.Printf("  expires: %s\n", res.ExpiresAt.Format(time.RFC3339))
	return nil
}
