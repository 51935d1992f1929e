package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an RSA key pair for signing license keys",
	Example: `  # Write private.pem and public.pem to ./keys
  licensectl keygen --out-dir=./keys

  # Print both keys as single-line values for an .env file
  licensectl keygen --env`,
	Args: cobra.NoArgs,
	RunE: keygenCmdRun,
}

type keygenFlags struct {
	bits   int
	outDir string
	env    bool
}

var keygenArgs = keygenFlags{bits: licensekey.DefaultKeyBits}

func init() {
	keygenCmd.Flags().IntVar(&keygenArgs.bits, "bits", keygenArgs.bits,
		"RSA modulus size in bits")
	keygenCmd.Flags().StringVarP(&keygenArgs.outDir, "out-dir", "o", "",
		"directory to write private.pem and public.pem into")
	keygenCmd.Flags().BoolVar(&keygenArgs.env, "env", false,
		"print the keys as escaped environment variables")

	rootCmd.AddCommand(keygenCmd)
}

func keygenCmdRun(cmd *cobra.Command, args []string) error {
	if keygenArgs.outDir == "" && !keygenArgs.env {
		return fmt.Errorf("one of --out-dir or --env is required")
	}
	if keygenArgs.bits < 2048 {
		return fmt.Errorf("--bits must be at least 2048")
	}

	privatePEM, publicPEM, err := licensekey.GenerateKeyPair(keygenArgs.bits)
	if err != nil {
		return err
	}

	if keygenArgs.outDir != "" {
		if err := os.MkdirAll(keygenArgs.outDir, 0o700); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		privatePath := filepath.Join(keygenArgs.outDir, "private.pem")
		publicPath := filepath.Join(keygenArgs.outDir, "public.pem")
		if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}
		if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
		cmd.Printf("private key written to %s\n", privatePath)
		cmd.Printf("public key written to %s\n", publicPath)
	}

	if keygenArgs.env {
		cmd.Printf("GYMDESK_LICENSE_PRIVATE_KEY=\"%s\"\n", licensekey.EscapePEM(privatePEM))
		cmd.Printf("GYMDESK_LICENSE_PUBLIC_KEY=\"%s\"\n", licensekey.EscapePEM(publicPEM))
	}
	return nil
}
