package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/gymdesk-backend/pkg/licensekey"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [license-key]",
	Short: "Print the payload of a license key without verifying it",
	Example: `  # Decode a key passed as an argument
  licensectl inspect eyJhbGciOiJSUzI1NiIs...

  # Decode a key read from a file
  licensectl inspect --input=license.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: inspectCmdRun,
}

type inspectFlags struct {
	inputPath string
}

var inspectArgs inspectFlags

func init() {
	inspectCmd.Flags().StringVarP(&inspectArgs.inputPath, "input", "i", "",
		"path to a file holding the license key, or - for stdin")

	rootCmd.AddCommand(inspectCmd)
}

type inspectOutput struct {
	Type      string                    `json:"type"`
	Issuer    string                    `json:"issuer,omitempty"`
	TokenID   string                    `json:"token_id,omitempty"`
	IssuedAt  time.Time                 `json:"issued_at"`
	ExpiresAt time.Time                 `json:"expires_at"`
	Gym       *licensekey.GymSnapshot   `json:"gym,omitempty"`
	Owner     *licensekey.OwnerSnapshot `json:"owner,omitempty"`
}

func inspectCmdRun(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd, args, inspectArgs.inputPath)
	if err != nil {
		return err
	}

	claims, err := licensekey.Decode(token)
	if err != nil {
		return fmt.Errorf("failed to decode license key: %w", err)
	}

	out := inspectOutput{
		Type:      claims.Type,
		Issuer:    claims.Issuer,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt(),
		ExpiresAt: claims.ExpiresAt(),
		Gym:       claims.Gym,
		Owner:     redactOwner(claims.Owner),
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// redactOwner masks an embedded bootstrap password.
func redactOwner(owner *licensekey.OwnerSnapshot) *licensekey.OwnerSnapshot {
	if owner == nil || owner.Password == nil {
		return owner
	}
	masked := *owner
	redacted := "********"
	masked.Password = &redacted
	return &masked
}

func readToken(cmd *cobra.Command, args []string, inputPath string) (string, error) {
	var raw string
	switch {
	case len(args) == 1:
		raw = args[0]
	case inputPath == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = string(data)
	case inputPath != "":
		data, err := os.ReadFile(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		raw = string(data)
	default:
		return "", fmt.Errorf("a license key argument or --input is required")
	}

	token := strings.TrimSpace(raw)
	if token == "" {
		return "", fmt.Errorf("license key is empty")
	}
	return token, nil
}
