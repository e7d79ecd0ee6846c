package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"southwinds.dev/randpool"
)

var importPassphrase string

var importCmd = &cobra.Command{
	Use:   "import <bundle-file>",
	Short: "Import a state bundle into the configured store",
	Long: `Decrypts a bundle produced by the export command and writes the
sealed state blob into the configured store under the bundle's identity,
replacing any existing blob. The imported state becomes usable through init
with the original secret.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if importPassphrase == "" {
			importPassphrase = os.Getenv("RANDPOOL_BUNDLE_PASSPHRASE")
		}
		if importPassphrase == "" {
			return fmt.Errorf("passphrase is required. Use --passphrase flag or RANDPOOL_BUNDLE_PASSPHRASE environment variable")
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read bundle file: %w", err)
		}

		var bundle randpool.StateBundle
		if err = json.Unmarshal(data, &bundle); err != nil {
			return fmt.Errorf("malformed bundle file: %w", err)
		}

		if err = rng.ImportState(&bundle, importPassphrase); err != nil {
			return formatError("import failed", err)
		}

		fmt.Printf("Bundle %s imported for identity %q\n", bundle.BundleID, bundle.Identity)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importPassphrase, "passphrase", "", "bundle decryption passphrase")
	rootCmd.AddCommand(importCmd)
}
