package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportPassphrase string
	exportOutput     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted state as a passphrase-encrypted bundle",
	Long: `Seeds the generator, persists its state and wraps the sealed blob
into a portable bundle encrypted with the given passphrase. The bundle can
be moved to another machine or store and restored with the import command.
Restoring still requires the original secret; the passphrase only protects
the bundle in transit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportPassphrase == "" {
			exportPassphrase = os.Getenv("RANDPOOL_BUNDLE_PASSPHRASE")
		}
		if exportPassphrase == "" {
			return fmt.Errorf("passphrase is required. Use --passphrase flag or RANDPOOL_BUNDLE_PASSPHRASE environment variable")
		}

		if _, err := rng.Initialize([]byte(secret), identity); err != nil {
			return formatError("initialization failed", err)
		}

		bundle, err := rng.ExportState(exportPassphrase)
		if err != nil {
			return formatError("export failed", err)
		}

		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode bundle: %w", err)
		}

		if exportOutput == "" || exportOutput == "-" {
			fmt.Println(string(data))
			return nil
		}

		if err = os.WriteFile(exportOutput, data, 0600); err != nil {
			return fmt.Errorf("failed to write bundle file: %w", err)
		}
		fmt.Printf("Bundle %s written to %s\n", bundle.BundleID, exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPassphrase, "passphrase", "", "bundle encryption passphrase")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
