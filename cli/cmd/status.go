package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"southwinds.dev/randpool"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether persisted state exists for the identity",
	Long: `Probes the store for a sealed state blob matching the identity and
reports whether it opens under the configured secret. The probe never
mutates persisted state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ch, err := rng.Probe([]byte(secret), identity)
		if err != nil {
			return formatError("probe failed", err)
		}

		var outcome randpool.Outcome
		select {
		case outcome = <-ch:
		case <-time.After(30 * time.Second):
			return fmt.Errorf("probe timed out")
		}

		fmt.Printf("Identity:          %s\n", identity)
		fmt.Printf("Store:             %s\n", rngStore.GetType())
		fmt.Printf("Status:            %s\n", outcome.Message)
		fmt.Printf("Entropy strength:  %s\n", rng.EntropyStrength())
		fmt.Printf("Memory protection: %s\n", rng.MemoryProtection())

		if outcome.Err != nil {
			fmt.Printf("Detail:            %v\n", outcome.Err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
