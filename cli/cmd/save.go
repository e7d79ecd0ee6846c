package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"southwinds.dev/randpool"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Seed the generator and persist its state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := rng.Initialize([]byte(secret), identity); err != nil {
			return formatError("initialization failed", err)
		}

		ch, err := rng.SaveState()
		if err != nil {
			return formatError("save failed", err)
		}

		var outcome randpool.Outcome
		select {
		case outcome = <-ch:
		case <-time.After(30 * time.Second):
			return fmt.Errorf("save timed out")
		}

		if outcome.Code != randpool.StatusSuccess {
			return fmt.Errorf("save failed: %s", outcome.Message)
		}
		fmt.Printf("State for identity %q saved to %s store\n", identity, rngStore.GetType())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
}
