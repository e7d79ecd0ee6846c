package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var strengthCmd = &cobra.Command{
	Use:   "strength",
	Short: "Report the entropy strength classification",
	Long: `Classifies the configured entropy sources as WEAK (operating system
only), MEDIUM (OS plus the timing-jitter sampler) or STRONG (additional
sources registered).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(rng.EntropyStrength())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strengthCmd)
}
