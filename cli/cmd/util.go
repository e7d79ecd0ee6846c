package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"southwinds.dev/randpool"
)

// formatError turns library errors into messages actionable at the terminal.
func formatError(context string, err error) error {
	switch {
	case errors.Is(err, randpool.ErrNoSecret):
		return fmt.Errorf("%s: no secret provided. Use --secret or RANDPOOL_SECRET", context)
	case errors.Is(err, randpool.ErrNotInitialized):
		return fmt.Errorf("%s: generator not initialized. Run 'randpool init' first", context)
	case errors.Is(err, randpool.ErrEntropyExhausted):
		return fmt.Errorf("%s: the system could not gather enough entropy. Retry, or register additional entropy sources", context)
	case errors.Is(err, randpool.ErrClosed):
		return fmt.Errorf("%s: generator already closed", context)
	default:
		return fmt.Errorf("%s: %w", context, err)
	}
}

// sanitizeFlags collects the flags set on a command for audit metadata,
// redacting anything secret-bearing.
func sanitizeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			if isSensitiveFlag(flag.Name) {
				flags[flag.Name] = "[REDACTED]"
			} else {
				flags[flag.Name] = flag.Value.String()
			}
		}
	})
	return flags
}

func isSensitiveFlag(name string) bool {
	sensitive := []string{"secret", "passphrase", "password", "key", "token"}
	lower := strings.ToLower(name)
	for _, s := range sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}
