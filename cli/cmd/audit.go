package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"southwinds.dev/randpool/audit"
)

var (
	auditAction string
	auditLimit  int
	auditSince  string
	auditFailed bool
	auditAsJSON bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit log",
	Long: `Queries the configured audit logger for recorded events. Only the
file logger supports queries; syslog is write-only.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := audit.QueryOptions{
			Identity: identity,
			Action:   auditAction,
			Limit:    auditLimit,
		}

		if auditSince != "" {
			since, err := time.Parse(time.RFC3339, auditSince)
			if err != nil {
				return fmt.Errorf("invalid --since value %q, expected RFC3339: %w", auditSince, err)
			}
			opts.Since = &since
		}
		if auditFailed {
			failed := false
			opts.Success = &failed
		}

		result, err := rng.Audit().Query(opts)
		if err != nil {
			return formatError("audit query failed", err)
		}

		if auditAsJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "TIMESTAMP\tACTION\tSUCCESS\tREQUEST")
		for _, event := range result.Events {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
				event.Timestamp.Format(time.RFC3339), event.Action, event.Success, event.RequestID)
		}
		fmt.Fprintf(w, "\n%d of %d events\n", result.Filtered, result.TotalCount)
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditAction, "action", "", "filter by action name")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of events")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "only events after this RFC3339 timestamp")
	auditCmd.Flags().BoolVar(&auditFailed, "failed", false, "only failed events")
	auditCmd.Flags().BoolVar(&auditAsJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(auditCmd)
}
