package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRobotsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "robots URL",
		Short: "Check whether robots.txt allows fetching a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", format)
			}
			a, err := newApp(rootConfig, newShared())
			if err != nil {
				return err
			}

			decision := a.gate.CheckAllowed(cmd.Context(), args[0])
			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(decision); err != nil {
					return err
				}
			} else {
				status := "ALLOWED"
				if !decision.Allowed {
					status = "BLOCKED"
				}
				fmt.Fprintf(out, "%s %s\n%s\n", status, args[0], decision.Message)
				if decision.CrawlDelay > 0 {
					fmt.Fprintf(out, "Crawl-delay: %s\n", decision.CrawlDelay)
				}
			}

			if !decision.Allowed {
				return &exitError{code: ExitBlocked}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}
