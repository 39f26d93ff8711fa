package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/locate918/eventengine/internal/publish"
)

type publishOptions struct {
	file    string
	all     bool
	dryRun  bool
	backend string
	format  string
}

func newPublishCmd() *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send saved results to the events backend",
		Long: `Transform saved events into the backend's schema and post them. Venues
are registered first, then events are posted concurrently. By default the
newest result file is sent.`,
		Example: `  eventengine publish --dry-run
  eventengine publish --file blue_note_20260201_120000.json
  eventengine publish --all --backend http://localhost:3000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "Result file to send (default: newest)")
	flags.BoolVar(&opts.all, "all", false, "Send every saved result file")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Print the payloads instead of sending them")
	flags.StringVar(&opts.backend, "backend", "", "Backend base URL (overrides config)")
	flags.StringVar(&opts.format, "format", "text", "Report format: text or json")
	return cmd
}

func runPublish(ctx context.Context, opts *publishOptions, stdout io.Writer) error {
	if opts.file != "" && opts.all {
		return fmt.Errorf("--file and --all cannot be used together")
	}
	cfg := rootConfig
	if opts.backend != "" {
		cfg.Backend.URL = opts.backend
	}
	a, err := newApp(cfg, newShared())
	if err != nil {
		return err
	}

	var raw []map[string]interface{}
	switch {
	case opts.all:
		var files int
		var errs []string
		raw, files, errs, err = a.store.LoadAll()
		if err != nil {
			return err
		}
		for _, e := range errs {
			fmt.Fprintf(stdout, "Skipped %s\n", e)
		}
		fmt.Fprintf(stdout, "Loaded %d events from %d files\n", len(raw), files)
	default:
		name := opts.file
		if name == "" {
			list, err := a.store.ListResults()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return fmt.Errorf("no saved results in %s", a.store.Dir())
			}
			name = list[0].Name
		}
		raw, err = a.store.LoadResult(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Loaded %d events from %s\n", len(raw), name)
	}
	if len(raw) == 0 {
		return &exitError{code: ExitNoEvents}
	}

	records := make([]publish.Record, len(raw))
	for i, r := range raw {
		records[i] = publish.Record(r)
	}

	pub, err := a.publisher(opts.dryRun)
	if err != nil {
		return err
	}
	report, err := pub.Publish(ctx, records)
	if err != nil {
		return err
	}
	return writeReport(stdout, report, opts.format)
}

func writeReport(w io.Writer, report *publish.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprintf(w, "Saved %d/%d events\n", report.Saved, report.Total)
	fmt.Fprintf(w, "Registered %d venues (%d with websites)\n", report.VenuesRegistered, report.VenuesWithWebsites)
	for _, e := range report.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	return nil
}
