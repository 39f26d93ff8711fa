package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/locate918/eventengine/internal/config"
	"github.com/locate918/eventengine/internal/extract"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	// ExitNoEvents reports a run that completed but found nothing.
	ExitNoEvents = 2
	// ExitBlocked reports a target refused by robots.txt.
	ExitBlocked = 3
)

var (
	flagConfig    string
	flagDataDir   string
	flagUserAgent string
	flagLogLevel  string
	flagNoRobots  bool
	flagVerbose   bool

	// rootConfig is loaded once per invocation, before any command runs.
	rootConfig *config.Config
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventengine",
		Short: "Extract event listings from venue and calendar pages",
		Long: `eventengine turns a venue, calendar, or ticketing page into a list of
structured events. It reads known platform APIs directly when a page embeds
one, and otherwise falls back to structured data and DOM heuristics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rootConfig = cfg
			return setupLogger(cfg)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	flags.StringVar(&flagDataDir, "data-dir", "", "Data directory for saved results (overrides config)")
	flags.StringVar(&flagUserAgent, "user-agent", "", "User-Agent sent to sites (overrides config)")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.BoolVar(&flagNoRobots, "no-robots", false, "Do not consult robots.txt")
	flags.BoolVar(&flagVerbose, "verbose", false, "Enable verbose output and debug logging")

	cmd.AddCommand(
		newExtractCmd(),
		newBatchCmd(),
		newRobotsCmd(),
		newServeCmd(),
		newPublishCmd(),
		newSavedCmd(),
		newResultsCmd(),
	)
	return cmd
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var pe *extract.PolicyError
	if errors.As(err, &pe) {
		return ExitBlocked
	}
	return ExitError
}

// Execute runs the CLI
func Execute() {
	err := NewRootCmd().Execute()
	code := exitCode(err)
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	os.Exit(code)
}
