package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xrsl/wfsync/pkg/config"
	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/style"
)

var (
	verbose    bool
	quiet      bool
	logJSON    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "wfsync",
	Short: "Sync GitHub Actions workflows with central templates",
	Long: `wfsync keeps .github/workflows in line with a central template repository.

Templates missing locally are added, after asking for their job parameters.
Workflows present on both sides get the template's trigger section; the rest
of the local file is left alone. Local workflows without a template are
removed.

Examples:
  wfsync                          # sync, prompting for new parameters
  wfsync -y                       # sync, keeping every default
  wfsync --set python-version=3.12
  wfsync status                   # show what a sync would do`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		clog.SetVerbose(verbose)
		clog.SetQuiet(quiet)
		clog.SetJSON(logJSON)
		if configPath != "" {
			return config.Use(configPath)
		}
		return nil
	},
	RunE: runSync,
}

// syncFailure marks errors of the sync itself. They are reported but only
// change the exit status with --exit-code.
type syncFailure struct {
	err error
}

func (e *syncFailure) Error() string { return e.err.Error() }
func (e *syncFailure) Unwrap() error { return e.err }

func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s%v\n", style.Fail("Error"), err)

	var sf *syncFailure
	if errors.As(err, &sf) && !syncOpts.exitCode {
		return
	}
	os.Exit(1)
}

func init() {
	// Setup Typer-style help formatting
	style.SetupHelp(rootCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs to stderr as JSON lines")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default .wfsync.yaml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.Flags().BoolVarP(&syncOpts.yes, "yes", "y", false, "Keep every parameter default without asking")
	rootCmd.Flags().StringArrayVar(&syncOpts.sets, "set", nil, "Preset a parameter as name=value (repeatable)")
	rootCmd.Flags().BoolVar(&syncOpts.plain, "plain", false, "Ask with plain line prompts even on a terminal")
	rootCmd.Flags().BoolVar(&syncOpts.exitCode, "exit-code", false, "Exit with status 1 when the sync fails")
}
