package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xrsl/wfsync/pkg/config"
	"github.com/xrsl/wfsync/pkg/signal"
	"github.com/xrsl/wfsync/pkg/style"
	"github.com/xrsl/wfsync/pkg/utils"
	"github.com/xrsl/wfsync/pkg/workflow"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check wfsync setup",
	Long:  `Verify the configuration, credentials and template repository that a sync needs.`,
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func checkOK(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", style.C(style.Green, "✓"), fmt.Sprintf(format, a...))
}

func checkWarn(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", style.C(style.Yellow, "⚠"), fmt.Sprintf(format, a...))
}

func checkFail(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", style.C(style.Red, "✗"), fmt.Sprintf(format, a...))
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.WithInterrupt(cmd.Context())
	defer cancel()

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n\n", style.Title("Checking wfsync setup"))

	// Check 1: config loads and validates
	cfg, err := config.Load()
	if err != nil {
		checkFail(w, "config: %v", err)
		return errors.New("setup issues detected")
	}
	if utils.FileExists(config.Path()) {
		checkOK(w, "config %s", config.Path())
	} else {
		checkOK(w, "config defaults (no %s)", config.Path())
	}

	allGood := true

	// Check 2: credentials
	if cfg.Token != "" {
		checkOK(w, "GitHub token set")
	} else {
		checkWarn(w, "no GitHub token (GITHUB_TOKEN); unauthenticated requests are rate limited")
	}

	// Check 3: templates reachable and parseable
	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	templates, err := src.Templates(ctx)
	switch {
	case err != nil:
		checkFail(w, "templates in %s: %v", templateRepo(cfg), err)
		allGood = false
	case len(templates) == 0:
		checkWarn(w, "no templates in %s; a sync would remove every local workflow", templateRepo(cfg))
	default:
		checkOK(w, "%d templates in %s", len(templates), templateRepo(cfg))
		for _, t := range templates {
			doc, err := workflow.Parse(t.Content)
			if err != nil {
				checkFail(w, "  %s: %v", t.Name, err)
				allGood = false
				continue
			}
			if doc.Get(cfg.TriggerKey) == nil {
				checkWarn(w, "  %s has no %q section", t.Name, cfg.TriggerKey)
			}
		}
	}

	// Check 4: workflow directory
	dir := cfg.WorkflowDir
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		checkFail(w, "%s is not a directory", dir)
		allGood = false
	} else if err == nil {
		names, _ := utils.ListYAML(dir)
		checkOK(w, "%s (%d workflows)", dir, len(names))
	} else {
		checkWarn(w, "%s does not exist yet; it will be created", filepath.Clean(dir))
	}

	fmt.Fprintln(w)
	if !allGood {
		return errors.New("setup issues detected")
	}
	checkOK(w, "Setup OK")
	return nil
}
