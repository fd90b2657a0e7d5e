package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xrsl/wfsync/pkg/config"
	"github.com/xrsl/wfsync/pkg/reconcile"
	"github.com/xrsl/wfsync/pkg/signal"
	"github.com/xrsl/wfsync/pkg/source"
	"github.com/xrsl/wfsync/pkg/style"
)

var statusCheck bool

// errOutOfDate is returned by status --check when a sync would change files.
var errOutOfDate = errors.New("workflows are out of date")

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a sync would change",
	Long: `Compare the local workflow directory with the templates without writing
anything or asking for parameters.

Examples:
  wfsync status
  wfsync status --check    # exit 1 when a sync would change files`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "Exit with status 1 when files are out of date")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.WithInterrupt(cmd.Context())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	src, err := newSource(cfg)
	if err != nil {
		return err
	}

	changes, err := plan(ctx, cfg, src)
	if err != nil {
		return err
	}
	pending := printPlan(cmd.OutOrStdout(), cfg, changes)
	if statusCheck && pending {
		return errOutOfDate
	}
	return nil
}

func plan(ctx context.Context, cfg *config.Config, src source.Source) ([]reconcile.Change, error) {
	templates, err := src.Templates(ctx)
	if err != nil {
		return nil, err
	}
	s := reconcile.New(cfg.WorkflowDir, nil, reconcile.WithTriggerKey(cfg.TriggerKey))
	return s.Plan(ctx, templates)
}

// printPlan lists planned changes and reports whether any file would change.
func printPlan(w io.Writer, cfg *config.Config, changes []reconcile.Change) bool {
	fmt.Fprintf(w, "%s %s -> %s\n\n",
		style.C(style.Blue, "→"), style.B(templateRepo(cfg).String()), cfg.WorkflowDir)

	pending := false
	for _, c := range changes {
		var marker, what string
		switch c.Action {
		case reconcile.Create:
			marker, what = style.Added(), "would be added"
		case reconcile.UpdateTrigger:
			marker, what = style.Updated(), "triggers would be updated"
		case reconcile.Delete:
			marker, what = style.Removed(), "would be removed"
		default:
			marker, what = style.Unchanged(), "up to date"
		}
		if c.Action != reconcile.Skip {
			pending = true
		}
		fmt.Fprintf(w, "  %s %-30s %s\n", marker, c.Name, style.C(style.Gray, what))
	}

	if len(changes) == 0 {
		fmt.Fprintln(w, style.C(style.Gray, "  no templates and no local workflows"))
	}
	fmt.Fprintf(w, "\n%d to add, %d to update, %d to remove, %d up to date\n",
		len(reconcile.Names(changes, reconcile.Create)),
		len(reconcile.Names(changes, reconcile.UpdateTrigger)),
		len(reconcile.Names(changes, reconcile.Delete)),
		len(reconcile.Names(changes, reconcile.Skip)))
	return pending
}
