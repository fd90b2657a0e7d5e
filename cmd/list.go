package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrsl/wfsync/pkg/config"
	"github.com/xrsl/wfsync/pkg/signal"
	"github.com/xrsl/wfsync/pkg/style"
	"github.com/xrsl/wfsync/pkg/workflow"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the central workflow templates",
	Long: `List the workflow templates in the configured repository, with the job
parameters each one asks for when it is first added.

Examples:
  wfsync list
  wfsync list --config ci/.wfsync.yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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
	templates, err := src.Templates(ctx)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(templates) == 0 {
		fmt.Fprintf(w, "No templates in %s\n", templateRepo(cfg))
		return nil
	}
	for _, t := range templates {
		fmt.Fprintf(w, "%s %s\n", style.C(style.Cyan, t.Name), style.C(style.Gray, fmt.Sprintf("(%d lines)", bytes.Count(t.Content, []byte("\n")))))

		doc, err := workflow.Parse(t.Content)
		if err != nil {
			fmt.Fprintf(w, "    %s\n", style.C(style.Red, err.Error()))
			continue
		}
		for _, job := range doc.Jobs() {
			params, err := job.Params()
			if err != nil {
				fmt.Fprintf(w, "    %s: %s\n", job.Name, style.C(style.Red, err.Error()))
				continue
			}
			for _, p := range params {
				fmt.Fprintf(w, "    %s.%s %s\n", job.Name, p.Name, style.C(style.Gray, "(default: "+p.Default()+")"))
			}
		}
	}
	return nil
}
