package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xrsl/wfsync/pkg/config"
	"github.com/xrsl/wfsync/pkg/gh"
	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/prompt"
	"github.com/xrsl/wfsync/pkg/reconcile"
	"github.com/xrsl/wfsync/pkg/retry"
	"github.com/xrsl/wfsync/pkg/signal"
	"github.com/xrsl/wfsync/pkg/source"
	"github.com/xrsl/wfsync/pkg/style"
)

type syncOptions struct {
	yes      bool
	plain    bool
	exitCode bool
	sets     []string
}

var syncOpts syncOptions

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.WithInterrupt(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	err := func() error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		src, err := newSource(cfg)
		if err != nil {
			return err
		}
		input := newProvider(cmd.InOrStdin(), out)
		_, err = syncWorkflows(ctx, cfg, src, input, syncOpts.sets, out)
		return err
	}()
	if err != nil {
		if sig := signal.Cause(ctx); sig != nil {
			err = fmt.Errorf("%w (%s)", err, sig)
		}
		return &syncFailure{err: err}
	}
	fmt.Fprintln(out, style.C(style.Green, "Workflow synchronization completed successfully"))
	return nil
}

// syncWorkflows fetches the templates and reconciles the workflow directory.
func syncWorkflows(ctx context.Context, cfg *config.Config, src source.Source, input prompt.Provider, sets []string, out io.Writer) (*reconcile.Report, error) {
	p := prompt.New(input, nil, out)
	if err := preset(p, sets, cfg.Params); err != nil {
		return nil, err
	}

	clog.Debug("fetching templates", "repo", cfg.Repo, "dir", cfg.TemplateDir, "source", cfg.Source)
	templates, err := src.Templates(ctx)
	if err != nil {
		return nil, err
	}
	clog.Debug("fetched templates", "count", len(templates))

	s := reconcile.New(cfg.WorkflowDir, p,
		reconcile.WithTriggerKey(cfg.TriggerKey),
		reconcile.WithOutput(out))
	report, err := s.Run(ctx, templates)
	if err != nil {
		return report, err
	}
	clog.Info("sync finished",
		"added", len(report.Added),
		"updated", len(report.Updated),
		"unchanged", len(report.Unchanged),
		"removed", len(report.Removed))
	return report, nil
}

// preset seeds answers from --set flags, then from config params. The first
// value recorded for a name wins, so flags override the config.
func preset(p *prompt.Prompter, sets []string, params map[string]string) error {
	for _, kv := range sets {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid --set %q (expected name=value)", kv)
		}
		if !p.Preset(name, value) {
			clog.Warn("parameter set twice, keeping the first value", "param", name)
		}
	}
	for name, value := range params {
		p.Preset(name, value)
	}
	return nil
}

func newProvider(in io.Reader, out io.Writer) prompt.Provider {
	switch {
	case syncOpts.yes:
		return prompt.Defaults{}
	case !syncOpts.plain && isTerminal(in):
		return prompt.NewForm(os.Getenv("ACCESSIBLE") != "")
	default:
		return prompt.NewLine(in, out)
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func templateRepo(cfg *config.Config) source.Repo {
	return source.Repo{
		Owner: cfg.Owner(),
		Name:  cfg.Name(),
		Dir:   cfg.TemplateDir,
		Ref:   cfg.Ref,
	}
}

func newSource(cfg *config.Config) (source.Source, error) {
	repo := templateRepo(cfg)
	switch cfg.Source {
	case "git":
		return source.NewGit("", repo, source.WithGitToken(cfg.Token)), nil
	case "api", "":
		client := gh.New(
			gh.WithBaseURL(cfg.APIURL),
			gh.WithToken(cfg.Token),
			gh.WithUserAgent("wfsync/"+Version),
			gh.WithRetry(retry.DefaultConfig().WithRetries(cfg.Retries)),
			gh.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
		)
		return source.NewAPI(client, repo), nil
	default:
		return nil, fmt.Errorf("unknown source %q (expected api or git)", cfg.Source)
	}
}
