// Package reconcile brings a local workflow directory in line with the
// central templates.
//
// Membership follows the templates: every template gets a local file and
// local YAML files without a template are removed. For files present on both
// sides only the trigger section is synchronized; everything else in the
// local file belongs to the project.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/source"
	"github.com/xrsl/wfsync/pkg/style"
	"github.com/xrsl/wfsync/pkg/utils"
	"github.com/xrsl/wfsync/pkg/workflow"
)

// Action is what happens to one workflow file.
type Action int

const (
	Skip Action = iota
	UpdateTrigger
	Create
	Delete
)

func (a Action) String() string {
	switch a {
	case Skip:
		return "skip"
	case UpdateTrigger:
		return "update-trigger"
	case Create:
		return "create"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ErrMissingTrigger is returned when a template lacks the trigger section
// that the local copy still has.
var ErrMissingTrigger = errors.New("reconcile: template has no trigger section")

// Decide picks the action for one template given the local document, which
// is nil when no local file exists. It reads both documents and changes
// neither.
func Decide(key string, remote, local *workflow.Document) (Action, error) {
	if local == nil {
		return Create, nil
	}
	same, err := local.SameValue(remote, key)
	if err != nil {
		return Skip, err
	}
	if same {
		return Skip, nil
	}
	if remote.Get(key) == nil {
		return Skip, ErrMissingTrigger
	}
	return UpdateTrigger, nil
}

// Filler fills in parameters of a workflow before it is first written.
type Filler interface {
	Fill(ctx context.Context, doc *workflow.Document) error
}

// Change is one planned file operation.
type Change struct {
	Name   string
	Action Action

	remote *workflow.Document
	local  *workflow.Document
}

// Report lists file names by outcome.
type Report struct {
	Added     []string
	Updated   []string
	Unchanged []string
	Removed   []string
}

// Changed reports whether any file was written or removed.
func (r *Report) Changed() bool {
	return len(r.Added)+len(r.Updated)+len(r.Removed) > 0
}

// Syncer reconciles one local workflow directory.
type Syncer struct {
	dir        string
	triggerKey string
	params     Filler
	out        io.Writer
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithTriggerKey overrides the top-level key compared and copied.
func WithTriggerKey(key string) Option {
	return func(s *Syncer) {
		if key != "" {
			s.triggerKey = key
		}
	}
}

// WithOutput sets where per-file status lines go. Default discards them.
func WithOutput(w io.Writer) Option {
	return func(s *Syncer) {
		if w != nil {
			s.out = w
		}
	}
}

// New returns a Syncer for dir. params may be nil, in which case new
// workflows are written exactly as the template has them.
func New(dir string, params Filler, opts ...Option) *Syncer {
	s := &Syncer{
		dir:        dir,
		triggerKey: workflow.DefaultTriggerKey,
		params:     params,
		out:        io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan compares templates with the local directory without touching it.
// Changes for templates come first in template order, then deletions in
// name order.
func (s *Syncer) Plan(ctx context.Context, templates []source.Template) ([]Change, error) {
	localNames, err := utils.ListYAML(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	remoteNames := make(map[string]bool, len(templates))
	changes := make([]Change, 0, len(templates))
	for _, t := range templates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := source.CheckName(t.Name); err != nil {
			return nil, err
		}
		if remoteNames[t.Name] {
			return nil, fmt.Errorf("duplicate template %s", t.Name)
		}
		remoteNames[t.Name] = true

		remote, err := workflow.Parse(t.Content)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Name, err)
		}

		var local *workflow.Document
		path := filepath.Join(s.dir, t.Name)
		if utils.FileExists(path) {
			data, err := utils.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if local, err = workflow.Parse(data); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}

		action, err := Decide(s.triggerKey, remote, local)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name, err)
		}
		if action == Create {
			if err := checkParams(remote); err != nil {
				return nil, fmt.Errorf("template %s: %w", t.Name, err)
			}
		}
		clog.Debug("planned", "file", t.Name, "action", action)
		changes = append(changes, Change{Name: t.Name, Action: action, remote: remote, local: local})
	}

	for _, name := range localNames {
		if !remoteNames[name] {
			changes = append(changes, Change{Name: name, Action: Delete})
		}
	}
	return changes, nil
}

// Apply carries out a plan produced by Plan. It stops at the first error
// and returns what was done so far.
func (s *Syncer) Apply(ctx context.Context, changes []Change) (*Report, error) {
	report := &Report{}
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		path := filepath.Join(s.dir, c.Name)

		switch c.Action {
		case Skip:
			fmt.Fprintf(s.out, "%s No changes needed for %s\n", style.Unchanged(), c.Name)
			report.Unchanged = append(report.Unchanged, c.Name)

		case UpdateTrigger:
			c.local.Set(s.triggerKey, c.remote.Get(s.triggerKey))
			if err := s.write(path, c.local); err != nil {
				return report, err
			}
			fmt.Fprintf(s.out, "%s Updated triggers in %s\n", style.Updated(), c.Name)
			report.Updated = append(report.Updated, c.Name)

		case Create:
			if s.params != nil {
				if err := s.params.Fill(ctx, c.remote); err != nil {
					return report, fmt.Errorf("%s: %w", c.Name, err)
				}
			}
			if err := s.write(path, c.remote); err != nil {
				return report, err
			}
			fmt.Fprintf(s.out, "%s Added new workflow %s\n", style.Added(), c.Name)
			report.Added = append(report.Added, c.Name)

		case Delete:
			if err := os.Remove(path); err != nil {
				return report, fmt.Errorf("remove %s: %w", path, err)
			}
			fmt.Fprintf(s.out, "%s Removed workflow %s\n", style.Removed(), c.Name)
			report.Removed = append(report.Removed, c.Name)

		default:
			return report, fmt.Errorf("%s: unknown action %v", c.Name, c.Action)
		}
	}
	return report, nil
}

// Run creates the directory if needed, plans, and applies.
func (s *Syncer) Run(ctx context.Context, templates []source.Template) (*Report, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", s.dir, err)
	}
	changes, err := s.Plan(ctx, templates)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, changes)
}

// Names returns the names of changes with the given action.
func Names(changes []Change, action Action) []string {
	var names []string
	for _, c := range changes {
		if c.Action == action {
			names = append(names, c.Name)
		}
	}
	return names
}

// checkParams fails on any job whose parameters could not be filled in, so a
// bad template stops the run before the first file is written.
func checkParams(doc *workflow.Document) error {
	for _, job := range doc.Jobs() {
		if _, err := job.Params(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) write(path string, doc *workflow.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := utils.WriteFile(path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
