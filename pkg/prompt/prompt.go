// Package prompt fills in job parameters of newly added workflows.
package prompt

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/xrsl/wfsync/pkg/cache"
	clog "github.com/xrsl/wfsync/pkg/log"
	"github.com/xrsl/wfsync/pkg/workflow"
)

// Prompter walks a workflow's "with" parameters and substitutes answers.
// Each parameter name is asked at most once for the lifetime of its cache.
type Prompter struct {
	input   Provider
	answers *cache.Store[*yaml.Node]
	out     io.Writer
}

// New returns a Prompter. A nil answers store gets a fresh one.
func New(input Provider, answers *cache.Store[*yaml.Node], out io.Writer) *Prompter {
	if answers == nil {
		answers = cache.New[*yaml.Node]()
	}
	if out == nil {
		out = io.Discard
	}
	return &Prompter{input: input, answers: answers, out: out}
}

// Preset records an answer up front so name is never asked. It reports
// false when name already has an answer.
func (p *Prompter) Preset(name, value string) bool {
	return p.answers.Put(name, workflow.String(value))
}

// Answered lists parameter names with a recorded answer.
func (p *Prompter) Answered() []string {
	return p.answers.Keys()
}

// Fill resolves every job parameter in doc, in document order.
func (p *Prompter) Fill(ctx context.Context, doc *workflow.Document) error {
	for _, job := range doc.Jobs() {
		params, err := job.Params()
		if err != nil {
			return err
		}
		if len(params) == 0 {
			continue
		}

		fmt.Fprintf(p.out, "\nUpdating parameters for job '%s':\n", job.Name)
		for _, param := range params {
			value, err := p.answers.Resolve(param.Name, func() (*yaml.Node, error) {
				return p.ask(ctx, param)
			})
			if err != nil {
				return err
			}
			param.Replace(value)
		}
	}
	return nil
}

func (p *Prompter) ask(ctx context.Context, param workflow.Param) (*yaml.Node, error) {
	answer, err := p.input.Ask(ctx, param.Name, param.Default())
	if err != nil {
		return nil, err
	}
	if answer == "" {
		clog.Debug("keeping default", "param", param.Name, "value", param.Default())
		return workflow.Clone(param.Node()), nil
	}
	clog.Debug("parameter overridden", "param", param.Name, "value", answer)
	return workflow.String(answer), nil
}
