package reconcile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/xrsl/wfsync/pkg/prompt"
	"github.com/xrsl/wfsync/pkg/source"
	"github.com/xrsl/wfsync/pkg/utils"
	"github.com/xrsl/wfsync/pkg/workflow"
)

const templateA = `name: Tests
on:
  push:
    branches: [main]
jobs:
  build:
    uses: org/templates/.github/workflows/build.yml@main
    with:
      python-version: "3.9"
`

const templateB = `name: Docs
on:
  release:
    types: [published]
jobs:
  docs:
    uses: org/templates/.github/workflows/docs.yml@main
    with:
      python-version: "3.9"
      deploy: true
`

// answers is a Provider returning canned values and counting questions.
type answers struct {
	values map[string]string
	asked  map[string]int
}

func newAnswers(values map[string]string) *answers {
	return &answers{values: values, asked: map[string]int{}}
}

func (a *answers) Ask(_ context.Context, name, _ string) (string, error) {
	a.asked[name]++
	return a.values[name], nil
}

func writeLocal(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func readLocal(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func tmpl(name, content string) source.Template {
	return source.Template{Name: name, Content: []byte(content)}
}

func parse(t *testing.T, s string) *workflow.Document {
	t.Helper()
	d, err := workflow.Parse([]byte(s))
	require.NoError(t, err)
	return d
}

func TestDecide(t *testing.T) {
	key := workflow.DefaultTriggerKey
	remote := parse(t, templateA)

	tests := []struct {
		name    string
		local   *workflow.Document
		want    Action
		wantErr error
	}{
		{name: "no local file", local: nil, want: Create},
		{name: "same triggers", local: parse(t, "on:\n  push:\n    branches: [\"main\"]\njobs: {}\n"), want: Skip},
		{name: "different triggers", local: parse(t, "on: [push, pull_request]\n"), want: UpdateTrigger},
		{name: "local without triggers", local: parse(t, "name: x\n"), want: UpdateTrigger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decide(key, remote, tt.local)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("template without triggers", func(t *testing.T) {
		_, err := Decide(key, parse(t, "name: x\n"), parse(t, "on: push\n"))
		assert.ErrorIs(t, err, ErrMissingTrigger)
	})

	t.Run("neither has triggers", func(t *testing.T) {
		got, err := Decide(key, parse(t, "name: x\n"), parse(t, "name: y\n"))
		require.NoError(t, err)
		assert.Equal(t, Skip, got)
	})
}

func TestDecideDoesNotMutate(t *testing.T) {
	remote := parse(t, templateA)
	local := parse(t, "on: workflow_dispatch\n")
	before, err := local.Encode()
	require.NoError(t, err)

	_, err = Decide(workflow.DefaultTriggerKey, remote, local)
	require.NoError(t, err)

	after, err := local.Encode()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunMembership(t *testing.T) {
	dir := t.TempDir()
	localA := "# project copy\nname: Tests\non:\n  push:\n    branches: [main]\njobs:\n  build:\n    with:\n      python-version: '3.12'\n"
	writeLocal(t, dir, "a.yml", localA)
	writeLocal(t, dir, "c.yml", "on: push\n")
	writeLocal(t, dir, "README.md", "keep me\n")

	in := newAnswers(map[string]string{})
	var out bytes.Buffer
	s := New(dir, prompt.New(in, nil, &out), WithOutput(&out))

	report, err := s.Run(context.Background(), []source.Template{tmpl("a.yml", templateA), tmpl("b.yml", templateB)})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.yml"}, report.Unchanged)
	assert.Equal(t, []string{"b.yml"}, report.Added)
	assert.Equal(t, []string{"c.yml"}, report.Removed)
	assert.Empty(t, report.Updated)
	assert.True(t, report.Changed())

	assert.Equal(t, localA, readLocal(t, dir, "a.yml"), "matching file must be byte-identical")
	assert.NoFileExists(t, filepath.Join(dir, "c.yml"))
	assert.FileExists(t, filepath.Join(dir, "README.md"))

	names, err := utils.ListYAML(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml", "b.yml"}, names)

	assert.Contains(t, out.String(), "No changes needed for a.yml")
	assert.Contains(t, out.String(), "Added new workflow b.yml")
	assert.Contains(t, out.String(), "Removed workflow c.yml")
}

func TestRunUpdatesOnlyTriggers(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.yml", `name: Project tests
on: [push]
env:
  FOO: bar
jobs:
  build:
    uses: org/templates/.github/workflows/build.yml@main
    with:
      python-version: "3.12" # pinned
  extra:
    runs-on: ubuntu-latest
    steps:
      - run: echo hi
`)

	in := newAnswers(nil)
	s := New(dir, prompt.New(in, nil, nil))
	report, err := s.Run(context.Background(), []source.Template{tmpl("a.yml", templateA)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml"}, report.Updated)
	assert.Empty(t, in.asked, "updates never prompt")

	got := parse(t, readLocal(t, dir, "a.yml"))
	assert.Equal(t, []string{"name", "on", "env", "jobs"}, got.Keys())

	same, err := got.SameValue(parse(t, templateA), workflow.DefaultTriggerKey)
	require.NoError(t, err)
	assert.True(t, same)

	var doc struct {
		Name string            `yaml:"name"`
		Env  map[string]string `yaml:"env"`
		Jobs map[string]struct {
			With map[string]any `yaml:"with"`
		} `yaml:"jobs"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(readLocal(t, dir, "a.yml")), &doc))
	assert.Equal(t, "Project tests", doc.Name)
	assert.Equal(t, "bar", doc.Env["FOO"])
	assert.Equal(t, "3.12", doc.Jobs["build"].With["python-version"])
	assert.Contains(t, doc.Jobs, "extra")
	assert.Contains(t, readLocal(t, dir, "a.yml"), "# pinned")
}

func TestRunCreatePromptsOncePerName(t *testing.T) {
	dir := t.TempDir()
	in := newAnswers(map[string]string{"python-version": "3.10"})
	s := New(dir, prompt.New(in, nil, nil))

	_, err := s.Run(context.Background(), []source.Template{tmpl("a.yml", templateA), tmpl("b.yml", templateB)})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"python-version": 1, "deploy": 1}, in.asked)

	var doc struct {
		Jobs map[string]struct {
			With map[string]any `yaml:"with"`
		} `yaml:"jobs"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(readLocal(t, dir, "a.yml")), &doc))
	assert.Equal(t, "3.10", doc.Jobs["build"].With["python-version"])

	require.NoError(t, yaml.Unmarshal([]byte(readLocal(t, dir, "b.yml")), &doc))
	assert.Equal(t, "3.10", doc.Jobs["docs"].With["python-version"])
	assert.Equal(t, true, doc.Jobs["docs"].With["deploy"])
}

func TestRunCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".github", "workflows")
	s := New(dir, nil)

	report, err := s.Run(context.Background(), []source.Template{tmpl("a.yml", templateA)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml"}, report.Added)
	assert.Contains(t, readLocal(t, dir, "a.yml"), `python-version: "3.9"`)
}

func TestRunEmptyTemplatesRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.yml", "on: push\n")
	writeLocal(t, dir, "b.yaml", "on: push\n")

	report, err := New(dir, nil).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml", "b.yaml"}, report.Removed)
}

func TestRunInvalidTemplateAbortsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "c.yml", "on: push\n")

	_, err := New(dir, nil).Run(context.Background(), []source.Template{
		tmpl("a.yml", templateA),
		tmpl("bad.yml", "on: [push\n"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yml")
	assert.NoFileExists(t, filepath.Join(dir, "a.yml"))
	assert.FileExists(t, filepath.Join(dir, "c.yml"))
}

func TestRunInvalidLocalFile(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.yml", "- not\n- a mapping\n")

	_, err := New(dir, nil).Run(context.Background(), []source.Template{tmpl("a.yml", templateA)})
	assert.ErrorIs(t, err, workflow.ErrNotMapping)
}

func TestRunNonScalarParam(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "z.yml", "on: push\n")
	bad := "on: push\njobs:\n  a:\n    with:\n      matrix: {a: 1}\n"

	in := newAnswers(nil)
	_, err := New(dir, prompt.New(in, nil, nil)).Run(context.Background(), []source.Template{
		tmpl("a.yml", templateA),
		tmpl("b.yml", bad),
	})
	assert.ErrorIs(t, err, workflow.ErrNonScalarParam)
	assert.Contains(t, err.Error(), "b.yml")
	assert.NoFileExists(t, filepath.Join(dir, "a.yml"))
	assert.NoFileExists(t, filepath.Join(dir, "b.yml"))
	assert.FileExists(t, filepath.Join(dir, "z.yml"))
	assert.Empty(t, in.asked, "nothing is asked before the plan is valid")
}

func TestRunRejectsPathInName(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "wf")

	for _, name := range []string{"../escaped.yml", "sub/a.yml", ".."} {
		_, err := New(dir, nil).Run(context.Background(), []source.Template{tmpl(name, templateA)})
		assert.ErrorIs(t, err, source.ErrInvalidName, name)
	}
	assert.NoFileExists(t, filepath.Join(root, "escaped.yml"))
	assert.NoDirExists(t, filepath.Join(dir, "sub"))
}

func TestRunUpdateExpandsAliasedTrigger(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.yml", "on: push\njobs: {}\n")
	remote := "x-triggers: &t\n  push:\n    branches: [main]\non: *t\njobs: {}\n"

	report, err := New(dir, nil).Run(context.Background(), []source.Template{tmpl("a.yml", remote)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml"}, report.Updated)

	got := readLocal(t, dir, "a.yml")
	assert.NotContains(t, got, "*t")
	local := parse(t, got)
	same, err := local.SameValue(parse(t, remote), workflow.DefaultTriggerKey)
	require.NoError(t, err)
	assert.True(t, same)

	report, err = New(dir, nil).Run(context.Background(), []source.Template{tmpl("a.yml", remote)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml"}, report.Unchanged)
}

func TestRunDuplicateTemplate(t *testing.T) {
	_, err := New(t.TempDir(), nil).Run(context.Background(), []source.Template{
		tmpl("a.yml", templateA), tmpl("a.yml", templateB),
	})
	assert.Error(t, err)
}

func TestPlanIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.yml", "on: [push]\n")
	writeLocal(t, dir, "c.yml", "on: push\n")

	in := newAnswers(nil)
	s := New(dir, prompt.New(in, nil, nil))
	changes, err := s.Plan(context.Background(), []source.Template{tmpl("a.yml", templateA), tmpl("b.yml", templateB)})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.yml"}, Names(changes, UpdateTrigger))
	assert.Equal(t, []string{"b.yml"}, Names(changes, Create))
	assert.Equal(t, []string{"c.yml"}, Names(changes, Delete))
	assert.Empty(t, Names(changes, Skip))

	assert.Equal(t, "on: [push]\n", readLocal(t, dir, "a.yml"))
	assert.NoFileExists(t, filepath.Join(dir, "b.yml"))
	assert.FileExists(t, filepath.Join(dir, "c.yml"))
	assert.Empty(t, in.asked)
}

func TestCustomTriggerKey(t *testing.T) {
	dir := t.TempDir()
	writeLocal(t, dir, "a.yml", "name: x\ntriggers: old\non: keep\n")

	s := New(dir, nil, WithTriggerKey("triggers"))
	report, err := s.Run(context.Background(), []source.Template{tmpl("a.yml", "triggers: new\non: other\n")})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml"}, report.Updated)

	got := readLocal(t, dir, "a.yml")
	assert.Contains(t, got, "triggers: new")
	assert.Contains(t, got, "on: keep")
}

func TestApplyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	report, err := New(dir, nil).Apply(ctx, []Change{{Name: "a.yml", Action: Delete}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Removed)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "skip", Skip.String())
	assert.Equal(t, "update-trigger", UpdateTrigger.String())
	assert.Equal(t, "create", Create.String())
	assert.Equal(t, "delete", Delete.String())
	assert.Equal(t, "Action(9)", Action(9).String())
}
