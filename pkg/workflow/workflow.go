package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// DefaultTriggerKey is the top-level key holding a workflow's event triggers.
const DefaultTriggerKey = "on"

var (
	// ErrNotMapping is returned when a document's root is not a mapping.
	ErrNotMapping = errors.New("workflow: document root is not a mapping")
	// ErrNonScalarParam is returned for a "with" entry whose value is a
	// mapping or sequence.
	ErrNonScalarParam = errors.New("workflow: parameter value is not a scalar")
	// ErrInvalidWith is returned when a job's "with" is not a mapping.
	ErrInvalidWith = errors.New("workflow: \"with\" is not a mapping")
)

// Document is a parsed workflow file.
type Document struct {
	root *yaml.Node
}

// Parse decodes a workflow file. Only the first YAML document is read.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	return &Document{root: &root}, nil
}

func (d *Document) mapping() *yaml.Node {
	return d.root.Content[0]
}

// Get returns the value node of a top-level key, or nil when absent.
func (d *Document) Get(key string) *yaml.Node {
	return lookup(d.mapping(), key)
}

// Set replaces the value of a top-level key with a copy of value, appending
// the key when the document does not have it yet.
func (d *Document) Set(key string, value *yaml.Node) {
	m := d.mapping()
	v := Clone(value)
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Kind == yaml.ScalarNode && m.Content[i].Value == key {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		v,
	)
}

// Keys lists the top-level keys in document order.
func (d *Document) Keys() []string {
	m := d.mapping()
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

// SameValue reports whether both documents hold semantically equal values
// under key. Formatting, quoting and comments are ignored. Two documents
// without the key are equal.
func (d *Document) SameValue(other *Document, key string) (bool, error) {
	a, b := d.Get(key), other.Get(key)
	if a == nil || b == nil {
		return a == nil && b == nil, nil
	}
	var av, bv any
	if err := a.Decode(&av); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	if err := b.Decode(&bv); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return reflect.DeepEqual(av, bv), nil
}

// Encode renders the document with two-space indentation.
func (d *Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.root); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Job is one entry of the top-level "jobs" mapping.
type Job struct {
	Name string
	node *yaml.Node
}

// Jobs returns the document's jobs in order. Jobs whose body is not a
// mapping are still listed but carry no parameters.
func (d *Document) Jobs() []Job {
	jobs := d.Get("jobs")
	if jobs == nil || jobs.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]Job, 0, len(jobs.Content)/2)
	for i := 0; i+1 < len(jobs.Content); i += 2 {
		out = append(out, Job{Name: jobs.Content[i].Value, node: jobs.Content[i+1]})
	}
	return out
}

// Param is one "with" entry of a job.
type Param struct {
	Name  string
	value *yaml.Node
}

// Params returns the job's "with" entries in order, or nil when the job
// declares none.
func (j Job) Params() ([]Param, error) {
	if j.node == nil || j.node.Kind != yaml.MappingNode {
		return nil, nil
	}
	with := lookup(j.node, "with")
	if with == nil {
		return nil, nil
	}
	if with.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("job %q: %w", j.Name, ErrInvalidWith)
	}
	params := make([]Param, 0, len(with.Content)/2)
	for i := 0; i+1 < len(with.Content); i += 2 {
		name, value := with.Content[i].Value, with.Content[i+1]
		if value.Kind == yaml.AliasNode {
			value = value.Alias
		}
		if value == nil || value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("job %q parameter %q: %w", j.Name, name, ErrNonScalarParam)
		}
		params = append(params, Param{Name: name, value: with.Content[i+1]})
	}
	return params, nil
}

// Default is the parameter's current value as written in the file.
func (p Param) Default() string {
	v := p.value
	if v.Kind == yaml.AliasNode {
		v = v.Alias
	}
	if v.Tag == "!!null" && v.Value == "" {
		return "null"
	}
	return v.Value
}

// Node returns the parameter's value node, following an alias to its anchor.
func (p Param) Node() *yaml.Node {
	if p.value.Kind == yaml.AliasNode && p.value.Alias != nil {
		return p.value.Alias
	}
	return p.value
}

// Replace overwrites the parameter's value in place. Comments attached to
// the old value are kept.
func (p Param) Replace(v *yaml.Node) {
	c := Clone(v)
	c.HeadComment, c.LineComment, c.FootComment = p.value.HeadComment, p.value.LineComment, p.value.FootComment
	*p.value = *c
}

// String builds a scalar node holding s as a YAML string. Values that would
// otherwise read as numbers or booleans are quoted on encode.
func String(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// Clone deep-copies a node tree so it can be placed in another document.
// Aliases are expanded into copies of their anchored nodes and anchors are
// dropped; the copy references nothing outside itself.
func Clone(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return Clone(n.Alias)
	}
	c := *n
	c.Anchor = ""
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = Clone(child)
		}
	}
	return &c
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Kind == yaml.ScalarNode && m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
