// Package source retrieves workflow templates from the central repository.
package source

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidName is returned for a template name that is not a plain file
// name inside the template directory.
var ErrInvalidName = errors.New("source: invalid template name")

// CheckName rejects names carrying a path separator or naming a directory
// entry like "..". Template names become local file names as they are.
func CheckName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Template is one remote workflow file.
type Template struct {
	Name    string
	Content []byte
}

// Source lists and fetches every YAML template in the configured directory.
// Results are sorted by name.
type Source interface {
	Templates(ctx context.Context) ([]Template, error)
}

// Repo locates the template directory.
type Repo struct {
	Owner string
	Name  string
	Dir   string
	Ref   string // branch; empty means the default branch
}

// ParseRepo splits "owner/name".
func ParseRepo(s string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q (expected owner/name)", s)
	}
	return parts[0], parts[1], nil
}

func (r Repo) String() string {
	s := r.Owner + "/" + r.Name + ":" + strings.Trim(r.Dir, "/")
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

func sortTemplates(ts []Template) {
	slices.SortFunc(ts, func(a, b Template) int {
		return strings.Compare(a.Name, b.Name)
	})
}
