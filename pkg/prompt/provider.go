package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/xrsl/wfsync/pkg/style"
)

var (
	// ErrInputClosed is returned when input ends before an answer is read.
	ErrInputClosed = errors.New("prompt: input closed")
	// ErrAborted is returned when the user cancels an interactive form.
	ErrAborted = errors.New("prompt: aborted by user")
)

// Provider supplies a value for one parameter. An empty answer means the
// default should be kept.
type Provider interface {
	Ask(ctx context.Context, name, def string) (string, error)
}

// Line asks on a line-oriented reader, one parameter per line.
type Line struct {
	in  *bufio.Reader
	out io.Writer
}

var _ Provider = (*Line)(nil)

func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewReader(in), out: out}
}

func (l *Line) Ask(ctx context.Context, name, def string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(l.out, "%s Enter value for '%s' %s: ",
		style.C(style.Green, "?"), name, style.C(style.Cyan, "(default: "+def+")"))

	line, err := l.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read answer for %s: %w", name, err)
		}
		if line == "" {
			fmt.Fprintln(l.out)
			return "", fmt.Errorf("answer for %s: %w", name, ErrInputClosed)
		}
	}
	return strings.TrimSpace(line), nil
}

// Defaults accepts every default without asking.
type Defaults struct{}

var _ Provider = Defaults{}

func (Defaults) Ask(ctx context.Context, name, def string) (string, error) {
	return "", ctx.Err()
}

// Form asks through a single-field terminal form.
type Form struct {
	accessible bool
}

var _ Provider = (*Form)(nil)

// NewForm returns a Form provider. Accessible mode replaces the TUI with
// plain prompts for screen readers.
func NewForm(accessible bool) *Form {
	return &Form{accessible: accessible}
}

func (f *Form) Ask(ctx context.Context, name, def string) (string, error) {
	var value string
	input := huh.NewInput().
		Title(fmt.Sprintf("Enter value for '%s'", name)).
		Description("Leave empty to keep the default: " + def).
		Placeholder(def).
		Value(&value)

	form := huh.NewForm(huh.NewGroup(input)).
		WithAccessible(f.accessible).
		WithShowHelp(false)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("answer for %s: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}
