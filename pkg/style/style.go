// Package style provides consistent terminal styling for the wfsync CLI.
package style

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ANSI color codes
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"

	Red    = "\033[0;31m"
	Green  = "\033[0;32m"
	Yellow = "\033[1;33m"
	Blue   = "\033[0;34m"
	Cyan   = "\033[0;36m"
	Gray   = "\033[90m"
)

// NoColor disables colors (non-TTY stdout, NO_COLOR or WFSYNC_NO_COLOR)
var NoColor = false

func init() {
	if os.Getenv("WFSYNC_NO_COLOR") != "" || os.Getenv("NO_COLOR") != "" {
		NoColor = true
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		NoColor = true
	}
}

// C wraps text with color, respecting NoColor setting
func C(color, text string) string {
	if NoColor {
		return text
	}
	return color + text + Reset
}

// B makes text bold
func B(text string) string {
	if NoColor {
		return text
	}
	return Bold + text + Reset
}

// Status markers for per-file sync results.
func Added() string     { return C(Green, "+") }
func Updated() string   { return C(Yellow, "~") }
func Removed() string   { return C(Red, "-") }
func Unchanged() string { return C(Gray, "=") }

// Fail formats an error label.
func Fail(label string) string {
	return C(Red, label+":") + " "
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	commandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
)

func render(st lipgloss.Style, s string) string {
	if NoColor {
		return s
	}
	return st.Render(s)
}

// Title renders a section title, e.g. the header of "config list".
func Title(s string) string {
	return render(titleStyle, s)
}

// SetupHelp installs help and usage templates with colored headings and
// command names, grouped like Typer's help output.
func SetupHelp(cmd *cobra.Command) {
	cobra.AddTemplateFunc("heading", func(s string) string { return render(headingStyle, s) })
	cobra.AddTemplateFunc("command", func(s string) string { return render(commandStyle, s) })
	cobra.AddTemplateFunc("padCommand", padCommand)

	cmd.SetUsageTemplate(usageTemplate)
	cmd.SetHelpTemplate(helpTemplate)
}

// padCommand styles a command name and pads it by its visible width.
func padCommand(s string, padding int) string {
	styled := render(commandStyle, s)
	if pad := padding - lipgloss.Width(styled); pad > 0 {
		return styled + strings.Repeat(" ", pad)
	}
	return styled
}

const commandList = `{{ heading "Commands:" }}{{range .Commands}}{{if .IsAvailableCommand}}
  {{padCommand .Name .NamePadding }}  {{.Short}}{{end}}{{end}}
`

const usageTemplate = `{{ heading "Usage:" }}
  {{ command .UseLine }}{{if .HasAvailableSubCommands}} [command]{{end}}
{{if .HasAvailableSubCommands}}
` + commandList + `
Run "{{.CommandPath}} [command] --help" for details.{{end}}
`

const helpTemplate = `{{with (or .Long .Short)}}{{.}}

{{end}}{{ heading "Usage:" }}
  {{ command .UseLine }}{{if .HasAvailableSubCommands}} [command]{{end}}
{{if .HasExample}}
{{ heading "Examples:" }}
{{.Example}}
{{end}}{{if .HasAvailableSubCommands}}
` + commandList + `{{end}}{{if .HasAvailableLocalFlags}}
{{ heading "Options:" }}
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if .HasAvailableInheritedFlags}}
{{ heading "Global Options:" }}
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}`
