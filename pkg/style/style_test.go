package style

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withColor(t *testing.T, on bool) {
	t.Helper()
	prev := NoColor
	NoColor = !on
	t.Cleanup(func() { NoColor = prev })
}

func TestNoColor(t *testing.T) {
	withColor(t, false)
	assert.Equal(t, "x", C(Red, "x"))
	assert.Equal(t, "x", B("x"))
	assert.Equal(t, "+", Added())
	assert.Equal(t, "Error: ", Fail("Error"))
	assert.Equal(t, "title", Title("title"))
	assert.Equal(t, "ab  ", padCommand("ab", 4))
}

func TestColor(t *testing.T) {
	withColor(t, true)
	assert.Equal(t, Green+"+"+Reset, Added())
	assert.Equal(t, Yellow+"~"+Reset, Updated())
	assert.Equal(t, Red+"-"+Reset, Removed())
	assert.Equal(t, Gray+"="+Reset, Unchanged())
	assert.Equal(t, Bold+"x"+Reset, B("x"))
}

func TestSetupHelp(t *testing.T) {
	withColor(t, false)
	root := &cobra.Command{Use: "wfsync", Short: "sync workflows", Run: func(*cobra.Command, []string) {}}
	root.Flags().Bool("yes", false, "keep defaults")
	root.AddCommand(&cobra.Command{Use: "status", Short: "show plan", Run: func(*cobra.Command, []string) {}})
	SetupHelp(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})
	require.NoError(t, root.Execute())

	help := out.String()
	assert.Contains(t, help, "sync workflows")
	assert.Contains(t, help, "Usage:")
	assert.Contains(t, help, "Commands:")
	assert.Contains(t, help, "status")
	assert.Contains(t, help, "show plan")
	assert.Contains(t, help, "Options:")
	assert.Contains(t, help, "--yes")
}
