package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings, conflicts
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Println(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

func printNewline() {
	fmt.Println()
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Resolution Output
// =============================================================================

// printStats prints resolution counts on a single dimmed line.
func printStats(res *deps.Result) {
	parts := []string{fmt.Sprintf("%d nodes", res.Tree.Len())}
	if n := len(res.Conflicts); n > 0 {
		parts = append(parts, StyleWarning.Render(fmt.Sprintf("%d conflicts", n)))
	}
	if n := len(res.Failures); n > 0 {
		parts = append(parts, StyleError.Render(fmt.Sprintf("%d unresolved", n)))
	}
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// renderTree draws every root of t with rounded branches. Conflicting
// nodes show the newer version, unresolved ones their error code.
func renderTree(t *deps.Tree) string {
	var b strings.Builder
	for _, root := range t.Roots {
		b.WriteString(buildTree(root).String())
		b.WriteString("\n")
	}
	return b.String()
}

func buildTree(n *deps.Node) *tree.Tree {
	t := tree.Root(nodeLabel(n)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(StyleDim)
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			t.Child(nodeLabel(c))
			continue
		}
		t.Child(buildTree(c))
	}
	return t
}

func nodeLabel(n *deps.Node) string {
	label := StyleValue.Render(n.Location())
	switch {
	case n.Err != nil:
		label = StyleError.Render(n.Location()) + " " + StyleDim.Render(string(errors.GetCode(n.Err)))
	case n.NewVersion != "":
		label += " " + StyleWarning.Render(iconArrow+" "+n.NewVersion)
	case !n.HasArchive():
		label += " " + StyleDim.Render(n.Packaging)
	}
	return label
}

func printConflicts(conflicts []deps.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	printWarning("%d version conflicts", len(conflicts))
	for _, c := range conflicts {
		printDetail("%s: %s %s %s", c.Key, strings.Join(c.Versions, ", "), iconArrow, c.Latest)
	}
}

func printFailures(failures []deps.Failure) {
	for _, f := range failures {
		printError("%s %s", f.Location, StyleDim.Render(errors.UserMessage(f.Err)))
		if len(f.Path) > 1 {
			printDetail("via %s", strings.Join(f.Path[:len(f.Path)-1], " "+iconArrow+" "))
		}
	}
}
