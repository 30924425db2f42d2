package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Logo is printed at the top of interactive runs
const Logo = `
  ┌───────────────────────────────────────────┐
  │  threadsdl · profile media archiver       │
  └───────────────────────────────────────────┘
`

var (
	mu           sync.RWMutex
	output       io.Writer = os.Stdout
	colorEnabled           = IsTerminal(os.Stdout)
	renderer               = newRenderer(os.Stdout, colorEnabled)
)

func newRenderer(w io.Writer, color bool) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	setProfile(r, color)
	return r
}

func setProfile(r *lipgloss.Renderer, color bool) {
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetColor enables or disables ANSI colours
func SetColor(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	colorEnabled = enabled
	setProfile(renderer, enabled)
}

// SetOutput redirects the Print helpers. Colour is re-detected for w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	colorEnabled = IsTerminal(w)
	renderer = newRenderer(w, colorEnabled)
}

func out() io.Writer {
	mu.RLock()
	defer mu.RUnlock()
	return output
}

// Color functions for terminal output
var (
	Cyan    = colorize(func(s lipgloss.Style) lipgloss.Style { return s.Foreground(lipgloss.Color("6")) })
	Yellow  = colorize(func(s lipgloss.Style) lipgloss.Style { return s.Foreground(lipgloss.Color("3")) })
	Red     = colorize(func(s lipgloss.Style) lipgloss.Style { return s.Foreground(lipgloss.Color("1")) })
	Green   = colorize(func(s lipgloss.Style) lipgloss.Style { return s.Foreground(lipgloss.Color("2")) })
	Magenta = colorize(func(s lipgloss.Style) lipgloss.Style { return s.Foreground(lipgloss.Color("5")) })
	Dim     = colorize(func(s lipgloss.Style) lipgloss.Style { return s.Faint(true) })
)

func colorize(style func(lipgloss.Style) lipgloss.Style) func(string) string {
	return func(text string) string {
		mu.RLock()
		enabled, r := colorEnabled, renderer
		mu.RUnlock()
		if !enabled {
			return text
		}
		return style(r.NewStyle()).Render(text)
	}
}

// PrintLogo prints the banner
func PrintLogo() {
	fmt.Fprint(out(), Cyan(Logo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out(), Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out(), Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(out(), Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(out(), "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(out(), Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(out(), Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(out(), Magenta(msg))
}
