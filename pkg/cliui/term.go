package cliui

import (
	"os"
	"sync/atomic"

	"charm.land/lipgloss/v2"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(true)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// DetectColor enables styled output only when out is a terminal whose
// environment allows color (NO_COLOR, TERM=dumb and friends are honored).
func DetectColor(out *os.File) {
	colorEnabled.Store(IsTerminal(out) && termenv.EnvColorProfile() != termenv.Ascii)
}

// SetColor forces styled output on or off.
func SetColor(enabled bool) {
	colorEnabled.Store(enabled)
}

// Render applies style to s, or returns s unchanged when color is off.
func Render(style lipgloss.Style, s string) string {
	if !colorEnabled.Load() {
		return s
	}
	return style.Render(s)
}
