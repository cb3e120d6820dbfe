package ui

import "fmt"

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent  = 74  // blue
	colorCmd     = 250 // light gray
	colorMuted   = 245 // medium gray
	colorSuccess = 114 // green
	colorWarn    = 179 // amber
	colorFail    = 167 // red
)

var noColor bool

func paint(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return paint(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return paint(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return paint(colorCmd, s) }

func RenderSuccess(s string) string { return paint(colorSuccess, s) }
func RenderWarn(s string) string    { return paint(colorWarn, s) }
func RenderFail(s string) string    { return paint(colorFail, s) }

// RenderStatus colors a moderation status.
func RenderStatus(s string) string {
	switch s {
	case "APPROVED", "FINISHED":
		return RenderSuccess(s)
	case "PENDING":
		return RenderWarn(s)
	case "REJECTED":
		return RenderFail(s)
	}
	return s
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// SetColor enables or disables color output.
func SetColor(enabled bool) {
	noColor = !enabled
}
