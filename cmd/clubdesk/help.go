package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/clubdesk/internal/ui"
)

// Patterns applied to cobra's plain help text.
var (
	// Unindented "Tables:", "Flags:", "Examples:". "Usage:" stays plain.
	reSection = regexp.MustCompile(`(?m)^([A-Z][A-Za-z ]*:)\s*$`)

	// Two-space indent, a command name, then the description column.
	reSubcommand = regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(\s{2,})`)

	// Flag value placeholders: "--page int", "--filter stringArray".
	reFlagValue = regexp.MustCompile(`(--[\w-]+\s)(string|stringArray|int|duration|float)\b`)

	reDefaultValue = regexp.MustCompile(`\(default [^)]*\)`)

	// Example invocations start with "clubdesk ".
	reExample = regexp.MustCompile(`(?m)^(\s+)(clubdesk .*)$`)
)

// colorizedHelpFunc wraps cobra's usage output with ANSI styling when stdout
// supports it.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if cmd.Long != "" {
			fmt.Fprintln(out, strings.TrimSpace(cmd.Long))
			fmt.Fprintln(out)
		} else if cmd.Short != "" {
			fmt.Fprintln(out, cmd.Short)
			fmt.Fprintln(out)
		}
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	s = reSection.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "Usage:") {
			return m
		}
		return ui.RenderAccent(strings.TrimSpace(m))
	})
	s = reSubcommand.ReplaceAllString(s, "$1"+ui.RenderCommand("$2")+"$3")
	s = reFlagValue.ReplaceAllStringFunc(s, func(m string) string {
		parts := reFlagValue.FindStringSubmatch(m)
		return parts[1] + ui.RenderMuted(parts[2])
	})
	s = reDefaultValue.ReplaceAllStringFunc(s, ui.RenderMuted)
	s = reExample.ReplaceAllStringFunc(s, func(m string) string {
		parts := reExample.FindStringSubmatch(m)
		return parts[1] + ui.RenderCommand(parts[2])
	})
	return s
}
