// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bureau-foundation/xiwrap/environ"
	"github.com/bureau-foundation/xiwrap/sandbox"
)

// isTerminal reports whether w is a file open on a terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// newLogger writes human-readable text to a terminal and JSON otherwise,
// so logs captured by a supervisor stay machine-parseable. --verbose or
// XIWRAP_DEBUG selects debug level.
func newLogger(w io.Writer, verbose bool, env environ.Env) *slog.Logger {
	level := slog.LevelInfo
	if value, _ := env.Lookup("XIWRAP_DEBUG"); verbose || value != "" {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// checkMarks colors --check marks on a terminal. It returns nil for any
// other writer.
func checkMarks(w io.Writer) sandbox.Decorate {
	if !isTerminal(w) {
		return nil
	}
	renderer := lipgloss.NewRenderer(w)
	pass := renderer.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warn := renderer.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	fail := renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	return func(result sandbox.ValidationResult, mark string) string {
		switch {
		case !result.Passed:
			return fail.Render(mark)
		case result.Warning:
			return warn.Render(mark)
		default:
			return pass.Render(mark)
		}
	}
}
