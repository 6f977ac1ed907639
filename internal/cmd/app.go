package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"backlog-lite/internal/config"
	"backlog-lite/internal/taskstore"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// App holds application state shared across commands.
type App struct {
	Store  *taskstore.Store
	Config config.Config
	Paths  config.Paths
	Logger *slog.Logger
	Out    io.Writer
	Err    io.Writer
	JSON   bool // output in JSON format
}

// newLogger returns a slog logger writing through charmbracelet/log.
// Warnings and errors are shown by default; verbose adds debug output.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:  level,
		Prefix: "bl",
	})
	return slog.New(handler)
}

func (a *App) isTerminal() bool {
	f, ok := a.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *App) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if a.isTerminal() {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

// SuccessColor returns s in green when stdout is a terminal.
func (a *App) SuccessColor(s string) string { return a.paint(s, color.FgGreen) }

// WarnColor returns s in yellow when stdout is a terminal.
func (a *App) WarnColor(s string) string { return a.paint(s, color.FgYellow) }

// HeaderColor returns s in bold cyan when stdout is a terminal.
func (a *App) HeaderColor(s string) string { return a.paint(s, color.FgCyan, color.Bold) }

// DimColor returns s in grey when stdout is a terminal.
func (a *App) DimColor(s string) string { return a.paint(s, color.FgHiBlack) }

// printJSON writes v as indented JSON.
func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
