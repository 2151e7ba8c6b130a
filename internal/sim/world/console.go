package world

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	ErrNoConsole     = errors.New("no console handler")
	ErrEmptyCommand  = errors.New("empty console command")
	ErrUnsafeCommand = errors.New("console command contains control characters")
)

// ConsoleHandler runs a command line with console authority.
type ConsoleHandler func(line string) error

func (w *World) SetConsole(h ConsoleHandler) { w.console = h }

// DispatchConsoleCommand validates line and hands it to the console.
// Lines are single-line, printable, with an optional leading slash.
func (w *World) DispatchConsoleCommand(line string) error {
	line, err := ValidateConsoleLine(line)
	if err != nil {
		w.auditEvent(w.CurrentTick(), "CONSOLE", "CONSOLE_REJECTED", Vec3i{}, err.Error(), nil)
		return err
	}
	if w.console == nil {
		return ErrNoConsole
	}
	w.auditEvent(w.CurrentTick(), "CONSOLE", "CONSOLE_COMMAND", Vec3i{}, "", map[string]any{"line": line})
	if err := w.console(line); err != nil {
		return fmt.Errorf("console %q: %w", line, err)
	}
	return nil
}

func ValidateConsoleLine(line string) (string, error) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return "", ErrEmptyCommand
	}
	for _, r := range line {
		if unicode.IsControl(r) {
			return "", ErrUnsafeCommand
		}
	}
	return line, nil
}
