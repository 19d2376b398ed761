// Package logging builds the structured bolt loggers used across the
// simulator.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/mattn/go-isatty"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string

	// Format is json, console, or auto (console on a terminal, json otherwise).
	Format string

	// Output is the destination; nil means stderr.
	Output io.Writer
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "auto",
		Output: os.Stderr,
	}
}

// parseLevel converts a string level to bolt.Level.
func parseLevel(s string) bolt.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return bolt.TRACE
	case "debug":
		return bolt.DEBUG
	case "info":
		return bolt.INFO
	case "warn", "warning":
		return bolt.WARN
	case "error":
		return bolt.ERROR
	default:
		return bolt.INFO
	}
}

// ValidLevel reports whether s names a level parseLevel knows.
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func useConsole(format string, out io.Writer) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	}
	f, ok := out.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// New builds a logger from config.
func New(config Config) *bolt.Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	var handler bolt.Handler
	if useConsole(config.Format, out) {
		handler = bolt.NewConsoleHandler(out)
	} else {
		handler = bolt.NewJSONHandler(out)
	}
	return bolt.New(handler).SetLevel(parseLevel(config.Level))
}

// Discard returns a logger that drops everything.
func Discard() *bolt.Logger {
	return bolt.New(bolt.NewJSONHandler(io.Discard)).SetLevel(bolt.ERROR)
}
