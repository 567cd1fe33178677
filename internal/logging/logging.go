// Package logging installs the process-wide slog logger for both binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelError   = "ERROR"
	LevelWarning = "WARNING"
	LevelInfo    = "INFO"
	LevelDebug   = "DEBUG"

	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsDebug reports whether the configured level is DEBUG.
func (c Config) IsDebug() bool {
	return strings.ToUpper(c.Level) == LevelDebug
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// fall back to INFO.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(name) {
	case LevelError:
		return slog.LevelError
	case LevelWarning, "WARN":
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewHandler builds a text handler unless the format is json.
func NewHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}
	if strings.ToLower(cfg.Format) == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Init writes to stdout and makes the logger the slog default.
func Init(cfg Config) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, cfg)))
}
