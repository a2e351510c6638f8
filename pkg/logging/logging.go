// Package logging sets up the process-wide structured logger. With a log
// directory configured, output goes to a size-rotated JSON file; otherwise
// human-readable text goes to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger at the given level. dir selects file output; an
// empty dir logs text to stderr instead. The returned logger is also
// installed as the slog default.
func New(level, dir string) *slog.Logger {
	lvl := ParseLevel(level)

	var handler slog.Handler
	if dir != "" {
		var w io.Writer = &lumberjack.Logger{
			Filename: filepath.Join(dir, "ogn-scope.slog"),
			MaxSize:  64, // MB
			MaxAge:   14,
			Compress: true,
		}
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("logging initialized",
		slog.String("level", lvl.String()),
		slog.String("GOOS", runtime.GOOS),
		slog.String("GOARCH", runtime.GOARCH),
		slog.Int("cpus", runtime.NumCPU()))

	return logger
}

// ParseLevel maps a config string onto a slog level. Unknown values fall
// back to info with a note on stderr.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "", "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "%s: invalid log level, using info\n", level)
		return slog.LevelInfo
	}
}
