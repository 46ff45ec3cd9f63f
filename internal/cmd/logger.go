package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-cz/devslog"
	"github.com/mattn/go-isatty"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidLogLevel, level)
	}
}

// newHandler 终端里用 devslog，其他情况输出 JSON
func newHandler(w io.Writer, tty bool, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if tty {
		return devslog.NewHandler(w, &devslog.Options{HandlerOptions: opts})
	}
	return slog.NewJSONHandler(w, opts)
}

func initLogger(level string) error {
	parsed, err := parseLevel(level)
	if err != nil {
		return err
	}

	w := os.Stdout
	slog.SetDefault(slog.New(newHandler(w, isatty.IsTerminal(w.Fd()), parsed)))
	return nil
}
