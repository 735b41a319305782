// Package logging configures the process-wide slog logger for the CLI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/knzhou-cli/knzhou/internal/utils"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const timeFormat = "15:04:05.000"

type Options struct {
	Verbose bool      // debug level on the terminal
	LogFile string    // optional file receiving every record at debug level
	Output  io.Writer // terminal writer, stderr when nil
}

// Setup installs the default slog logger and returns a function that flushes
// and closes the log file, if one was opened.
func Setup(opts Options) (func() error, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	termHandler := tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    !isTerminal(out),
	})

	if opts.LogFile == "" {
		slog.SetDefault(slog.New(termHandler))
		return func() error { return nil }, nil
	}

	if err := utils.EnsureParent(opts.LogFile); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	stamper := NewLineStamper(file)
	fileHandler := slog.NewTextHandler(stamper, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// the stamper adds its own timestamp
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	slog.SetDefault(slog.New(NewMultiHandler(termHandler, fileHandler)))

	return func() error {
		if err := stamper.Close(); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}, nil
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
