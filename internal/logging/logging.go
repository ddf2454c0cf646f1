// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Structured logging setup with optional rotating file output

package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the file destination
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 28
)

// Options selects destination, format and verbosity
type Options struct {
	Verbose bool   // debug level
	JSON    bool   // JSON handler instead of text
	File    string // also write to this rotating file ("" = stderr only)
}

// Setup installs the process-wide slog default and returns a closer for
// the file destination (a no-op closer when no file is configured)
func Setup(opts Options) io.Closer {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	closer := io.Closer(nopCloser{})

	if opts.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	slog.SetDefault(slog.New(handler))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
