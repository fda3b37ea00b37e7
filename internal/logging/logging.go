// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Options control logger setup.
type Options struct {
	Level string
	// Path is the log file. Empty logs to Fallback only.
	Path string
	// Fallback receives output when Path is empty or cannot be opened.
	Fallback io.Writer
	// Also mirrors output to this writer alongside the file.
	Also io.Writer
}

// Logger wraps a configured logrus logger and its open file.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// New builds a JSON logger. Terminal UIs own stdout, so output goes to a file
// by default; a file that cannot be opened falls back to Fallback.
func New(opts Options) (*Logger, error) {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		level = parsed
	}
	l.SetLevel(level)

	fallback := opts.Fallback
	if fallback == nil {
		fallback = io.Discard
	}

	out := &Logger{Logger: l}
	var w io.Writer = fallback
	if opts.Path != "" {
		f, err := openFile(opts.Path)
		if err != nil {
			l.SetOutput(fallback)
			l.WithError(err).WithField("path", opts.Path).Warn("log file unavailable")
		} else {
			out.file = f
			w = f
		}
	}
	if opts.Also != nil {
		w = io.MultiWriter(w, opts.Also)
	}
	l.SetOutput(w)

	return out, nil
}

func openFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// Path returns the open log file path, or empty when not logging to a file.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.SetOutput(io.Discard)
	return err
}
