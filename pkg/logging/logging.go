// Package logging builds the logrus loggers shared by the zoo binaries.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options configures a logger.
type Options struct {
	// Level is a logrus level name ("debug", "info", ...). Unknown or empty
	// values fall back to info.
	Level string
	// JSON switches the formatter to logrus.JSONFormatter.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New returns a logger configured from opts.
func New(opts Options) *logrus.Logger {
	logger := logrus.New()
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(opts.Level)); err == nil && opts.Level != "" {
		logger.SetLevel(lvl)
	}

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Component returns an entry tagged with the component field, the way every
// package in this module identifies its log lines.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Discard returns an entry that drops everything. Handy as a default.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
