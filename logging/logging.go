// Package logging provides the process logger handle shared by all components.
//
// A Logger is opened once by the command, passed to every component that
// reports progress, and closed before exit. Logging calls never fail.
package logging

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileName is the name of the log file inside the log directory
const FileName = "main.log"

const (
	fieldHost = "host"
	fieldUser = "user"
	fieldRun  = "run"
)

// Options selects the sinks of a Logger
type Options struct {
	// Dir is the directory for FileName; empty disables the file sink
	Dir string
	// Console receives a copy of every line; nil disables the echo
	Console io.Writer
}

// Logger is an explicit logging handle backed by logrus
type Logger struct {
	mu      sync.Mutex
	base    *logrus.Logger
	entry   *logrus.Entry
	file    *os.File
	console io.Writer
}

// Open creates the log directory if needed and starts logging into
// <Dir>/main.log (appending) and the console.
func Open(opts Options) (*Logger, error) {
	var writers []io.Writer
	var file *os.File

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", opts.Dir, err)
		}

		logPath := filepath.Join(opts.Dir, FileName)
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logPath, err)
		}
		file = f
		writers = append(writers, f)
	}

	if opts.Console != nil {
		writers = append(writers, opts.Console)
	}

	l := newLogger(io.MultiWriter(writers...))
	l.file = file
	l.console = opts.Console
	return l, nil
}

// New returns a Logger writing only to w
func New(w io.Writer) *Logger {
	l := newLogger(w)
	l.console = w
	return l
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return New(io.Discard)
}

func newLogger(w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetLevel(logrus.DebugLevel)
	base.SetFormatter(&lineFormatter{})

	entry := base.WithFields(logrus.Fields{
		fieldHost: hostName(),
		fieldUser: userName(),
		fieldRun:  uuid.NewString()[:8],
	})

	return &Logger{base: base, entry: entry}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

// Close flushes and closes the log file. Later calls are echoed to the
// console only.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	if l.console != nil {
		l.base.SetOutput(l.console)
	} else {
		l.base.SetOutput(io.Discard)
	}

	err := l.file.Close()
	l.file = nil
	return err
}

func hostName() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

func userName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
