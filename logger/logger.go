// Package logger provides the levelled loggers used by the search engine and CLI.
//
// Implementations are safe for concurrent use. The engine only depends on the
// Logger interface so callers can plug in the console logger, a file logger,
// or Nop for tests.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Logger is the minimal levelled logging contract.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Level constants for filtering
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name to its numeric value.
// "trace" folds into debug. Unknown names default to info.
func ParseLevel(level string) int {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// Console writes "[15:04:05] [LEVEL] message" lines to a writer.
// Level tags are coloured when the writer is a terminal.
type Console struct {
	writer   io.Writer
	level    int
	useColor bool
	mu       sync.Mutex
	colors   [4]*color.Color
}

// NewConsole creates a Console logger. A nil writer discards everything.
func NewConsole(w io.Writer, level string) *Console {
	c := &Console{
		writer:   w,
		level:    ParseLevel(level),
		useColor: isTerminal(w),
		colors: [4]*color.Color{
			color.New(color.FgHiBlack),
			color.New(color.FgCyan),
			color.New(color.FgYellow),
			color.New(color.FgRed, color.Bold),
		},
	}
	for _, col := range c.colors {
		if c.useColor {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// isTerminal reports whether w is a TTY-backed *os.File and NO_COLOR is unset.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *Console) Debugf(format string, args ...interface{}) { c.log(LevelDebug, format, args...) }
func (c *Console) Infof(format string, args ...interface{})  { c.log(LevelInfo, format, args...) }
func (c *Console) Warnf(format string, args ...interface{})  { c.log(LevelWarn, format, args...) }
func (c *Console) Errorf(format string, args ...interface{}) { c.log(LevelError, format, args...) }

func (c *Console) log(level int, format string, args ...interface{}) {
	if c.writer == nil || level < c.level {
		return
	}
	tag := c.colors[level].Sprintf("[%s]", levelNames[level])
	line := fmt.Sprintf("[%s] %s %s\n", time.Now().Format("15:04:05"), tag, fmt.Sprintf(format, args...))

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.writer, line)
}

// File appends plain levelled lines to a log file.
type File struct {
	*Console
	f *os.File
}

// NewFile opens (or creates) path for appending and returns a File logger.
func NewFile(path, level string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	c := NewConsole(f, level)
	c.useColor = false
	for _, col := range c.colors {
		col.DisableColor()
	}
	fl := &File{Console: c, f: f}
	fl.Infof("=== run log opened %s ===", time.Now().Format(time.RFC3339))
	return fl, nil
}

// Close closes the underlying file.
func (fl *File) Close() error {
	return fl.f.Close()
}

// Nop discards all messages.
type Nop struct{}

func (Nop) Debugf(string, ...interface{}) {}
func (Nop) Infof(string, ...interface{})  {}
func (Nop) Warnf(string, ...interface{})  {}
func (Nop) Errorf(string, ...interface{}) {}

// Multi fans every message out to several loggers.
type Multi []Logger

func (m Multi) Debugf(format string, args ...interface{}) {
	for _, l := range m {
		l.Debugf(format, args...)
	}
}

func (m Multi) Infof(format string, args ...interface{}) {
	for _, l := range m {
		l.Infof(format, args...)
	}
}

func (m Multi) Warnf(format string, args ...interface{}) {
	for _, l := range m {
		l.Warnf(format, args...)
	}
}

func (m Multi) Errorf(format string, args ...interface{}) {
	for _, l := range m {
		l.Errorf(format, args...)
	}
}
