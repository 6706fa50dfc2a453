package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level tags a log line.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger appends timestamped lines to the readiness log so failed lookups can
// be inspected after the command exits. A nil *Logger discards everything.
type Logger struct {
	mu  sync.Mutex
	out io.Writer
	c   io.Closer
	now func() time.Time
}

// New opens (or creates) the log file at path.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{out: f, c: f, now: time.Now}, nil
}

// NewWriter logs to w; used by tests and the API's stderr mode.
func NewWriter(w io.Writer) *Logger {
	return &Logger{out: w, now: time.Now}
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.c == nil {
		return nil
	}
	return l.c.Close()
}

// Printf writes a single timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	l.write(LevelInfo, format, args...)
}

func (l *Logger) Infof(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.write(LevelError, format, args...) }

// Write lets the logger sit behind io.Writer consumers such as gin.
func (l *Logger) Write(p []byte) (int, error) {
	l.write(LevelInfo, "%s", string(p))
	return len(p), nil
}

func (l *Logger) write(level Level, format string, args ...any) {
	if l == nil || l.out == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "[%s] %-5s %s\n", l.now().Format(time.RFC3339), level, line)
}
