package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

var (
	logFile       *os.File
	isInitialized bool
)

// DefaultPath is web-cache.log next to the running executable.
func DefaultPath() string {
	if exePath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exePath), "web-cache.log")
	}
	return "./web-cache.log"
}

// Init points the logger at the file at path, opened in append mode.
// An empty path means DefaultPath and an empty level means info.
func Init(path, level string) error {
	if isInitialized {
		return nil
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := ensureParentDir(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := setup(f, level); err != nil {
		_ = f.Close()
		return err
	}
	logFile = f
	isInitialized = true
	return nil
}

func setup(w io.Writer, level string) error {
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log.SetHandler(&LineHandler{w: w})
	log.SetLevel(lvl)
	return nil
}

// Close closes the underlying log file, if open.
func Close() error {
	if logFile != nil {
		err := logFile.Close()
		logFile = nil
		isInitialized = false
		return err
	}
	return nil
}

// LineHandler writes one "timestamp [LEVEL] message key=value..." line per entry.
type LineHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// HandleLog implements the log.Handler interface
func (h *LineHandler) HandleLog(e *log.Entry) error {
	var sb strings.Builder
	sb.WriteString(e.Timestamp.Format("2006/01/02 15:04:05.000000"))
	sb.WriteString(" [")
	sb.WriteString(strings.ToUpper(e.Level.String()))
	sb.WriteString("] ")
	sb.WriteString(e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&sb, " %s=%v", name, e.Fields.Get(name))
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

// Debugf logs verbose diagnostics.
func Debugf(format string, args ...any) { log.Debugf(format, args...) }

// Infof logs informational messages.
func Infof(format string, args ...any) { log.Infof(format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { log.Warnf(format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { log.Errorf(format, args...) }

// WithFields returns an entry carrying structured fields.
func WithFields(fields log.Fields) *log.Entry { return log.WithFields(fields) }

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Since formats the time elapsed since start for log fields.
func Since(start time.Time) string { return time.Since(start).Round(time.Microsecond).String() }
