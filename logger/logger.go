// Package logger provides a minimal slog-based logging wrapper.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config describes logger settings.
type Config struct {
	Enabled bool
	Level   string
	Stdout  bool
	File    string
}

var (
	mu      sync.RWMutex
	base    *slog.Logger
	enabled = true

	// Saved state for Intercept/Restore.
	savedCfg  Config
	savedFile *os.File
	intercept io.Writer // non-nil while the TUI has captured output
)

// Init initializes the logger with the provided config. Relative file paths
// resolve against baseDir (the config directory).
func Init(cfg Config, baseDir string) error {
	mu.Lock()
	defer mu.Unlock()

	savedCfg = cfg
	if savedFile != nil {
		_ = savedFile.Close()
		savedFile = nil
	}

	if !cfg.Enabled {
		enabled = false
		base = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
		return nil
	}

	var initErr error
	if cfg.File != "" {
		path := expandPath(cfg.File, baseDir)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("logger: create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			initErr = fmt.Errorf("logger: open log file: %w", err)
		} else {
			savedFile = f
		}
	}

	rebuild()
	return initErr
}

// Intercept replaces stdout output with a custom writer (e.g. the TUI log
// panel). The file writer, if any, is preserved.
func Intercept(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	intercept = w
	rebuild()
}

// Restore undoes Intercept and restores stdout logging.
func Restore() {
	mu.Lock()
	defer mu.Unlock()
	intercept = nil
	rebuild()
}

// rebuild reconstructs the slog handler from current state.
// Must be called with mu held.
func rebuild() {
	opts := &slog.HandlerOptions{Level: parseLevel(savedCfg.Level)}
	if intercept != nil && savedFile == nil {
		// Only the TUI log panel is attached. The panel shows lines as
		// they happen, so timestamps just eat its width.
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}

	var writers []io.Writer
	if intercept != nil {
		writers = append(writers, intercept)
	} else if savedCfg.Stdout {
		writers = append(writers, os.Stdout)
	}
	if savedFile != nil {
		writers = append(writers, savedFile)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	base = slog.New(slog.NewTextHandler(io.MultiWriter(writers...), opts))
	enabled = true
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	log(slog.LevelDebug, msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	log(slog.LevelInfo, msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	log(slog.LevelWarn, msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	log(slog.LevelError, msg, args...)
}

func log(level slog.Level, msg string, args ...any) {
	mu.RLock()
	l := base
	on := enabled
	mu.RUnlock()

	if !on || l == nil {
		return
	}

	l.Log(nil, level, msg, args...)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func expandPath(path, baseDir string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	if baseDir != "" {
		return filepath.Join(baseDir, path)
	}
	return path
}
