// Package logging provides gicli's structured console + rotating file
// logger. It keeps the teacher's util/logger call shape (Debugf/Infof/
// Warnf/Errorf/Fatalf against a settable level) but drops the package
// level singleton in favor of an explicit *Logger value constructed by
// main and threaded through the Orchestrator, Executor, Authenticator
// and Sinks, per spec §9's design note on global singletons.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Logger writes leveled lines to stderr (unless silenced) and to a
// size-rotated file under dir.
type Logger struct {
	mu     sync.Mutex
	level  Level
	silent bool
	file   *rotatingFile
	std    *log.Logger
}

// Options configures a new Logger.
type Options struct {
	Level  string
	Silent bool
	Dir    string // defaults to /var/log/gicli, falls back to $HOME/.gicli/log
}

// New constructs a Logger, opening the rotating file sink. File-open
// failures never abort startup: a failure under dir falls back to
// $HOME/.gicli/log (spec §6's "per-user fallback"), and if that also
// fails the Logger writes to stderr only. No warning is emitted for
// either fallback.
func New(opts Options) *Logger {
	l := &Logger{level: ParseLevel(opts.Level), silent: opts.Silent}
	dir := opts.Dir
	if dir == "" {
		dir = "/var/log/gicli"
	}
	rf, err := newRotatingFile(filepath.Join(dir, "app.log"), 10*1024*1024, 5)
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr == nil {
			rf, err = newRotatingFile(filepath.Join(home, ".gicli", "log", "app.log"), 10*1024*1024, 5)
		}
	}
	if err == nil && rf != nil {
		l.file = rf
	}
	l.std = log.New(io.Discard, "", log.LstdFlags)
	return l
}

func (l *Logger) SetLevel(level string) { l.mu.Lock(); l.level = ParseLevel(level); l.mu.Unlock() }

func (l *Logger) write(level Level, tag, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	line := fmt.Sprintf("[%s] %s\n", tag, fmt.Sprintf(format, v...))
	if !l.silent {
		fmt.Fprint(os.Stderr, line)
	}
	if l.file != nil {
		_, _ = l.file.Write([]byte(line))
	}
}

func (l *Logger) Debugf(format string, v ...any) { l.write(LevelDebug, "DEBUG", format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.write(LevelInfo, "INFO", format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.write(LevelWarn, "WARN", format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.write(LevelError, "ERROR", format, v...) }
func (l *Logger) Fatalf(format string, v ...any) {
	l.write(LevelFatal, "FATAL", format, v...)
	os.Exit(1)
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Nop returns a Logger that discards everything, useful for tests.
func Nop() *Logger {
	return &Logger{level: LevelFatal + 1, silent: true, std: log.New(io.Discard, "", 0)}
}

// RedactConnectionString replaces the password segment of a SQL Server
// style connection string with "***" before it is ever logged. Spec §9
// calls out the teacher's habit of logging connection strings after
// substitution as a leak to fix; this is that fix's implementation.
func RedactConnectionString(s string) string {
	parts := strings.Split(s, ";")
	for i, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) == 2 && strings.EqualFold(strings.TrimSpace(kv[0]), "password") {
			parts[i] = kv[0] + "=***"
		}
	}
	return strings.Join(parts, ";")
}
