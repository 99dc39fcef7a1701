// SPDX-License-Identifier: MIT
/*
Package log is the application's leveled logger.

The level is held atomically so the control path can change it at any
time. Nothing in this package may be called from the audio callback: every
call formats and writes.
*/
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is the severity of a message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name. Unknown names return
// LevelInfo and false.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the minimum level that is written.
func SetLevel(level Level) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the minimum level that is written.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// SetOutput redirects all log output, e.g. to a buffer in tests or to
// io.Discard while the TUI owns the terminal.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Enabled reports whether a message at level would be written.
func Enabled(level Level) bool {
	return level >= GetLevel()
}

func output(level Level, msg string) {
	if !Enabled(level) {
		return
	}
	logger.Printf("[%-5s] %s", level, msg)
}

func Debugf(format string, v ...any) { output(LevelDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { output(LevelInfo, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { output(LevelWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { output(LevelError, fmt.Sprintf(format, v...)) }

func Debug(v ...any) { output(LevelDebug, fmt.Sprint(v...)) }
func Info(v ...any)  { output(LevelInfo, fmt.Sprint(v...)) }
func Warn(v ...any)  { output(LevelWarn, fmt.Sprint(v...)) }
func Error(v ...any) { output(LevelError, fmt.Sprint(v...)) }

// Fatalf always logs, then exits with status 1.
func Fatalf(format string, v ...any) {
	logger.Fatalf("[%-5s] %s", LevelFatal, fmt.Sprintf(format, v...))
}

// Fatal always logs, then exits with status 1.
func Fatal(v ...any) {
	logger.Fatalf("[%-5s] %s", LevelFatal, fmt.Sprint(v...))
}
