// Package logger is the component-tagged logging facade used across wanderbot.
// Every entry carries a "component" field; optional fields are attached as-is.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var (
	mu   sync.RWMutex
	base = newConsoleLogger(os.Stderr)
)

func newConsoleLogger(w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func toZerolog(level LogLevel) zerolog.Level {
	switch level {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel maps a config string to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	base = base.Level(toZerolog(level))
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	switch base.GetLevel() {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return DEBUG
	case zerolog.WarnLevel:
		return WARN
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return ERROR
	default:
		return INFO
	}
}

// SetOutput redirects logs to w. When jsonFormat is false the console writer
// is used; the current level is preserved.
func SetOutput(w io.Writer, jsonFormat bool) {
	mu.Lock()
	defer mu.Unlock()
	level := base.GetLevel()
	if jsonFormat {
		base = zerolog.New(w).Level(level).With().Timestamp().Logger()
		return
	}
	base = newConsoleLogger(w).Level(level)
}

func logMessage(level zerolog.Level, component, message string, fields map[string]interface{}) {
	mu.RLock()
	l := base
	mu.RUnlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if component != "" {
		ev = ev.Str("component", component)
	}
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(message)
}

func Debug(message string) { logMessage(zerolog.DebugLevel, "", message, nil) }
func Info(message string)  { logMessage(zerolog.InfoLevel, "", message, nil) }
func Warn(message string)  { logMessage(zerolog.WarnLevel, "", message, nil) }
func Error(message string) { logMessage(zerolog.ErrorLevel, "", message, nil) }

func DebugC(component, message string) { logMessage(zerolog.DebugLevel, component, message, nil) }
func InfoC(component, message string)  { logMessage(zerolog.InfoLevel, component, message, nil) }
func WarnC(component, message string)  { logMessage(zerolog.WarnLevel, component, message, nil) }
func ErrorC(component, message string) { logMessage(zerolog.ErrorLevel, component, message, nil) }

func DebugCF(component, message string, fields map[string]interface{}) {
	logMessage(zerolog.DebugLevel, component, message, fields)
}

func InfoCF(component, message string, fields map[string]interface{}) {
	logMessage(zerolog.InfoLevel, component, message, fields)
}

func WarnCF(component, message string, fields map[string]interface{}) {
	logMessage(zerolog.WarnLevel, component, message, fields)
}

func ErrorCF(component, message string, fields map[string]interface{}) {
	logMessage(zerolog.ErrorLevel, component, message, fields)
}
