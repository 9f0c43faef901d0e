// Package logger provides leveled, component-tagged logging for the bot.
// Components are short slugs ("dispatcher", "feishu", "dedup") so a single
// process log stays greppable per concern.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var (
	mu       sync.Mutex
	minLevel = levelFromEnv()
	out      = os.Stderr
)

func levelFromEnv() Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevel overrides the minimum level (normally taken from LOG_LEVEL).
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

func logf(level Level, component, msg string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(levelNames[level])
	b.WriteString("]")
	if component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteString("]")
	}
	b.WriteString(" ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}

	fmt.Fprintln(out, b.String())
}

// Debug logs an uncategorized debug message.
func Debug(msg string) { logf(LevelDebug, "", msg, nil) }

// Info logs an uncategorized info message.
func Info(msg string) { logf(LevelInfo, "", msg, nil) }

// Warn logs an uncategorized warning.
func Warn(msg string) { logf(LevelWarn, "", msg, nil) }

// Error logs an uncategorized error.
func Error(msg string) { logf(LevelError, "", msg, nil) }

// DebugC logs a debug message tagged with a component.
func DebugC(component, msg string) { logf(LevelDebug, component, msg, nil) }

// InfoC logs an info message tagged with a component.
func InfoC(component, msg string) { logf(LevelInfo, component, msg, nil) }

// WarnC logs a warning tagged with a component.
func WarnC(component, msg string) { logf(LevelWarn, component, msg, nil) }

// ErrorC logs an error tagged with a component.
func ErrorC(component, msg string) { logf(LevelError, component, msg, nil) }

// DebugCF logs a debug message with a component and structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	logf(LevelDebug, component, msg, fields)
}

// InfoCF logs an info message with a component and structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	logf(LevelInfo, component, msg, fields)
}

// WarnCF logs a warning with a component and structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	logf(LevelWarn, component, msg, fields)
}

// ErrorCF logs an error with a component and structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	logf(LevelError, component, msg, fields)
}
