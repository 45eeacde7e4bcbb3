package app

import (
	"fmt"
	"io"
	"log"
)

// LogLevel gates the tagged progress lines
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var logLevels = map[string]LogLevel{
	"DEBUG": LevelDebug,
	"INFO":  LevelInfo,
	"WARN":  LevelWarn,
	"ERROR": LevelError,
}

// ParseLogLevel returns the level for a config name, INFO when unknown
func ParseLogLevel(name string) LogLevel {
	if level, ok := logLevels[name]; ok {
		return level
	}
	return LevelInfo
}

// Logger prints "[TAG] message" lines at or above its level
type Logger struct {
	level LogLevel
	out   *log.Logger
}

// NewLogger creates a logger writing to w
func NewLogger(w io.Writer, level LogLevel) *Logger {
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

func (l *Logger) logf(level LogLevel, tag, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.out.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(tag, format string, args ...interface{}) {
	l.logf(LevelDebug, tag, format, args...)
}

func (l *Logger) Infof(tag, format string, args ...interface{}) {
	l.logf(LevelInfo, tag, format, args...)
}

func (l *Logger) Warnf(tag, format string, args ...interface{}) {
	l.logf(LevelWarn, tag, format, args...)
}

func (l *Logger) Errorf(tag, format string, args ...interface{}) {
	l.logf(LevelError, tag, format, args...)
}
