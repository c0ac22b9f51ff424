// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package logger

import (
	"sync"

	"github.com/sassoftware/viya-pdf-press/tracer"
)

// LogLevel represents log severity
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	ErrorLevel LogLevel = "error"
)

// LogFunc is a single logger function that handles all levels
type LogFunc func(level LogLevel, msg string, keyvals ...interface{})

var (
	mu      sync.RWMutex
	logFunc LogFunc = func(level LogLevel, msg string, keyvals ...interface{}) {}
)

// SetLogger sets the global logger function. A nil f is ignored.
func SetLogger(f LogFunc) {
	if f == nil {
		return
	}
	mu.Lock()
	logFunc = f
	mu.Unlock()
}

// Reset restores the no-op logger.
func Reset() {
	mu.Lock()
	logFunc = func(level LogLevel, msg string, keyvals ...interface{}) {}
	mu.Unlock()
}

func current() LogFunc {
	mu.RLock()
	defer mu.RUnlock()
	return logFunc
}

// splitTrace strips a trailing bool from keyvals and reports it as the trace flag.
func splitTrace(keyvals []interface{}) ([]interface{}, bool) {
	if len(keyvals) > 0 {
		if b, ok := keyvals[len(keyvals)-1].(bool); ok {
			return keyvals[:len(keyvals)-1], b
		}
	}
	return keyvals, false
}

// Debug logs a message at debug level
// If the last keyvals element is a bool and true, it is treated as trace flag
func Debug(msg string, keyvals ...interface{}) {
	keyvals, trace := splitTrace(keyvals)
	current()(DebugLevel, msg, keyvals...)
	if trace {
		tracer.Log(msg)
	}
}

// Info logs a message at info level. The trailing trace flag works as in Debug.
func Info(msg string, keyvals ...interface{}) {
	keyvals, trace := splitTrace(keyvals)
	current()(InfoLevel, msg, keyvals...)
	if trace {
		tracer.Log(msg)
	}
}

// Error logs a message at error level
func Error(msg string, keyvals ...interface{}) {
	current()(ErrorLevel, msg, keyvals...)
}
