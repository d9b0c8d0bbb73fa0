// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides PII-safe structured logging. Log lines are
// sanitized so that raw IP addresses and email addresses never reach the
// log output, matching the privacy posture the rest of the service
// enforces on stored scan data.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "info"
	}
}

// Logger emits sanitized, optionally JSON-formatted log entries.
type Logger struct {
	mu         sync.Mutex
	level      Level
	jsonOutput bool
	sanitizer  *Sanitizer
}

// entry is the JSON shape emitted when jsonOutput is enabled.
type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// New creates a Logger. level is the minimum severity that is emitted;
// jsonOutput switches between plain-text and one-JSON-object-per-line
// output (set via LOG_FORMAT=json in the default instance below).
func New(level Level, jsonOutput bool) *Logger {
	return &Logger{level: level, jsonOutput: jsonOutput, sanitizer: NewSanitizer()}
}

// Default builds a Logger from LOG_LEVEL / LOG_FORMAT environment variables.
func Default() *Logger {
	lvl := InfoLevel
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		lvl = DebugLevel
	case "warn":
		lvl = WarnLevel
	case "error":
		lvl = ErrorLevel
	}
	return New(lvl, os.Getenv("LOG_FORMAT") == "json")
}

func (l *Logger) log(level Level, requestID, format string, v ...interface{}) {
	if level < l.level {
		return
	}
	msg := l.sanitizer.Sanitize(fmt.Sprintf(format, v...))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonOutput {
		e := entry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     level.String(),
			Message:   msg,
			RequestID: requestID,
		}
		data, err := json.Marshal(e)
		if err != nil {
			log.Printf("%s", msg)
			return
		}
		log.Printf("%s", data)
		return
	}

	prefix := ""
	if requestID != "" {
		prefix = "[" + requestID + "] "
	}
	log.Printf("%s%s: %s%s", prefix, level.String(), "", msg)
}

func (l *Logger) Debug(format string, v ...interface{}) { l.log(DebugLevel, "", format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.log(InfoLevel, "", format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.log(WarnLevel, "", format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.log(ErrorLevel, "", format, v...) }

// WithRequest returns a RequestLogger that tags every line with requestID.
func (l *Logger) WithRequest(requestID string) *RequestLogger {
	return &RequestLogger{parent: l, requestID: requestID}
}

// RequestLogger is a Logger bound to a single request ID.
type RequestLogger struct {
	parent    *Logger
	requestID string
}

func (r *RequestLogger) Debug(format string, v ...interface{}) {
	r.parent.log(DebugLevel, r.requestID, format, v...)
}
func (r *RequestLogger) Info(format string, v ...interface{}) {
	r.parent.log(InfoLevel, r.requestID, format, v...)
}
func (r *RequestLogger) Warn(format string, v ...interface{}) {
	r.parent.log(WarnLevel, r.requestID, format, v...)
}
func (r *RequestLogger) Error(format string, v ...interface{}) {
	r.parent.log(ErrorLevel, r.requestID, format, v...)
}
