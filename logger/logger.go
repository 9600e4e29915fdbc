package logger

import (
	"encoding/json"
	"io"
	"log"
	"maps"
	"os"
	"strings"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Logger writes one JSON object per line.
type Logger struct {
	level  Level
	logger *log.Logger
}

type logEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// New creates a logger writing at or above level to output (stdout when nil).
func New(level string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	return &Logger{
		level:  ParseLevel(level),
		logger: log.New(output, "", 0),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New("ERROR", io.Discard)
}

// ParseLevel maps a level name to a Level, defaulting to INFO.
func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l *Logger) write(level Level, message string, fields map[string]any) {
	if l.level > level {
		return
	}

	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   message,
		Fields:    fields,
	}

	if data, err := json.Marshal(entry); err == nil {
		l.logger.Println(string(data))
	} else {
		l.logger.Printf("[%s] %s", entry.Level, message)
	}
}

func first(fields []map[string]any) map[string]any {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

func (l *Logger) Debug(message string, fields ...map[string]any) {
	l.write(DEBUG, message, first(fields))
}

func (l *Logger) Info(message string, fields ...map[string]any) {
	l.write(INFO, message, first(fields))
}

func (l *Logger) Warn(message string, fields ...map[string]any) {
	l.write(WARN, message, first(fields))
}

func (l *Logger) Error(message string, fields ...map[string]any) {
	l.write(ERROR, message, first(fields))
}

// Task logs at INFO with the task id attached.
func (l *Logger) Task(taskID, message string, fields ...map[string]any) {
	allFields := map[string]any{
		"task_id": taskID,
		"type":    "task",
	}

	if f := first(fields); f != nil {
		maps.Copy(allFields, f)
	}

	l.write(INFO, message, allFields)
}

func (l *Logger) HTTP(method, path string, statusCode int, duration time.Duration, fields ...map[string]any) {
	allFields := map[string]any{
		"http_method": method,
		"http_path":   path,
		"http_status": statusCode,
		"duration_ns": duration.Nanoseconds(),
		"type":        "http_request",
	}

	if f := first(fields); f != nil {
		maps.Copy(allFields, f)
	}

	l.write(INFO, "HTTP request completed", allFields)
}
