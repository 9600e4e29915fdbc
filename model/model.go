package model

import (
	"strings"
	"time"
)

// Well-known task types.
const (
	TypeDataProcessing    = "data-processing"
	TypeFileUpload        = "file-upload"
	TypeEmailNotification = "email-notification"
	TypeReportGeneration  = "report-generation"
)

// TaskTypes lists the well-known task types in menu order.
var TaskTypes = []string{
	TypeDataProcessing,
	TypeFileUpload,
	TypeEmailNotification,
	TypeReportGeneration,
}

// TaskMessage is the unit of work carried by one queue message.
type TaskMessage struct {
	TaskID     string
	TaskName   string
	TaskType   string
	Parameters map[string]Value
	CreatedAt  time.Time
	CreatedBy  string
	Priority   int
}

// NormalizeTaskType returns the dispatch key for a task type.
func NormalizeTaskType(taskType string) string {
	return strings.ToLower(strings.TrimSpace(taskType))
}

// Param returns the named parameter, or a null Value when absent.
func (m *TaskMessage) Param(name string) Value {
	if m == nil || m.Parameters == nil {
		return Null()
	}
	return m.Parameters[name]
}
