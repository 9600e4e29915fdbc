package producer

import (
	"errors"
	"fmt"
)

// Reason classifies a PublishError.
type Reason string

const (
	ReasonMessageTooLarge Reason = "MessageTooLarge"
	ReasonEncoding        Reason = "Encoding"
	ReasonConnection      Reason = "Connection"
)

// PublishError is returned by every failed send. The producer never retries.
type PublishError struct {
	Reason Reason
	TaskID string
	Err    error
}

func (e *PublishError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("publish task %s: %s: %v", e.TaskID, e.Reason, e.Err)
	}
	return fmt.Sprintf("publish: %s: %v", e.Reason, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Hint suggests what the operator can do about the failure.
func (e *PublishError) Hint() string {
	switch e.Reason {
	case ReasonMessageTooLarge:
		return "Reduce the size of the task parameters or raise MAX_BATCH_BYTES"
	case ReasonEncoding:
		return "Check that the task has an id and that all parameter values are finite JSON values"
	case ReasonConnection:
		return "Ensure the queue connection string is correct and the broker is reachable"
	default:
		return ""
	}
}

// ReasonOf returns the reason of a PublishError in err's chain.
func ReasonOf(err error) (Reason, bool) {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return "", false
}

// IsMessageTooLarge reports whether err is a PublishError for an oversized message.
func IsMessageTooLarge(err error) bool {
	reason, ok := ReasonOf(err)
	return ok && reason == ReasonMessageTooLarge
}
