package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ContentType describes encoded task messages.
const ContentType = "application/json"

// ErrMissingTaskID is wrapped by a ParseError when TaskId is absent or empty.
var ErrMissingTaskID = errors.New("missing required field TaskId")

// ParseError reports a payload that is not a structurally valid task message.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse task message: %s: %v", e.Reason, e.Err)
	}
	return "parse task message: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Timestamps without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type wireTime time.Time

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("CreatedAt must be a string: %w", err)
	}
	if s == "" {
		return nil
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = wireTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("CreatedAt %q is not a recognised timestamp", s)
}

type inboundMessage struct {
	TaskID     *string          `json:"TaskId"`
	TaskName   string           `json:"TaskName"`
	TaskType   string           `json:"TaskType"`
	Parameters map[string]Value `json:"Parameters"`
	CreatedAt  wireTime         `json:"CreatedAt"`
	CreatedBy  string           `json:"CreatedBy"`
	Priority   int              `json:"Priority"`
}

type outboundMessage struct {
	TaskID     string           `json:"TaskId"`
	TaskName   string           `json:"TaskName"`
	TaskType   string           `json:"TaskType"`
	Parameters map[string]Value `json:"Parameters"`
	CreatedAt  string           `json:"CreatedAt"`
	CreatedBy  string           `json:"CreatedBy"`
	Priority   int              `json:"Priority"`
}

// Encode renders m as a JSON object using the wire key names.
func Encode(m *TaskMessage) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encode task message: nil message")
	}
	if m.TaskID == "" {
		return nil, fmt.Errorf("encode task message: %w", ErrMissingTaskID)
	}

	params := m.Parameters
	if params == nil {
		params = map[string]Value{}
	}

	data, err := json.Marshal(outboundMessage{
		TaskID:     m.TaskID,
		TaskName:   m.TaskName,
		TaskType:   m.TaskType,
		Parameters: params,
		CreatedAt:  m.CreatedAt.UTC().Format(time.RFC3339Nano),
		CreatedBy:  m.CreatedBy,
		Priority:   m.Priority,
	})
	if err != nil {
		return nil, fmt.Errorf("encode task message %s: %w", m.TaskID, err)
	}
	return data, nil
}

// Decode parses a payload produced by Encode or by any client using the same
// key names. A literal null payload yields (nil, nil). Payloads that are not a
// JSON object, or lack TaskId, fail with *ParseError. Other missing fields take
// their zero values and Parameters is never nil.
func Decode(data []byte) (*TaskMessage, error) {
	return decode(data, true)
}

// DecodeDraft is Decode for messages that have not been assigned an id yet.
// A missing TaskId is left empty instead of failing.
func DecodeDraft(data []byte) (*TaskMessage, error) {
	return decode(data, false)
}

func decode(data []byte, requireID bool) (*TaskMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var in inboundMessage
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return nil, &ParseError{Reason: "invalid JSON object", Err: err}
	}

	var id string
	if in.TaskID != nil {
		id = *in.TaskID
	}
	if requireID && id == "" {
		return nil, &ParseError{Reason: "incomplete task message", Err: ErrMissingTaskID}
	}

	params := in.Parameters
	if params == nil {
		params = map[string]Value{}
	}

	return &TaskMessage{
		TaskID:     id,
		TaskName:   in.TaskName,
		TaskType:   in.TaskType,
		Parameters: params,
		CreatedAt:  time.Time(in.CreatedAt),
		CreatedBy:  in.CreatedBy,
		Priority:   in.Priority,
	}, nil
}
