package handlers

import (
	"context"
	"errors"
	"fmt"

	"go-taskbus/model"
)

// SimulateFailureParam makes a simulated handler fail when set to true.
const SimulateFailureParam = "simulateFailure"

// ErrSimulatedFailure is wrapped by the HandlerError returned for messages
// carrying SimulateFailureParam.
var ErrSimulatedFailure = errors.New("simulated failure requested")

// Handler executes one kind of task.
//
// Implementations must be safe for concurrent use: the host may dispatch
// several messages of the same type at once.
type Handler interface {
	Name() string
	Handle(ctx context.Context, msg *model.TaskMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, msg *model.TaskMessage) error
}

func (f HandlerFunc) Name() string { return f.HandlerName }

func (f HandlerFunc) Handle(ctx context.Context, msg *model.TaskMessage) error {
	return f.Fn(ctx, msg)
}

// HandlerError reports a failed task execution.
type HandlerError struct {
	Handler string
	TaskID  string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for task %s: %v", e.Handler, e.TaskID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
