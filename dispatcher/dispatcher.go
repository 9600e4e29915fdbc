package dispatcher

import (
	"context"
	"errors"
	"time"

	"go-taskbus/handlers"
	"go-taskbus/logger"
	"go-taskbus/model"
)

// Metadata describes one delivery. The dispatcher only logs it.
type Metadata struct {
	MessageID     string
	Subject       string
	DeliveryCount int
	EnqueuedAt    time.Time
	Properties    map[string]any
}

// TextProcessor handles payloads that are not task messages.
type TextProcessor interface {
	HandleText(ctx context.Context, text string)
}

// Dispatcher is invoked once per delivered message. A nil error means the
// message is fully handled and may be acknowledged; any other result must
// leave redelivery or dead-lettering to the broker. It keeps no state between
// calls and is safe for concurrent use.
type Dispatcher struct {
	registry *handlers.Registry
	text     TextProcessor
	logger   *logger.Logger
	decode   func([]byte) (*model.TaskMessage, error)
}

func New(registry *handlers.Registry, text TextProcessor, lg *logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		text:     text,
		logger:   lg,
		decode:   model.Decode,
	}
}

// Handle decodes payload and runs the matching handler.
//
// Payloads that fail to parse are treated as plain text and always succeed.
// A null payload is acknowledged without dispatch. Handler errors and
// non-parse decode errors are returned unchanged.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte, meta Metadata) error {
	d.logger.Info("message received", map[string]any{
		"message_id":     meta.MessageID,
		"subject":        meta.Subject,
		"delivery_count": meta.DeliveryCount,
		"size":           len(payload),
	})

	msg, err := d.decode(payload)
	if err != nil {
		var parseErr *model.ParseError
		if errors.As(err, &parseErr) {
			d.logger.Info("processing non-task message as text", map[string]any{
				"message_id": meta.MessageID,
				"reason":     parseErr.Error(),
			})
			d.text.HandleText(ctx, string(payload))
			return nil
		}

		d.logger.Error("failed to decode message", map[string]any{
			"message_id": meta.MessageID,
			"error":      err.Error(),
		})
		return err
	}

	if msg == nil {
		d.logger.Warn("received null or empty task message", map[string]any{
			"message_id": meta.MessageID,
		})
		return nil
	}

	d.logger.Task(msg.TaskID, "task message parsed", map[string]any{
		"task_name":  msg.TaskName,
		"task_type":  msg.TaskType,
		"priority":   msg.Priority,
		"created_by": msg.CreatedBy,
		"parameters": len(msg.Parameters),
	})

	handler, matched := d.registry.Resolve(msg.TaskType)
	d.logger.Task(msg.TaskID, "dispatching task", map[string]any{
		"handler":  handler.Name(),
		"fallback": !matched,
	})

	if err := handler.Handle(ctx, msg); err != nil {
		d.logger.Error("task execution failed", map[string]any{
			"task_id": msg.TaskID,
			"handler": handler.Name(),
			"error":   err.Error(),
		})
		return err
	}

	d.logger.Task(msg.TaskID, "task completed", map[string]any{
		"handler": handler.Name(),
	})
	return nil
}
