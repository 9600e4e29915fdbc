package producer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-taskbus/logger"
	"go-taskbus/model"
	"go-taskbus/queue"
)

var errTooLarge = errors.New("message does not fit in an empty batch")

// Connection is the long-lived broker connection a producer publishes through.
type Connection interface {
	NewSender(ctx context.Context, queueName string) (queue.Sender, error)
}

// Producer publishes task messages to one queue. It is safe for concurrent
// use; every call acquires its own sender.
type Producer struct {
	conn      Connection
	queueName string
	samples   *SampleFactory
	logger    *logger.Logger
}

func New(conn Connection, queueName string, samples *SampleFactory, lg *logger.Logger) *Producer {
	if samples == nil {
		samples = NewSampleFactory(nil, nil)
	}
	return &Producer{
		conn:      conn,
		queueName: queueName,
		samples:   samples,
		logger:    lg,
	}
}

func (p *Producer) QueueName() string {
	return p.queueName
}

// CreateSample builds a sample message of the given type.
func (p *Producer) CreateSample(taskType string) (*model.TaskMessage, error) {
	return p.samples.Create(taskType)
}

func (p *Producer) Samples() *SampleFactory {
	return p.samples
}

// EnvelopeFor wraps msg with the routing metadata downstream consumers can
// filter on without decoding the body. The enqueue time is fixed here so the
// encoded size does not change between size checks and the actual send.
func EnvelopeFor(msg *model.TaskMessage) (queue.Envelope, error) {
	body, err := model.Encode(msg)
	if err != nil {
		return queue.Envelope{}, err
	}

	return queue.Envelope{
		MessageID:   msg.TaskID,
		Subject:     msg.TaskType,
		ContentType: model.ContentType,
		Properties: map[string]any{
			"TaskType":  msg.TaskType,
			"Priority":  msg.Priority,
			"CreatedBy": msg.CreatedBy,
		},
		Body:       body,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func (p *Producer) openSender(ctx context.Context, taskID string) (queue.Sender, error) {
	sender, err := p.conn.NewSender(ctx, p.queueName)
	if err != nil {
		return nil, &PublishError{Reason: ReasonConnection, TaskID: taskID, Err: err}
	}
	return sender, nil
}

func (p *Producer) closeSender(sender queue.Sender) {
	if err := sender.Close(); err != nil {
		p.logger.Warn("failed to release sender", map[string]any{
			"queue": p.queueName,
			"error": err.Error(),
		})
	}
}

// SendOne publishes a single message.
func (p *Producer) SendOne(ctx context.Context, msg *model.TaskMessage) error {
	env, err := EnvelopeFor(msg)
	if err != nil {
		return &PublishError{Reason: ReasonEncoding, TaskID: taskIDOf(msg), Err: err}
	}

	sender, err := p.openSender(ctx, env.MessageID)
	if err != nil {
		return err
	}
	defer p.closeSender(sender)

	if err := addFresh(sender.NewBatch(), env); err != nil {
		return err
	}

	if err := sender.Send(ctx, env); err != nil {
		return &PublishError{Reason: ReasonConnection, TaskID: env.MessageID, Err: err}
	}

	p.logger.Task(env.MessageID, "message sent", map[string]any{
		"queue":     p.queueName,
		"task_type": msg.TaskType,
	})
	return nil
}

// SendBatch publishes msgs in as many broker batches as the size limit
// requires. Every message is checked against the limit before anything is
// sent, so an oversized message fails the call with ReasonMessageTooLarge and
// nothing is published. A failure while flushing a later batch leaves the
// earlier batches published.
func (p *Producer) SendBatch(ctx context.Context, msgs []*model.TaskMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	envs := make([]queue.Envelope, len(msgs))
	for i, msg := range msgs {
		env, err := EnvelopeFor(msg)
		if err != nil {
			return &PublishError{Reason: ReasonEncoding, TaskID: taskIDOf(msg), Err: err}
		}
		envs[i] = env
	}

	sender, err := p.openSender(ctx, "")
	if err != nil {
		return err
	}
	defer p.closeSender(sender)

	for _, env := range envs {
		if err := addFresh(sender.NewBatch(), env); err != nil {
			return err
		}
	}

	batches := 0
	flush := func(batch *queue.Batch) error {
		if batch.Len() == 0 {
			return nil
		}
		if err := sender.SendBatch(ctx, batch); err != nil {
			return &PublishError{
				Reason: ReasonConnection,
				TaskID: batch.MessageIDs()[0],
				Err:    fmt.Errorf("batch of %d messages: %w", batch.Len(), err),
			}
		}
		batches++
		return nil
	}

	batch := sender.NewBatch()
	for _, env := range envs {
		ok, err := batch.TryAdd(env)
		if err != nil {
			return &PublishError{Reason: ReasonEncoding, TaskID: env.MessageID, Err: err}
		}
		if ok {
			continue
		}

		if err := flush(batch); err != nil {
			return err
		}
		batch = sender.NewBatch()
		if err := addFresh(batch, env); err != nil {
			return err
		}
	}
	if err := flush(batch); err != nil {
		return err
	}

	p.logger.Info("batch sent", map[string]any{
		"queue":    p.queueName,
		"messages": len(envs),
		"batches":  batches,
	})
	return nil
}

// addFresh adds env to an empty batch; failing to fit means the message
// is too large to ever be sent.
func addFresh(batch *queue.Batch, env queue.Envelope) error {
	ok, err := batch.TryAdd(env)
	if err != nil {
		return &PublishError{Reason: ReasonEncoding, TaskID: env.MessageID, Err: err}
	}
	if !ok {
		return &PublishError{Reason: ReasonMessageTooLarge, TaskID: env.MessageID, Err: errTooLarge}
	}
	return nil
}

func taskIDOf(msg *model.TaskMessage) string {
	if msg == nil {
		return ""
	}
	return msg.TaskID
}
