package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-taskbus/dispatcher"
	"go-taskbus/logger"
	"go-taskbus/model"
	"go-taskbus/queue"
	"go-taskbus/store"
)

const (
	receiveErrorBackoff = time.Second
	settleTimeout       = 5 * time.Second
)

// Source is the queue a pool consumes. *queue.Receiver implements it.
type Source interface {
	QueueName() string
	Receive(ctx context.Context, wait time.Duration) (*queue.Delivery, error)
	Complete(ctx context.Context, d *queue.Delivery) error
	Abandon(ctx context.Context, d *queue.Delivery, cause error) (bool, error)
}

// MessageHandler processes one delivered payload. *dispatcher.Dispatcher
// implements it.
type MessageHandler interface {
	Handle(ctx context.Context, payload []byte, meta dispatcher.Metadata) error
}

type Config struct {
	WorkerCount    int
	ReceiveWait    time.Duration
	HandlerTimeout time.Duration
}

// Pool runs WorkerCount consumers against one Source. Messages are handled
// concurrently with no ordering between them.
type Pool struct {
	source   Source
	handler  MessageHandler
	recorder store.Recorder
	cfg      Config
	logger   *logger.Logger
	wg       sync.WaitGroup
}

func NewPool(source Source, handler MessageHandler, recorder store.Recorder, cfg Config, lg *logger.Logger) *Pool {
	if recorder == nil {
		recorder = store.Nop()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.ReceiveWait <= 0 {
		cfg.ReceiveWait = 2 * time.Second
	}
	return &Pool{
		source:   source,
		handler:  handler,
		recorder: recorder,
		cfg:      cfg,
		logger:   lg,
	}
}

func (p *Pool) WorkerCount() int {
	return p.cfg.WorkerCount
}

// Start launches the workers. They stop once ctx is cancelled; use Wait to
// block until every in-flight message has been settled.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("starting worker pool", map[string]any{
		"worker_count": p.cfg.WorkerCount,
		"queue":        p.source.QueueName(),
	})

	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i + 1)
	}
}

func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("worker shutting down", map[string]any{"worker_id": id})
			return
		default:
		}

		d, err := p.source.Receive(ctx, p.cfg.ReceiveWait)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Error("receive failed", map[string]any{
				"worker_id": id,
				"error":     err.Error(),
			})
			sleep(ctx, receiveErrorBackoff)
			continue
		}
		if d == nil {
			continue
		}

		p.process(ctx, id, d)
	}
}

// process handles d and settles it. Settlement runs on a context detached
// from ctx so a shutdown mid-handler still returns the message to the queue.
func (p *Pool) process(ctx context.Context, id int, d *queue.Delivery) {
	started := time.Now()

	handlerCtx := ctx
	if p.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, p.cfg.HandlerTimeout)
		defer cancel()
	}

	handleErr := p.handler.Handle(handlerCtx, d.Body, dispatcher.Metadata{
		MessageID:     d.MessageID,
		Subject:       d.Subject,
		DeliveryCount: d.DeliveryCount,
		EnqueuedAt:    d.EnqueuedAt,
		Properties:    d.Properties,
	})

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	exec := store.Execution{
		MessageID:     d.MessageID,
		TaskType:      d.Subject,
		DeliveryCount: d.DeliveryCount,
		StartedAt:     started.UTC(),
	}
	if d.ContentType == model.ContentType {
		exec.TaskID = d.MessageID
	}

	if handleErr == nil {
		if err := p.source.Complete(settleCtx, d); err != nil {
			p.logger.Error("failed to complete message", map[string]any{
				"worker_id":  id,
				"message_id": d.MessageID,
				"error":      err.Error(),
			})
			return
		}
		exec.Outcome = store.OutcomeCompleted
	} else {
		exec.Error = handleErr.Error()
		deadLettered, err := p.source.Abandon(settleCtx, d, handleErr)
		if err != nil {
			p.logger.Error("failed to abandon message", map[string]any{
				"worker_id":  id,
				"message_id": d.MessageID,
				"error":      err.Error(),
			})
			return
		}

		exec.Outcome = store.OutcomeAbandoned
		fields := map[string]any{
			"worker_id":      id,
			"message_id":     d.MessageID,
			"delivery_count": d.DeliveryCount,
			"error":          handleErr.Error(),
		}
		if deadLettered {
			exec.Outcome = store.OutcomeDeadLettered
			p.logger.Warn("message dead-lettered", fields)
		} else {
			p.logger.Warn("message abandoned for redelivery", fields)
		}
	}

	exec.FinishedAt = time.Now().UTC()
	if err := p.recorder.Record(settleCtx, exec); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("failed to record execution", map[string]any{
			"message_id": d.MessageID,
			"error":      err.Error(),
		})
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
