package queue

import (
	"context"
	"errors"
)

var (
	// ErrSenderClosed is returned by a Sender used after Close.
	ErrSenderClosed = errors.New("sender is closed")

	// ErrDeliveryNotFound means the delivery was already settled.
	ErrDeliveryNotFound = errors.New("delivery not found in processing list")
)

const (
	DefaultMaxBatchBytes    = 256 * 1024
	DefaultMaxDeliveryCount = 10
)

// Sender publishes to one queue. A Sender owns a broker connection until
// Close and must not be shared between concurrent publishes.
type Sender interface {
	Send(ctx context.Context, env Envelope) error
	NewBatch() *Batch
	SendBatch(ctx context.Context, batch *Batch) error
	Close() error
}

func ProcessingList(queueName string) string { return queueName + ":processing" }
func DeadLetterList(queueName string) string { return queueName + ":deadletter" }
