package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	MaxBatchBytes    int
	MaxDeliveryCount int
}

func DefaultOptions() Options {
	return Options{
		MaxBatchBytes:    DefaultMaxBatchBytes,
		MaxDeliveryCount: DefaultMaxDeliveryCount,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxBatchBytes <= 0 {
		o.MaxBatchBytes = DefaultMaxBatchBytes
	}
	if o.MaxDeliveryCount <= 0 {
		o.MaxDeliveryCount = DefaultMaxDeliveryCount
	}
	return o
}

// Broker is the long-lived connection to Redis shared by senders and
// receivers.
type Broker struct {
	client *redis.Client
	opts   Options
}

// NewBroker connects to the Redis server at url and verifies it answers.
func NewBroker(url string, opts Options) (*Broker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewBrokerFromClient(client, opts), nil
}

func NewBrokerFromClient(client *redis.Client, opts Options) *Broker {
	return &Broker{client: client, opts: opts.withDefaults()}
}

func (b *Broker) Options() Options {
	return b.opts
}

func (b *Broker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *Broker) Close() error {
	return b.client.Close()
}

// NewSender checks a dedicated connection out of the pool for publishing to
// queueName. The caller must Close the sender to return it.
func (b *Broker) NewSender(ctx context.Context, queueName string) (Sender, error) {
	conn := b.client.Conn()
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire sender connection: %w", err)
	}

	return &redisSender{
		conn:     conn,
		queue:    queueName,
		maxBytes: b.opts.MaxBatchBytes,
	}, nil
}

func (b *Broker) NewReceiver(queueName string) *Receiver {
	return &Receiver{
		client:      b.client,
		queue:       queueName,
		processing:  ProcessingList(queueName),
		deadLetter:  DeadLetterList(queueName),
		maxDelivery: b.opts.MaxDeliveryCount,
	}
}

var _ Sender = (*redisSender)(nil)

type redisSender struct {
	mu       sync.Mutex
	conn     *redis.Conn
	queue    string
	maxBytes int
	closed   bool
}

func (s *redisSender) Send(ctx context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}

	data, err := encodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if len(data) > s.maxBytes {
		return fmt.Errorf("message %s is %d bytes, limit is %d", env.MessageID, len(data), s.maxBytes)
	}

	if err := s.conn.LPush(ctx, s.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (s *redisSender) NewBatch() *Batch {
	return NewBatch(s.maxBytes)
}

// SendBatch pushes every envelope with a single LPUSH, so the batch lands
// atomically and in order.
func (s *redisSender) SendBatch(ctx context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if batch.Len() == 0 {
		return nil
	}

	values := make([]any, len(batch.items))
	for i, item := range batch.items {
		values[i] = item
	}

	if err := s.conn.LPush(ctx, s.queue, values...).Err(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

func (s *redisSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// abandonScript removes the in-flight entry and requeues or dead-letters the
// updated envelope only if the entry was still in flight.
var abandonScript = redis.NewScript(`
if redis.call('LREM', KEYS[1], 1, ARGV[1]) == 0 then
	return 0
end
if ARGV[3] == '1' then
	redis.call('LPUSH', KEYS[3], ARGV[2])
else
	redis.call('RPUSH', KEYS[2], ARGV[2])
end
return 1
`)

// Delivery is a received message held in the processing list until it is
// completed or abandoned.
type Delivery struct {
	Envelope
	raw string
}

// Receiver consumes one queue with at-least-once semantics: a received
// message stays in the processing list until settled.
type Receiver struct {
	client      *redis.Client
	queue       string
	processing  string
	deadLetter  string
	maxDelivery int
}

func (r *Receiver) QueueName() string {
	return r.queue
}

// Receive waits up to wait for a message. It returns (nil, nil) on timeout.
func (r *Receiver) Receive(ctx context.Context, wait time.Duration) (*Delivery, error) {
	raw, err := r.client.BLMove(ctx, r.queue, r.processing, "RIGHT", "LEFT", wait).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}

	env := decodeEnvelope(raw)
	env.DeliveryCount++
	return &Delivery{Envelope: env, raw: raw}, nil
}

// Complete acknowledges d.
func (r *Receiver) Complete(ctx context.Context, d *Delivery) error {
	removed, err := r.client.LRem(ctx, r.processing, 1, d.raw).Result()
	if err != nil {
		return fmt.Errorf("failed to complete message %s: %w", d.MessageID, err)
	}
	if removed == 0 {
		return fmt.Errorf("complete message %s: %w", d.MessageID, ErrDeliveryNotFound)
	}
	return nil
}

// Abandon returns d to the queue for redelivery, or moves it to the
// dead-letter list once it has been delivered MaxDeliveryCount times. It
// reports whether the message was dead-lettered.
func (r *Receiver) Abandon(ctx context.Context, d *Delivery, cause error) (bool, error) {
	deadLetter := d.DeliveryCount >= r.maxDelivery

	env := d.Envelope
	if deadLetter {
		description := ""
		if cause != nil {
			description = cause.Error()
		}
		env = env.withProperties(map[string]any{
			"DeadLetterReason":           "MaxDeliveryCountExceeded",
			"DeadLetterErrorDescription": description,
		})
	}

	data, err := encodeEnvelope(env)
	if err != nil {
		return false, fmt.Errorf("failed to marshal message %s: %w", d.MessageID, err)
	}

	target := "0"
	if deadLetter {
		target = "1"
	}

	settled, err := abandonScript.Run(ctx, r.client,
		[]string{r.processing, r.queue, r.deadLetter},
		d.raw, data, target,
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to abandon message %s: %w", d.MessageID, err)
	}
	if settled == 0 {
		return false, fmt.Errorf("abandon message %s: %w", d.MessageID, ErrDeliveryNotFound)
	}

	return deadLetter, nil
}

func (r *Receiver) Depth(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.queue).Result()
}

func (r *Receiver) InFlight(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.processing).Result()
}

func (r *Receiver) DeadLetterDepth(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.deadLetter).Result()
}

// DeadLetters returns up to n dead-lettered envelopes, newest first.
func (r *Receiver) DeadLetters(ctx context.Context, n int64) ([]Envelope, error) {
	raws, err := r.client.LRange(ctx, r.deadLetter, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dead-letter list: %w", err)
	}

	out := make([]Envelope, len(raws))
	for i, raw := range raws {
		out[i] = decodeEnvelope(raw)
	}
	return out, nil
}
