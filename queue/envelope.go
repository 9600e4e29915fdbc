package queue

import (
	"encoding/json"
	"maps"
	"time"
)

const envelopeVersion = 1

// Envelope is one broker message: an opaque body plus routing metadata.
type Envelope struct {
	Version       int            `json:"envelopeVersion"`
	MessageID     string         `json:"messageId"`
	Subject       string         `json:"subject,omitempty"`
	ContentType   string         `json:"contentType,omitempty"`
	Properties    map[string]any `json:"applicationProperties,omitempty"`
	Body          []byte         `json:"body"`
	EnqueuedAt    time.Time      `json:"enqueuedAt"`
	DeliveryCount int            `json:"deliveryCount"`
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	env.Version = envelopeVersion
	if env.EnqueuedAt.IsZero() {
		env.EnqueuedAt = time.Now().UTC()
	}
	return json.Marshal(env)
}

// decodeEnvelope reads a stored list entry. Entries that were not written by
// a Sender (for example values pushed by hand with redis-cli) are delivered
// as a bare body.
func decodeEnvelope(raw string) Envelope {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Version == 0 {
		return Envelope{Version: envelopeVersion, Body: []byte(raw)}
	}
	return env
}

func (e Envelope) withProperties(extra map[string]any) Envelope {
	props := make(map[string]any, len(e.Properties)+len(extra))
	maps.Copy(props, e.Properties)
	maps.Copy(props, extra)
	e.Properties = props
	return e
}

// Batch collects encoded envelopes up to a byte limit.
type Batch struct {
	maxBytes int
	size     int
	items    [][]byte
	ids      []string
}

func NewBatch(maxBytes int) *Batch {
	return &Batch{maxBytes: maxBytes}
}

// TryAdd appends env if it fits. It returns false, without error, when the
// batch has no room left for it.
func (b *Batch) TryAdd(env Envelope) (bool, error) {
	data, err := encodeEnvelope(env)
	if err != nil {
		return false, err
	}
	if b.size+len(data) > b.maxBytes {
		return false, nil
	}

	b.items = append(b.items, data)
	b.ids = append(b.ids, env.MessageID)
	b.size += len(data)
	return true, nil
}

func (b *Batch) Len() int      { return len(b.items) }
func (b *Batch) Size() int     { return b.size }
func (b *Batch) MaxBytes() int { return b.maxBytes }

// MessageIDs returns the ids of the batched envelopes in insertion order.
func (b *Batch) MessageIDs() []string {
	return append([]string(nil), b.ids...)
}

// EncodedSize is the number of bytes env occupies in a batch.
func EncodedSize(env Envelope) (int, error) {
	data, err := encodeEnvelope(env)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
