package queue

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_EncodeDecode(t *testing.T) {
	env := Envelope{
		MessageID:   "t1",
		Subject:     "file-upload",
		ContentType: "application/json",
		Properties:  map[string]any{"TaskType": "file-upload", "CreatedBy": "system"},
		Body:        []byte(`{"TaskId":"t1"}`),
		EnqueuedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := encodeEnvelope(env)
	require.NoError(t, err)

	decoded := decodeEnvelope(string(data))
	assert.Equal(t, envelopeVersion, decoded.Version)
	assert.Equal(t, env.MessageID, decoded.MessageID)
	assert.Equal(t, env.Subject, decoded.Subject)
	assert.Equal(t, env.Properties, decoded.Properties)
	assert.Equal(t, env.Body, decoded.Body)
	assert.True(t, env.EnqueuedAt.Equal(decoded.EnqueuedAt))
}

func TestEnvelope_EncodeStampsEnqueuedAt(t *testing.T) {
	data, err := encodeEnvelope(Envelope{MessageID: "t1"})
	require.NoError(t, err)

	decoded := decodeEnvelope(string(data))
	assert.False(t, decoded.EnqueuedAt.IsZero())
}

func TestDecodeEnvelope_ForeignValuesBecomeBody(t *testing.T) {
	for _, raw := range []string{"hello world", `{"TaskId":"t1","TaskType":"file-upload"}`} {
		env := decodeEnvelope(raw)
		assert.Equal(t, []byte(raw), env.Body)
		assert.Empty(t, env.MessageID)
	}
}

func TestEnvelope_WithPropertiesCopies(t *testing.T) {
	env := Envelope{Properties: map[string]any{"a": 1}}

	updated := env.withProperties(map[string]any{"b": 2})

	assert.Len(t, env.Properties, 1)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, updated.Properties)
}

func TestBatch_TryAddRespectsLimit(t *testing.T) {
	env := Envelope{MessageID: "m", Body: []byte(strings.Repeat("x", 100))}
	size, err := EncodedSize(env)
	require.NoError(t, err)

	batch := NewBatch(size*3 + size/2)

	for i := 0; i < 3; i++ {
		ok, err := batch.TryAdd(env)
		require.NoError(t, err)
		require.True(t, ok, "envelope %d should fit", i)
	}

	ok, err := batch.TryAdd(env)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3, batch.Len())
	assert.LessOrEqual(t, batch.Size(), batch.MaxBytes())
	assert.Equal(t, []string{"m", "m", "m"}, batch.MessageIDs())
}

func TestBatch_OversizedEnvelopeNeverFits(t *testing.T) {
	batch := NewBatch(64)

	ok, err := batch.TryAdd(Envelope{MessageID: "big", Body: []byte(strings.Repeat("x", 1024))})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, batch.Len())
}

func TestListNames(t *testing.T) {
	assert.Equal(t, "tasks:processing", ProcessingList("tasks"))
	assert.Equal(t, "tasks:deadletter", DeadLetterList("tasks"))
}
