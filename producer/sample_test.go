package producer

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"go-taskbus/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func seededFactory(seed int64) *SampleFactory {
	return NewSampleFactory(rand.New(rand.NewSource(seed)), func() time.Time { return fixedNow })
}

func TestSampleFactory_Create(t *testing.T) {
	msg, err := seededFactory(1).Create(model.TypeReportGeneration)
	require.NoError(t, err)

	_, err = uuid.Parse(msg.TaskID)
	assert.NoError(t, err)
	assert.Equal(t, "Sample report-generation task", msg.TaskName)
	assert.Equal(t, model.TypeReportGeneration, msg.TaskType)
	assert.Equal(t, "system", msg.CreatedBy)
	assert.Equal(t, fixedNow, msg.CreatedAt)
	assert.GreaterOrEqual(t, msg.Priority, 1)
	assert.LessOrEqual(t, msg.Priority, 4)

	assert.Equal(t, model.String("/data/input"), msg.Parameters["inputPath"])
	assert.Equal(t, model.String("/data/output"), msg.Parameters["outputPath"])
	assert.Equal(t, model.Int(300), msg.Parameters["timeout"])
}

func TestSampleFactory_EmptyTypeDefaultsToDataProcessing(t *testing.T) {
	msg, err := seededFactory(1).Create("  ")
	require.NoError(t, err)
	assert.Equal(t, model.TypeDataProcessing, msg.TaskType)
}

func TestSampleFactory_SeededIsDeterministic(t *testing.T) {
	a, err := seededFactory(42).CreateBatch(5)
	require.NoError(t, err)
	b, err := seededFactory(42).CreateBatch(5)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSampleFactory_UniqueIDs(t *testing.T) {
	msgs, err := NewSampleFactory(nil, nil).CreateBatch(50)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i, msg := range msgs {
		assert.False(t, seen[msg.TaskID], "duplicate id %s", msg.TaskID)
		seen[msg.TaskID] = true
		assert.Contains(t, model.TaskTypes, msg.TaskType)
		assert.Equal(t, "Batch task "+strconv.Itoa(i+1), msg.TaskName)
	}
}

func TestNewCustom(t *testing.T) {
	tests := []struct {
		name         string
		inName       string
		inType       string
		inPriority   int
		wantName     string
		wantType     string
		wantPriority int
	}{
		{"all fields", "Resize images", "file-upload", 5, "Resize images", "file-upload", 5},
		{"defaults", "", "", 0, "Custom Task", "custom", 3},
		{"priority too high", "x", "generic", 9, "x", "generic", 3},
		{"priority negative", "x", "generic", -1, "x", "generic", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewCustom(tt.inName, tt.inType, tt.inPriority, fixedNow)

			assert.Equal(t, tt.wantName, msg.TaskName)
			assert.Equal(t, tt.wantType, msg.TaskType)
			assert.Equal(t, tt.wantPriority, msg.Priority)
			assert.Equal(t, "test-client", msg.CreatedBy)
			assert.NotEmpty(t, msg.TaskID)
			assert.Equal(t, model.String("Custom parameter value"), msg.Parameters["customParam"])
			assert.Equal(t, model.String("2024-05-06 07:08:09"), msg.Parameters["timestamp"])
		})
	}
}
