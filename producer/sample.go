package producer

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go-taskbus/model"

	"github.com/google/uuid"
)

const (
	sampleCreatedBy = "system"
	customCreatedBy = "test-client"
	defaultPriority = 3
)

// Generator supplies randomness for sample messages. A seeded
// *math/rand.Rand makes samples reproducible.
type Generator interface {
	io.Reader
	Intn(n int) int
}

type defaultGenerator struct{}

func (defaultGenerator) Read(p []byte) (int, error) { return crand.Read(p) }
func (defaultGenerator) Intn(n int) int             { return rand.Intn(n) }

// SampleFactory builds randomized test messages of a fixed shape.
type SampleFactory struct {
	mu  sync.Mutex
	gen Generator
	now func() time.Time
}

// NewSampleFactory uses gen and now, or crypto randomness and the wall clock
// when they are nil.
func NewSampleFactory(gen Generator, now func() time.Time) *SampleFactory {
	if gen == nil {
		gen = defaultGenerator{}
	}
	if now == nil {
		now = time.Now
	}
	return &SampleFactory{gen: gen, now: now}
}

// Create returns a sample message of taskType (data-processing when empty).
func (f *SampleFactory) Create(taskType string) (*model.TaskMessage, error) {
	if strings.TrimSpace(taskType) == "" {
		taskType = model.TypeDataProcessing
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id, err := uuid.NewRandomFromReader(f.gen)
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}

	return &model.TaskMessage{
		TaskID:    id.String(),
		TaskName:  fmt.Sprintf("Sample %s task", taskType),
		TaskType:  taskType,
		CreatedAt: f.now().UTC(),
		CreatedBy: sampleCreatedBy,
		Priority:  1 + f.gen.Intn(4),
		Parameters: map[string]model.Value{
			"inputPath":  model.String("/data/input"),
			"outputPath": model.String("/data/output"),
			"timeout":    model.Int(300),
		},
	}, nil
}

// RandomType picks one of the well-known task types.
func (f *SampleFactory) RandomType() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return model.TaskTypes[f.gen.Intn(len(model.TaskTypes))]
}

// CreateBatch returns count samples of random types named "Batch task N".
func (f *SampleFactory) CreateBatch(count int) ([]*model.TaskMessage, error) {
	msgs := make([]*model.TaskMessage, 0, count)
	for i := 0; i < count; i++ {
		msg, err := f.Create(f.RandomType())
		if err != nil {
			return nil, err
		}
		msg.TaskName = fmt.Sprintf("Batch task %d", i+1)
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// NewCustom builds a client-authored message. Priorities outside 1..5 become
// 3 and an empty type becomes "custom".
func NewCustom(name, taskType string, priority int, now time.Time) *model.TaskMessage {
	if strings.TrimSpace(name) == "" {
		name = "Custom Task"
	}
	if strings.TrimSpace(taskType) == "" {
		taskType = "custom"
	}
	if priority < 1 || priority > 5 {
		priority = defaultPriority
	}

	now = now.UTC()
	return &model.TaskMessage{
		TaskID:    uuid.NewString(),
		TaskName:  name,
		TaskType:  taskType,
		CreatedAt: now,
		CreatedBy: customCreatedBy,
		Priority:  priority,
		Parameters: map[string]model.Value{
			"customParam": model.String("Custom parameter value"),
			"timestamp":   model.String(now.Format("2006-01-02 15:04:05")),
		},
	}
}
