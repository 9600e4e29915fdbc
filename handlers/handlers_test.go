package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go-taskbus/logger"
	"go-taskbus/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSleeper records requested waits without pausing.
type fakeSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

func (f *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	f.mu.Lock()
	f.calls = append(f.calls, d)
	f.mu.Unlock()
	return ctx.Err()
}

func (f *fakeSleeper) Calls() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.calls...)
}

// fixedRandom always draws n-1 so outcomes sit at the top of their range.
type fixedRandom struct{}

func (fixedRandom) Intn(n int) int { return n - 1 }

func newTestLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logger.New("DEBUG", &buf), &buf
}

func lastFields(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry struct {
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	entry.Fields["_message"] = entry.Message
	return entry.Fields
}

func TestSimulatedHandlers_Run(t *testing.T) {
	tests := []struct {
		name         string
		newHandler   func(*logger.Logger, ...Option) *SimulatedHandler
		wantDuration time.Duration
		wantMessage  string
		outcomeKey   string
		wantOutcome  float64
	}{
		{"data processing", NewDataProcessingHandler, 2 * time.Second, "data processing completed", "records_processed", 999},
		{"file upload", NewFileUploadHandler, 3 * time.Second, "file upload completed", "file_size_mb", 99},
		{"email notification", NewEmailNotificationHandler, 500 * time.Millisecond, "email notification sent", "recipients", 9},
		{"report generation", NewReportGenerationHandler, 5 * time.Second, "report generation completed", "pages_generated", 99},
		{"generic", NewGenericHandler, time.Second, "generic task completed", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger()
			sleeper := &fakeSleeper{}
			h := tt.newHandler(lg, WithSleeper(sleeper), WithRandom(fixedRandom{}))

			err := h.Handle(context.Background(), &model.TaskMessage{TaskID: "test-id", TaskName: tt.name})

			require.NoError(t, err)
			assert.Equal(t, []time.Duration{tt.wantDuration}, sleeper.Calls())

			fields := lastFields(t, buf)
			assert.Equal(t, tt.wantMessage, fields["_message"])
			assert.Equal(t, "test-id", fields["task_id"])
			if tt.outcomeKey != "" {
				assert.Equal(t, tt.wantOutcome, fields[tt.outcomeKey])
			}
		})
	}
}

func TestSimulatedHandler_OutcomeWithinRange(t *testing.T) {
	lg, buf := newTestLogger()
	h := NewDataProcessingHandler(lg, WithSleeper(&fakeSleeper{}))

	for i := 0; i < 20; i++ {
		buf.Reset()
		require.NoError(t, h.Handle(context.Background(), &model.TaskMessage{TaskID: "t"}))

		records := lastFields(t, buf)["records_processed"].(float64)
		assert.GreaterOrEqual(t, records, float64(100))
		assert.Less(t, records, float64(1000))
	}
}

func TestSimulatedHandler_CancelledContext(t *testing.T) {
	lg, _ := newTestLogger()
	h := NewFileUploadHandler(lg, WithSleeper(&fakeSleeper{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Handle(ctx, &model.TaskMessage{TaskID: "t1"})

	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, model.TypeFileUpload, herr.Handler)
	assert.Equal(t, "t1", herr.TaskID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedHandler_RealSleeperHonoursDeadline(t *testing.T) {
	lg, _ := newTestLogger()
	h := NewReportGenerationHandler(lg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := h.Handle(ctx, &model.TaskMessage{TaskID: "t1"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSimulatedHandler_SimulatedFailure(t *testing.T) {
	lg, _ := newTestLogger()
	sleeper := &fakeSleeper{}
	h := NewEmailNotificationHandler(lg, WithSleeper(sleeper))

	msg := &model.TaskMessage{
		TaskID:     "t1",
		Parameters: map[string]model.Value{SimulateFailureParam: model.Bool(true)},
	}
	err := h.Handle(context.Background(), msg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSimulatedFailure))
	assert.Empty(t, sleeper.Calls())
}

func TestRegistry_ResolveIsCaseInsensitive(t *testing.T) {
	lg, _ := newTestLogger()
	r := NewDefaultRegistry(lg, WithSleeper(&fakeSleeper{}))

	for _, taskType := range []string{"Data-Processing", "DATA-PROCESSING", "data-processing", " data-processing "} {
		h, ok := r.Resolve(taskType)
		assert.True(t, ok, taskType)
		assert.Equal(t, model.TypeDataProcessing, h.Name(), taskType)
	}
}

func TestRegistry_UnknownTypesUseFallback(t *testing.T) {
	lg, _ := newTestLogger()
	r := NewDefaultRegistry(lg)

	for _, taskType := range []string{"unknown-xyz", "", "   "} {
		h, ok := r.Resolve(taskType)
		assert.False(t, ok)
		assert.Equal(t, "generic", h.Name())
		assert.Same(t, r.Fallback(), h)
	}
}

func TestRegistry_TypesSorted(t *testing.T) {
	lg, _ := newTestLogger()
	r := NewDefaultRegistry(lg)

	assert.Equal(t, []string{
		"data-processing",
		"email-notification",
		"file-upload",
		"report-generation",
	}, r.Types())
}

func TestRegistry_RegisterReplacesHandler(t *testing.T) {
	lg, _ := newTestLogger()
	r := NewDefaultRegistry(lg)

	called := false
	r.Register("FILE-UPLOAD", HandlerFunc{
		HandlerName: "custom-upload",
		Fn: func(ctx context.Context, msg *model.TaskMessage) error {
			called = true
			return nil
		},
	})

	h, ok := r.Resolve("file-upload")
	require.True(t, ok)
	require.NoError(t, h.Handle(context.Background(), &model.TaskMessage{TaskID: "t1"}))
	assert.True(t, called)
	assert.Equal(t, "custom-upload", h.Name())
}

func TestNewRegistry_NilFallbackPanics(t *testing.T) {
	assert.Panics(t, func() { NewRegistry(nil) })
}

func TestTextHandler_NeverFails(t *testing.T) {
	lg, buf := newTestLogger()
	sleeper := &fakeSleeper{}
	h := NewTextHandler(lg, WithSleeper(sleeper))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.HandleText(ctx, "hello world")

	assert.Equal(t, []time.Duration{500 * time.Millisecond}, sleeper.Calls())
	fields := lastFields(t, buf)
	assert.Equal(t, "custom task executed for text message", fields["_message"])
	assert.Equal(t, float64(11), fields["length"])
}
