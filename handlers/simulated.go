package handlers

import (
	"context"
	"math/rand"
	"time"

	"go-taskbus/logger"
	"go-taskbus/model"
)

// Sleeper waits for d or until ctx is done, whichever comes first.
// Tests inject a fake to avoid real waits.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Random draws simulated outcomes. Implementations shared across handlers
// must be safe for concurrent use.
type Random interface {
	Intn(n int) int
}

type globalRandom struct{}

func (globalRandom) Intn(n int) int { return rand.Intn(n) }

type options struct {
	sleeper Sleeper
	random  Random
}

type Option func(*options)

func WithSleeper(s Sleeper) Option {
	return func(o *options) { o.sleeper = s }
}

func WithRandom(r Random) Option {
	return func(o *options) { o.random = r }
}

func buildOptions(opts []Option) options {
	o := options{sleeper: realSleeper{}, random: globalRandom{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Simulation describes a placeholder unit of work: a bounded wait followed by
// a logged numeric outcome drawn from [Min, Max).
type Simulation struct {
	Name     string
	Duration time.Duration
	Started  string
	Finished string
	// Outcome names the logged number; empty means none is logged.
	Outcome string
	Min     int
	Max     int
}

var (
	DataProcessing = Simulation{
		Name:     model.TypeDataProcessing,
		Duration: 2 * time.Second,
		Started:  "processing data",
		Finished: "data processing completed",
		Outcome:  "records_processed",
		Min:      100,
		Max:      1000,
	}
	FileUpload = Simulation{
		Name:     model.TypeFileUpload,
		Duration: 3 * time.Second,
		Started:  "uploading file",
		Finished: "file upload completed",
		Outcome:  "file_size_mb",
		Min:      1,
		Max:      100,
	}
	EmailNotification = Simulation{
		Name:     model.TypeEmailNotification,
		Duration: 500 * time.Millisecond,
		Started:  "sending email notification",
		Finished: "email notification sent",
		Outcome:  "recipients",
		Min:      1,
		Max:      10,
	}
	ReportGeneration = Simulation{
		Name:     model.TypeReportGeneration,
		Duration: 5 * time.Second,
		Started:  "generating report",
		Finished: "report generation completed",
		Outcome:  "pages_generated",
		Min:      10,
		Max:      100,
	}
	Generic = Simulation{
		Name:     "generic",
		Duration: time.Second,
		Started:  "executing generic task",
		Finished: "generic task completed",
	}
)

var _ Handler = (*SimulatedHandler)(nil)

// SimulatedHandler runs a Simulation for every message it receives.
type SimulatedHandler struct {
	sim     Simulation
	sleeper Sleeper
	random  Random
	logger  *logger.Logger
}

func NewSimulatedHandler(sim Simulation, lg *logger.Logger, opts ...Option) *SimulatedHandler {
	o := buildOptions(opts)
	return &SimulatedHandler{
		sim:     sim,
		sleeper: o.sleeper,
		random:  o.random,
		logger:  lg,
	}
}

func NewDataProcessingHandler(lg *logger.Logger, opts ...Option) *SimulatedHandler {
	return NewSimulatedHandler(DataProcessing, lg, opts...)
}

func NewFileUploadHandler(lg *logger.Logger, opts ...Option) *SimulatedHandler {
	return NewSimulatedHandler(FileUpload, lg, opts...)
}

func NewEmailNotificationHandler(lg *logger.Logger, opts ...Option) *SimulatedHandler {
	return NewSimulatedHandler(EmailNotification, lg, opts...)
}

func NewReportGenerationHandler(lg *logger.Logger, opts ...Option) *SimulatedHandler {
	return NewSimulatedHandler(ReportGeneration, lg, opts...)
}

func NewGenericHandler(lg *logger.Logger, opts ...Option) *SimulatedHandler {
	return NewSimulatedHandler(Generic, lg, opts...)
}

func (h *SimulatedHandler) Name() string {
	return h.sim.Name
}

func (h *SimulatedHandler) Handle(ctx context.Context, msg *model.TaskMessage) error {
	h.logger.Task(msg.TaskID, h.sim.Started, map[string]any{
		"handler":   h.sim.Name,
		"task_name": msg.TaskName,
	})

	if fail, _ := msg.Param(SimulateFailureParam).AsBool(); fail {
		return &HandlerError{Handler: h.sim.Name, TaskID: msg.TaskID, Err: ErrSimulatedFailure}
	}

	if err := h.sleeper.Sleep(ctx, h.sim.Duration); err != nil {
		return &HandlerError{Handler: h.sim.Name, TaskID: msg.TaskID, Err: err}
	}

	fields := map[string]any{
		"handler":     h.sim.Name,
		"duration_ms": h.sim.Duration.Milliseconds(),
	}
	if h.sim.Outcome != "" && h.sim.Max > h.sim.Min {
		fields[h.sim.Outcome] = h.sim.Min + h.random.Intn(h.sim.Max-h.sim.Min)
	}
	h.logger.Task(msg.TaskID, h.sim.Finished, fields)

	return nil
}
