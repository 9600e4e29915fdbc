package handlers

import (
	"sort"
	"sync"

	"go-taskbus/logger"
	"go-taskbus/model"
)

// Registry maps normalized task types to handlers and falls back to a
// generic handler for anything unregistered.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry constructs a registry that resolves unknown types to fallback.
func NewRegistry(fallback Handler) *Registry {
	if fallback == nil {
		panic("handlers: nil fallback handler")
	}
	return &Registry{
		handlers: make(map[string]Handler),
		fallback: fallback,
	}
}

// NewDefaultRegistry registers the four simulated task handlers with the
// generic handler as fallback.
func NewDefaultRegistry(lg *logger.Logger, opts ...Option) *Registry {
	r := NewRegistry(NewGenericHandler(lg, opts...))
	r.Register(model.TypeDataProcessing, NewDataProcessingHandler(lg, opts...))
	r.Register(model.TypeFileUpload, NewFileUploadHandler(lg, opts...))
	r.Register(model.TypeEmailNotification, NewEmailNotificationHandler(lg, opts...))
	r.Register(model.TypeReportGeneration, NewReportGenerationHandler(lg, opts...))
	return r
}

// Register binds a handler to a task type, replacing any previous binding.
// Call during startup.
func (r *Registry) Register(taskType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[model.NormalizeTaskType(taskType)] = handler
}

// Resolve returns the handler for taskType, matched case-insensitively.
// When nothing is registered it returns the fallback and false.
func (r *Registry) Resolve(taskType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.handlers[model.NormalizeTaskType(taskType)]; ok {
		return h, true
	}
	return r.fallback, false
}

func (r *Registry) Fallback() Handler {
	return r.fallback
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for taskType := range r.handlers {
		types = append(types, taskType)
	}
	sort.Strings(types)
	return types
}
