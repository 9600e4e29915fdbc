package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-taskbus/handlers"
	"go-taskbus/logger"
	"go-taskbus/model"
	"go-taskbus/producer"
	"go-taskbus/store"
)

// Publisher sends task messages to the queue. *producer.Producer implements it.
type Publisher interface {
	SendOne(ctx context.Context, msg *model.TaskMessage) error
	SendBatch(ctx context.Context, msgs []*model.TaskMessage) error
}

// QueueStats reports list lengths. *queue.Receiver implements it.
type QueueStats interface {
	QueueName() string
	Depth(ctx context.Context) (int64, error)
	InFlight(ctx context.Context) (int64, error)
	DeadLetterDepth(ctx context.Context) (int64, error)
}

// ExecutionLister reads the execution ledger. *store.PostgresStore implements it.
type ExecutionLister interface {
	List(ctx context.Context, f store.Filter) ([]store.Execution, error)
}

// Dependencies wires the HTTP surface to the rest of the service.
// Executions may be nil when no ledger is configured.
type Dependencies struct {
	Publisher  Publisher
	Samples    *producer.SampleFactory
	Queue      QueueStats
	Executions ExecutionLister
	Registry   *handlers.Registry
}

type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

func New(addr string, deps Dependencies, lg *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(deps, lg),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: lg,
	}
}

// NewRouter registers every route and wraps them in request logging.
func NewRouter(deps Dependencies, lg *logger.Logger) http.Handler {
	if deps.Samples == nil {
		deps.Samples = producer.NewSampleFactory(nil, nil)
	}

	h := &routes{deps: deps, logger: lg, now: time.Now}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /messages", h.postMessage)
	mux.HandleFunc("POST /messages/samples", h.postSamples)
	mux.HandleFunc("GET /queue", h.getQueue)
	mux.HandleFunc("GET /executions", h.getExecutions)
	mux.HandleFunc("GET /health", h.getHealth)

	return LoggingMiddleware(lg)(mux)
}

type routes struct {
	deps   Dependencies
	logger *logger.Logger
	now    func() time.Time
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe blocks until the server fails or is shut down. A clean
// shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.logger.Info("server starting", map[string]any{"address": s.httpServer.Addr})

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("server forced to shutdown", map[string]any{"error": err.Error()})
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}
