package api

import (
	"net/http"
	"strconv"
	"time"

	"go-taskbus/store"
)

var startTime = time.Now()

type queueResponse struct {
	Queue      string `json:"queue"`
	Ready      int64  `json:"ready"`
	InFlight   int64  `json:"inFlight"`
	DeadLetter int64  `json:"deadLetter"`
}

func (h *routes) getQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := h.deps.Queue

	var resp queueResponse
	resp.Queue = q.QueueName()

	var err error
	if resp.Ready, err = q.Depth(ctx); err == nil {
		if resp.InFlight, err = q.InFlight(ctx); err == nil {
			resp.DeadLetter, err = q.DeadLetterDepth(ctx)
		}
	}
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "broker", err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp, h.logger)
}

func (h *routes) getExecutions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Executions == nil {
		respondWithError(w, http.StatusServiceUnavailable, "unavailable",
			"execution ledger is disabled; set DATABASE_URL to enable it", h.logger)
		return
	}

	outcome, err := store.ParseOutcome(r.URL.Query().Get("outcome"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "validation", err.Error(), h.logger)
		return
	}

	limit := store.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondWithError(w, http.StatusBadRequest, "validation", "limit must be between 1 and 500", h.logger)
			return
		}
		limit = n
	}

	execs, err := h.deps.Executions.List(r.Context(), store.Filter{Outcome: outcome, Limit: limit})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "database", "failed to list executions", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, execs, h.logger)
}

type healthResponse struct {
	Status          string   `json:"status"`
	Timestamp       string   `json:"timestamp"`
	Uptime          string   `json:"uptime"`
	RegisteredTypes []string `json:"registeredTypes"`
	Ledger          bool     `json:"ledger"`
}

func (h *routes) getHealth(w http.ResponseWriter, r *http.Request) {
	var types []string
	if h.deps.Registry != nil {
		types = h.deps.Registry.Types()
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Timestamp:       h.now().UTC().Format(time.RFC3339),
		Uptime:          time.Since(startTime).String(),
		RegisteredTypes: types,
		Ledger:          h.deps.Executions != nil,
	}, h.logger)
}
