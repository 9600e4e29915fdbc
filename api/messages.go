package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go-taskbus/model"

	"github.com/google/uuid"
)

const (
	maxBodySize     = 1024 * 1024
	maxSampleCount  = 10
	apiCreatedBy    = "api"
	defaultPriority = 3
)

// postMessage publishes the task message in the body. TaskId, CreatedAt,
// CreatedBy and Priority are filled in when the client leaves them out.
func (h *routes) postMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "validation", "request body too large", h.logger)
		return
	}

	msg, err := model.DecodeDraft(body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "validation", err.Error(), h.logger)
		return
	}
	if msg == nil {
		respondWithError(w, http.StatusBadRequest, "validation", "task message is required", h.logger)
		return
	}

	if msg.TaskID == "" {
		msg.TaskID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = h.now().UTC()
	}
	if msg.CreatedBy == "" {
		msg.CreatedBy = apiCreatedBy
	}
	if msg.Priority == 0 {
		msg.Priority = defaultPriority
	}

	if err := h.deps.Publisher.SendOne(r.Context(), msg); err != nil {
		respondWithPublishError(w, err, h.logger)
		return
	}

	encoded, err := model.Encode(msg)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal", "failed to encode response", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, json.RawMessage(encoded), h.logger)
}

// postSamples publishes count generated samples as one batch. Without a type
// each sample gets a random one.
func (h *routes) postSamples(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSampleCount {
			respondWithError(w, http.StatusBadRequest, "validation",
				"count must be between 1 and "+strconv.Itoa(maxSampleCount), h.logger)
			return
		}
		count = n
	}
	taskType := strings.TrimSpace(r.URL.Query().Get("type"))

	msgs := make([]*model.TaskMessage, 0, count)
	for i := 0; i < count; i++ {
		t := taskType
		if t == "" {
			t = h.deps.Samples.RandomType()
		}
		msg, err := h.deps.Samples.Create(t)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "internal", err.Error(), h.logger)
			return
		}
		msgs = append(msgs, msg)
	}

	if err := h.deps.Publisher.SendBatch(r.Context(), msgs); err != nil {
		respondWithPublishError(w, err, h.logger)
		return
	}

	out := make([]json.RawMessage, 0, len(msgs))
	for _, msg := range msgs {
		encoded, err := model.Encode(msg)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "internal", "failed to encode response", h.logger)
			return
		}
		out = append(out, encoded)
	}
	writeJSON(w, http.StatusCreated, out, h.logger)
}
