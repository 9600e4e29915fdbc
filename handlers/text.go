package handlers

import (
	"context"
	"time"

	"go-taskbus/logger"
)

const textDuration = 500 * time.Millisecond

// TextHandler processes payloads that are not task messages at all.
type TextHandler struct {
	sleeper Sleeper
	logger  *logger.Logger
}

func NewTextHandler(lg *logger.Logger, opts ...Option) *TextHandler {
	o := buildOptions(opts)
	return &TextHandler{sleeper: o.sleeper, logger: lg}
}

// HandleText never fails. An interrupted wait is logged and ignored.
func (h *TextHandler) HandleText(ctx context.Context, text string) {
	if err := h.sleeper.Sleep(ctx, textDuration); err != nil {
		h.logger.Debug("text processing wait interrupted", map[string]any{
			"error": err.Error(),
		})
	}

	h.logger.Info("custom task executed for text message", map[string]any{
		"length": len(text),
	})
}
