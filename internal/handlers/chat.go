package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"docchat/internal/models"
)

type questionAnswerer interface {
	Ask(ctx context.Context, question string) (string, error)
}

type ChatHandler struct {
	qa     questionAnswerer
	logger *zap.Logger
}

func NewChatHandler(qa questionAnswerer, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{qa: qa, logger: logger}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	answer, err := h.qa.Ask(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("chat failed", zap.Error(err))
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Answer: answer})
}
