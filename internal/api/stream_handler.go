package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/interfaces"
	"chatstore/internal/model"
	"chatstore/internal/service"
)

// StreamHeader carries the id of the stream being served.
const StreamHeader = "X-Stream-Id"

// StreamHandler serves generation streams over Server-Sent Events.
type StreamHandler struct {
	generation interfaces.GenerationService
}

func NewStreamHandler(generation interfaces.GenerationService) *StreamHandler {
	return &StreamHandler{generation: generation}
}

// HandleChat godoc
// @Summary      Generate a reply
// @Description  Saves the conversation, starts a resumable generation and streams it as SSE.
// @Tags         Generation
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body      service.StartRequest  true  "Conversation"
// @Success      200      {object}  model.StreamChunk
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /chat [post]
func (h *StreamHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrInvalidArgument))
		return
	}

	streamID, chunks, err := h.generation.Start(r.Context(), &req)
	if err != nil {
		respondWithError(w, err)
		return
	}
	h.serveStream(w, r, streamID, chunks)
}

// HandleResume godoc
// @Summary      Resume a reply
// @Description  Re-attaches to the latest generation of a chat. Replays what was produced so far, then follows it. Returns 204 when nothing is in progress.
// @Tags         Generation
// @Produce      text/event-stream
// @Param        chatID  path  string  true  "Chat ID"
// @Success      200     {object}  model.StreamChunk
// @Success      204     "No Content"
// @Failure      400     {object}  ErrorResponse
// @Router       /chat/{chatID}/stream [get]
func (h *StreamHandler) HandleResume(w http.ResponseWriter, r *http.Request) {
	streamID, chunks, err := h.generation.Resume(r.Context(), chi.URLParam(r, "chatID"))
	if errors.Is(err, app_errors.ErrStreamNotActive) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		respondWithError(w, err)
		return
	}
	h.serveStream(w, r, streamID, chunks)
}

func (h *StreamHandler) serveStream(w http.ResponseWriter, r *http.Request, streamID string, chunks <-chan model.StreamChunk) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(StreamHeader, streamID)
	w.WriteHeader(http.StatusOK)

	for chunk := range chunks {
		if chunk.Error != "" {
			sendStreamError(w, chunk.Error)
			continue
		}
		if err := writeStreamEvent(w, chunk); err != nil {
			// The generation keeps running; the client may resume it.
			slog.Info("Client disconnected from stream", "stream_id", streamID, "error", err)
			return
		}
	}
	if r.Context().Err() != nil {
		slog.Info("Client disconnected from stream", "stream_id", streamID)
		return
	}
	slog.Debug("Finished streaming response", "stream_id", streamID)
}
