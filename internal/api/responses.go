package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/model"
)

// Shared DTOs for API responses and helpers for writing them.

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse is returned by operations that have no resource to return.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// ChatListResponse wraps the chat catalog.
type ChatListResponse struct {
	Chats []model.ChatSummary `json:"chats"`
}

// CreateChatResponse carries the id of a newly allocated chat.
type CreateChatResponse struct {
	ChatID string `json:"chatId" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
}

// StreamListResponse lists the generation streams recorded for a chat.
type StreamListResponse struct {
	Streams []string `json:"streams"`
}

// SaveChatRequest replaces the full message log of a chat.
type SaveChatRequest struct {
	Messages []model.Message `json:"messages" validate:"dive"`
}

// respondWithError maps business-layer errors to HTTP status codes and
// writes a standard JSON error response.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, app_errors.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "The requested resource was not found."
	case errors.Is(err, app_errors.ErrInvalidArgument):
		statusCode = http.StatusBadRequest
		// Validation messages are already meant for the client.
		message = err.Error()
	case errors.Is(err, app_errors.ErrDuplicateID):
		statusCode = http.StatusConflict
		message = "A chat with the generated id already exists. Please retry."
	case errors.Is(err, app_errors.ErrConcurrentWrite):
		statusCode = http.StatusConflict
		message = "The chat is being modified by another request. Please retry."
	default:
		// Anything else is internal; details stay in the log.
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// sendStreamError sends a structured error message over an SSE stream.
func sendStreamError(w http.ResponseWriter, message string) {
	slog.Warn("Sending stream error to client", "message", message)

	jsonData, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		slog.Error("Failed to marshal stream error payload", "error", err)
		return
	}

	// Clients can listen for `event: error` separately from data events.
	if _, err := fmt.Fprintf(w, "event: error\ndata: %s\n\n", string(jsonData)); err != nil {
		slog.Warn("Failed to write stream error, client might have disconnected", "error", err)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// writeStreamEvent marshals data and writes it as one SSE data event.
// A returned error means the client has gone away.
func writeStreamEvent(w http.ResponseWriter, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal stream data to JSON", "error", err)
		return nil
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", string(jsonData)); err != nil {
		return fmt.Errorf("failed to write data to stream: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
