package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/interfaces"
	"chatstore/internal/model"
	"chatstore/internal/validation"
)

// ChatHandler serves the chat persistence endpoints.
type ChatHandler struct {
	store interfaces.ChatStore
}

func NewChatHandler(store interfaces.ChatStore) *ChatHandler {
	return &ChatHandler{store: store}
}

// GetChats godoc
// @Summary      List chats
// @Description  Returns a summary of every non-empty chat, most recently updated first.
// @Tags         Chats
// @Produce      json
// @Success      200  {object}  ChatListResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.GetAllChats(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ChatListResponse{Chats: chats})
}

// CreateChat godoc
// @Summary      Create a chat
// @Description  Allocates a new, empty chat and returns its id.
// @Tags         Chats
// @Produce      json
// @Success      200  {object}  CreateChatResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /chats [post]
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	chatID, err := h.store.CreateChat(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, CreateChatResponse{ChatID: chatID})
}

// GetChat godoc
// @Summary      Load a chat
// @Description  Returns the messages of a chat. Missing, deleted or unreadable chats yield an empty list.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {array}   model.Message
// @Failure      400     {object}  ErrorResponse
// @Router       /chats/{chatID} [get]
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.LoadChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	respondWithJSON(w, http.StatusOK, messages)
}

// SaveChat godoc
// @Summary      Replace a chat
// @Description  Replaces the full message log of a chat, creating it if needed.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        chatID   path      string           true  "Chat ID"
// @Param        request  body      SaveChatRequest  true  "Messages"
// @Success      200      {object}  SuccessResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /chats/{chatID} [put]
func (h *ChatHandler) SaveChat(w http.ResponseWriter, r *http.Request) {
	var req SaveChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrInvalidArgument))
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.store.SaveChat(r.Context(), chi.URLParam(r, "chatID"), req.Messages); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// AppendMessage godoc
// @Summary      Append a message
// @Description  Adds one message to the end of a chat.
// @Tags         Chats
// @Accept       json
// @Produce      json
// @Param        chatID   path      string         true  "Chat ID"
// @Param        message  body      model.Message  true  "Message"
// @Success      200      {object}  SuccessResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /chats/{chatID}/messages [post]
func (h *ChatHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var message model.Message
	if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrInvalidArgument))
		return
	}
	if err := h.store.AppendMessageToChat(r.Context(), chi.URLParam(r, "chatID"), message); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// DeleteChat godoc
// @Summary      Delete a chat
// @Description  Clears a chat and its stream list. The id may be given in the path or as the `id` query parameter.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  false  "Chat ID"
// @Param        id      query     string  false  "Chat ID"
// @Success      200     {object}  SuccessResponse
// @Failure      400     {object}  ErrorResponse
// @Failure      409     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /chats/{chatID} [delete]
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		chatID = r.URL.Query().Get("id")
	}
	if chatID == "" {
		respondWithError(w, fmt.Errorf("%w: chat id is required", app_errors.ErrInvalidArgument))
		return
	}
	if err := h.store.DeleteChat(r.Context(), chatID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// GetStreams godoc
// @Summary      List chat streams
// @Description  Returns every generation stream id recorded for a chat, oldest first.
// @Tags         Chats
// @Produce      json
// @Param        chatID  path      string  true  "Chat ID"
// @Success      200     {object}  StreamListResponse
// @Failure      400     {object}  ErrorResponse
// @Router       /chats/{chatID}/streams [get]
func (h *ChatHandler) GetStreams(w http.ResponseWriter, r *http.Request) {
	streams, err := h.store.LoadStreams(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	if streams == nil {
		streams = []string{}
	}
	respondWithJSON(w, http.StatusOK, StreamListResponse{Streams: streams})
}
