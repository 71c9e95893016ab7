package service

import (
	"context"
	"fmt"
	"log/slog"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/model"
	"chatstore/internal/validation"
)

// ChatLogStore is the chat log side of the store.
type ChatLogStore interface {
	Create(ctx context.Context) (string, error)
	Save(ctx context.Context, chatID string, messages []model.Message) error
	Append(ctx context.Context, chatID string, message model.Message) error
	Load(ctx context.Context, chatID string) []model.Message
	Delete(ctx context.Context, chatID string) error
}

// StreamRegistry is the per-chat stream id list.
type StreamRegistry interface {
	AppendStreamID(ctx context.Context, chatID, streamID string) error
	LoadStreamIDs(ctx context.Context, chatID string) []string
	Latest(ctx context.Context, chatID string) (string, bool)
	Clear(ctx context.Context, chatID string) error
}

// Catalog lists chat summaries.
type Catalog interface {
	ListAll(ctx context.Context) []model.ChatSummary
}

// ChatStore is the public surface of the persistence layer. It holds no
// state of its own: it validates arguments and delegates.
type ChatStore struct {
	chats   ChatLogStore
	streams StreamRegistry
	catalog Catalog
}

func NewChatStore(chats ChatLogStore, streams StreamRegistry, catalog Catalog) *ChatStore {
	return &ChatStore{chats: chats, streams: streams, catalog: catalog}
}

// CreateChat allocates a new, empty chat and returns its id.
func (s *ChatStore) CreateChat(ctx context.Context) (string, error) {
	id, err := s.chats.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("could not create chat: %w", err)
	}
	slog.Info("Created chat", "chat_id", id)
	return id, nil
}

// SaveChat replaces the full message log of chatID.
func (s *ChatStore) SaveChat(ctx context.Context, chatID string, messages []model.Message) error {
	if err := validation.ChatID(chatID); err != nil {
		return err
	}
	for i := range messages {
		if err := validation.Struct(messages[i]); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	if err := s.chats.Save(ctx, chatID, messages); err != nil {
		return fmt.Errorf("could not save chat: %w", err)
	}
	slog.Debug("Saved chat", "chat_id", chatID, "messages", len(messages))
	return nil
}

// AppendMessageToChat adds one message to the end of chatID's log.
func (s *ChatStore) AppendMessageToChat(ctx context.Context, chatID string, message model.Message) error {
	if err := validation.ChatID(chatID); err != nil {
		return err
	}
	if err := validation.Struct(message); err != nil {
		return err
	}
	if err := s.chats.Append(ctx, chatID, message); err != nil {
		return fmt.Errorf("could not append message: %w", err)
	}
	return nil
}

// LoadChat returns chatID's messages. Only an invalid id is an error;
// storage problems yield an empty history.
func (s *ChatStore) LoadChat(ctx context.Context, chatID string) ([]model.Message, error) {
	if err := validation.ChatID(chatID); err != nil {
		return nil, err
	}
	return s.chats.Load(ctx, chatID), nil
}

// DeleteChat clears chatID's log and stream list. Both slots stay allocated.
func (s *ChatStore) DeleteChat(ctx context.Context, chatID string) error {
	if err := validation.ChatID(chatID); err != nil {
		return err
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("could not delete chat: %w", err)
	}
	if err := s.streams.Clear(ctx, chatID); err != nil {
		return fmt.Errorf("could not clear streams: %w", err)
	}
	slog.Info("Deleted chat", "chat_id", chatID)
	return nil
}

// AppendStreamID records a newly started generation stream for chatID.
func (s *ChatStore) AppendStreamID(ctx context.Context, chatID, streamID string) error {
	if err := validation.ChatID(chatID); err != nil {
		return err
	}
	if streamID == "" {
		return fmt.Errorf("%w: stream id is required", app_errors.ErrInvalidArgument)
	}
	if err := s.streams.AppendStreamID(ctx, chatID, streamID); err != nil {
		return fmt.Errorf("could not record stream: %w", err)
	}
	return nil
}

// LoadStreams returns every stream id recorded for chatID, oldest first.
func (s *ChatStore) LoadStreams(ctx context.Context, chatID string) ([]string, error) {
	if err := validation.ChatID(chatID); err != nil {
		return nil, err
	}
	return s.streams.LoadStreamIDs(ctx, chatID), nil
}

// LatestStreamID returns the resumption candidate of chatID.
func (s *ChatStore) LatestStreamID(ctx context.Context, chatID string) (string, bool, error) {
	if err := validation.ChatID(chatID); err != nil {
		return "", false, err
	}
	id, ok := s.streams.Latest(ctx, chatID)
	return id, ok, nil
}

// GetAllChats returns the summaries of every non-empty chat, newest first.
func (s *ChatStore) GetAllChats(ctx context.Context) ([]model.ChatSummary, error) {
	return s.catalog.ListAll(ctx), nil
}
