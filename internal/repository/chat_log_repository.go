package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"chatstore/internal/codec"
	app_errors "chatstore/internal/errors"
	"chatstore/internal/model"
	"chatstore/internal/storage"
)

// ChatLogRepository owns the ordered message log of every chat.
//
// Reads are fail-soft through Load; writes are fail-loud. Every write that
// depends on the current content runs under the chat's lock.
type ChatLogRepository struct {
	backend     storage.Backend
	locks       Locker
	lockTimeout time.Duration
	newID       func() string
}

// ChatLogOption customises a ChatLogRepository.
type ChatLogOption func(*ChatLogRepository)

// WithIDGenerator replaces the chat id generator (uuid v4 by default).
func WithIDGenerator(fn func() string) ChatLogOption {
	return func(r *ChatLogRepository) { r.newID = fn }
}

func NewChatLogRepository(backend storage.Backend, locks Locker, lockTimeout time.Duration, opts ...ChatLogOption) *ChatLogRepository {
	r := &ChatLogRepository{
		backend:     backend,
		locks:       locks,
		lockTimeout: lockTimeout,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a new chat id backed by an empty, active log.
func (r *ChatLogRepository) Create(ctx context.Context) (string, error) {
	id := r.newID()
	data, err := codec.EncodeLog(model.ChatLog{State: model.StateActive})
	if err != nil {
		return "", fmt.Errorf("%w: %w", app_errors.ErrInternal, err)
	}

	if err := r.backend.Create(ctx, storage.KindChat, id, data); err != nil {
		switch {
		case errors.Is(err, storage.ErrRecordExists):
			return "", fmt.Errorf("%w: %s", app_errors.ErrDuplicateID, id)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return "", err
		default:
			return "", fmt.Errorf("%w: %w", app_errors.ErrAllocation, err)
		}
	}
	slog.Debug("Allocated chat", "chat_id", id)
	return id, nil
}

// Save replaces the whole log of chatID, creating the record if needed.
// A cleared chat becomes active again.
func (r *ChatLogRepository) Save(ctx context.Context, chatID string, messages []model.Message) error {
	data, err := codec.EncodeLog(model.ChatLog{State: model.StateActive, Messages: messages})
	if err != nil {
		return fmt.Errorf("%w: %w", app_errors.ErrInvalidArgument, err)
	}
	return withChatLock(ctx, r.locks, r.lockTimeout, chatID, func(ctx context.Context) error {
		if err := r.backend.Write(ctx, storage.KindChat, chatID, data); err != nil {
			return storageError("save", chatID, err)
		}
		return nil
	})
}

// Append adds message to the end of chatID's log. A missing or cleared log
// counts as empty. A record that exists but cannot be decoded is left
// untouched and reported, rather than overwritten with a one-message log.
func (r *ChatLogRepository) Append(ctx context.Context, chatID string, message model.Message) error {
	return withChatLock(ctx, r.locks, r.lockTimeout, chatID, func(ctx context.Context) error {
		log, _, err := r.LoadLog(ctx, chatID)
		if err != nil && !isNotFound(err) {
			return err
		}

		log.Messages = append(slices.Clip(log.Messages), message)
		log.State = model.StateActive
		data, err := codec.EncodeLog(log)
		if err != nil {
			return fmt.Errorf("%w: %w", app_errors.ErrInvalidArgument, err)
		}
		if err := r.backend.Write(ctx, storage.KindChat, chatID, data); err != nil {
			return storageError("append to", chatID, err)
		}
		return nil
	})
}

// Load returns chatID's messages in order. It never fails: a missing,
// unreadable or undecodable record yields an empty history.
func (r *ChatLogRepository) Load(ctx context.Context, chatID string) []model.Message {
	log, _, err := r.LoadLog(ctx, chatID)
	if err != nil {
		if !isNotFound(err) {
			slog.Warn("Failed to load chat, returning empty history", "chat_id", chatID, "error", err)
		}
		return []model.Message{}
	}
	return log.Messages
}

// LoadLog reads and decodes chatID's record together with its metadata.
// Unlike Load it reports failures, wrapped in application sentinels.
func (r *ChatLogRepository) LoadLog(ctx context.Context, chatID string) (model.ChatLog, storage.RecordInfo, error) {
	data, info, err := r.backend.Read(ctx, storage.KindChat, chatID)
	if err != nil {
		return model.ChatLog{Messages: []model.Message{}}, storage.RecordInfo{}, storageError("read", chatID, err)
	}
	log, err := codec.DecodeLog(data)
	if err != nil {
		return model.ChatLog{Messages: []model.Message{}}, info, storageError("decode", chatID, err)
	}
	return log, info, nil
}

// Delete clears chatID's log in place. The id stays allocated and deleting
// again is a no-op.
func (r *ChatLogRepository) Delete(ctx context.Context, chatID string) error {
	data, err := codec.EncodeLog(model.ChatLog{State: model.StateCleared})
	if err != nil {
		return fmt.Errorf("%w: %w", app_errors.ErrInternal, err)
	}
	return withChatLock(ctx, r.locks, r.lockTimeout, chatID, func(ctx context.Context) error {
		if err := r.backend.Write(ctx, storage.KindChat, chatID, data); err != nil {
			return storageError("clear", chatID, err)
		}
		return nil
	})
}

// List enumerates every chat record, including empty and cleared ones.
func (r *ChatLogRepository) List(ctx context.Context) ([]storage.RecordInfo, error) {
	infos, err := r.backend.List(ctx, storage.KindChat)
	if err != nil {
		return nil, fmt.Errorf("%w: list chats: %w", app_errors.ErrStorageIO, err)
	}
	return infos, nil
}
