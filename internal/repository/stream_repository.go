package repository

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"chatstore/internal/codec"
	"chatstore/internal/storage"
)

// StreamRepository records, per chat, every generation stream id ever
// started. The list only grows; its last element is the stream a client
// may try to resume.
type StreamRepository struct {
	backend     storage.Backend
	locks       Locker
	lockTimeout time.Duration
}

func NewStreamRepository(backend storage.Backend, locks Locker, lockTimeout time.Duration) *StreamRepository {
	return &StreamRepository{backend: backend, locks: locks, lockTimeout: lockTimeout}
}

// AppendStreamID adds streamID to the end of chatID's list. Duplicates are
// kept as-is.
func (r *StreamRepository) AppendStreamID(ctx context.Context, chatID, streamID string) error {
	return withChatLock(ctx, r.locks, r.lockTimeout, chatID, func(ctx context.Context) error {
		ids, err := r.read(ctx, chatID)
		if err != nil && !isNotFound(err) {
			return err
		}
		data, err := codec.EncodeStreamIDs(append(slices.Clip(ids), streamID))
		if err != nil {
			return err
		}
		if err := r.backend.Write(ctx, storage.KindStreams, chatID, data); err != nil {
			return storageError("append stream to", chatID, err)
		}
		return nil
	})
}

// LoadStreamIDs returns chatID's stream ids in the order they were
// appended. Failures are logged and yield an empty list.
func (r *StreamRepository) LoadStreamIDs(ctx context.Context, chatID string) []string {
	ids, err := r.read(ctx, chatID)
	if err != nil {
		if !isNotFound(err) {
			slog.Warn("Failed to load streams, returning empty list", "chat_id", chatID, "error", err)
		}
		return []string{}
	}
	return ids
}

// Latest returns the most recently appended stream id of chatID.
func (r *StreamRepository) Latest(ctx context.Context, chatID string) (string, bool) {
	ids := r.LoadStreamIDs(ctx, chatID)
	if len(ids) == 0 {
		return "", false
	}
	return ids[len(ids)-1], true
}

// Clear empties chatID's list in place. Chats that never had a stream are
// left without a record.
func (r *StreamRepository) Clear(ctx context.Context, chatID string) error {
	return withChatLock(ctx, r.locks, r.lockTimeout, chatID, func(ctx context.Context) error {
		_, err := r.backend.Stat(ctx, storage.KindStreams, chatID)
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return storageError("clear streams of", chatID, err)
		}
		data, err := codec.EncodeStreamIDs(nil)
		if err != nil {
			return err
		}
		if err := r.backend.Write(ctx, storage.KindStreams, chatID, data); err != nil {
			return storageError("clear streams of", chatID, err)
		}
		return nil
	})
}

func (r *StreamRepository) read(ctx context.Context, chatID string) ([]string, error) {
	data, _, err := r.backend.Read(ctx, storage.KindStreams, chatID)
	if err != nil {
		return []string{}, storageError("read streams of", chatID, err)
	}
	ids, err := codec.DecodeStreamIDs(data)
	if err != nil {
		return []string{}, storageError("decode streams of", chatID, err)
	}
	return ids, nil
}
