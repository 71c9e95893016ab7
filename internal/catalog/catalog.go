// Package catalog derives the chat list shown in the sidebar from the
// persisted chat logs. It only reads.
package catalog

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"chatstore/internal/codec"
	"chatstore/internal/model"
	"chatstore/internal/storage"
)

const (
	// DefaultTitle is used for chats without any user message.
	DefaultTitle = "New Chat"

	titleMaxRunes   = 50
	previewMaxRunes = 100

	defaultConcurrency = 8
)

// ChatSource is the read side of the chat log store.
type ChatSource interface {
	List(ctx context.Context) ([]storage.RecordInfo, error)
	LoadLog(ctx context.Context, chatID string) (model.ChatLog, storage.RecordInfo, error)
}

// Builder scans every chat record and summarises it. The scan is linear in
// the number of chats and their sizes; it is meant for small deployments.
type Builder struct {
	source      ChatSource
	concurrency int
	group       singleflight.Group
}

// NewBuilder returns a Builder reading at most concurrency records at once.
func NewBuilder(source ChatSource, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Builder{source: source, concurrency: concurrency}
}

// ListAll returns a summary of every non-empty chat, most recently modified
// first. Records that cannot be read are logged and skipped. Concurrent
// callers share a single scan.
func (b *Builder) ListAll(ctx context.Context) []model.ChatSummary {
	v, _, _ := b.group.Do("all", func() (any, error) {
		// The scan outlives any single caller that gives up early.
		return b.scan(context.WithoutCancel(ctx)), nil
	})
	return slices.Clone(v.([]model.ChatSummary))
}

func (b *Builder) scan(ctx context.Context) []model.ChatSummary {
	infos, err := b.source.List(ctx)
	if err != nil {
		slog.Error("Failed to enumerate chats", "error", err)
		return []model.ChatSummary{}
	}

	// Results are slotted by enumeration index so the stable sort below
	// breaks timestamp ties in listing order.
	results := make([]*model.ChatSummary, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, info := range infos {
		g.Go(func() error {
			log, rec, err := b.source.LoadLog(gctx, info.ID)
			if err != nil {
				slog.Warn("Skipping unreadable chat in catalog", "chat_id", info.ID, "error", err)
				return nil
			}
			if log.State == model.StateCleared || len(log.Messages) == 0 {
				return nil
			}
			summary := Summarize(info.ID, log.Messages, rec.ModTime)
			results[i] = &summary
			return nil
		})
	}
	_ = g.Wait()

	summaries := make([]model.ChatSummary, 0, len(results))
	for _, s := range results {
		if s != nil {
			summaries = append(summaries, *s)
		}
	}
	slices.SortStableFunc(summaries, func(a, b model.ChatSummary) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return summaries
}

// Summarize builds the summary of one chat from its messages and the
// modification time of its record.
func Summarize(chatID string, messages []model.Message, modTime time.Time) model.ChatSummary {
	title := DefaultTitle
	for _, m := range messages {
		if m.Role == model.RoleUser {
			title = codec.Truncate(codec.Text(m), titleMaxRunes)
			break
		}
	}

	var lastMessage string
	if len(messages) > 0 {
		lastMessage = codec.Truncate(codec.Text(messages[len(messages)-1]), previewMaxRunes)
	}

	return model.ChatSummary{
		ID:           chatID,
		Title:        title,
		LastMessage:  lastMessage,
		Timestamp:    modTime,
		MessageCount: len(messages),
	}
}
