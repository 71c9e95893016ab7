package interfaces

import (
	"context"

	"chatstore/internal/model"
	"chatstore/internal/service"
)

// The HTTP layer depends on these interfaces rather than on the concrete
// services, so handlers can be tested against generated mocks.

// ChatStore defines the contract for chat persistence.
type ChatStore interface {
	CreateChat(ctx context.Context) (string, error)
	SaveChat(ctx context.Context, chatID string, messages []model.Message) error
	AppendMessageToChat(ctx context.Context, chatID string, message model.Message) error
	LoadChat(ctx context.Context, chatID string) ([]model.Message, error)
	DeleteChat(ctx context.Context, chatID string) error
	LoadStreams(ctx context.Context, chatID string) ([]string, error)
	GetAllChats(ctx context.Context) ([]model.ChatSummary, error)
}

// GenerationService defines the contract for starting and resuming
// assistant replies.
type GenerationService interface {
	Start(ctx context.Context, req *service.StartRequest) (string, <-chan model.StreamChunk, error)
	Resume(ctx context.Context, chatID string) (string, <-chan model.StreamChunk, error)
}

var (
	_ ChatStore         = (*service.ChatStore)(nil)
	_ GenerationService = (*service.GenerationService)(nil)
)
