package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatstore/internal/codec"
	app_errors "chatstore/internal/errors"
	"chatstore/internal/llm"
	"chatstore/internal/model"
	"chatstore/internal/stream"
	"chatstore/internal/validation"
)

// StartRequest is the body of a new generation request from the client.
type StartRequest struct {
	ChatID   string          `json:"chatId" validate:"required,chatid" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
	Messages []model.Message `json:"messages" validate:"required,min=1,dive"`
	Model    string          `json:"model,omitempty" example:"llama3.2"`
}

// GenerationService runs assistant replies and makes them resumable. Each
// reply is recorded as a stream id on the chat before it starts, runs
// detached from the request that started it, and is appended to the chat
// log once the producer is done.
type GenerationService struct {
	store        *ChatStore
	llm          llm.LLMProvider
	hub          *stream.Hub
	defaultModel string
	systemPrompt string
	newID        func() string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewGenerationService(store *ChatStore, provider llm.LLMProvider, hub *stream.Hub, defaultModel, systemPrompt string) *GenerationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &GenerationService{
		store:        store,
		llm:          provider,
		hub:          hub,
		defaultModel: defaultModel,
		systemPrompt: systemPrompt,
		newID:        uuid.NewString,
		baseCtx:      ctx,
		cancel:       cancel,
	}
}

// Start persists the conversation, registers a new stream for it and
// begins generating. The returned channel follows the stream for as long as
// ctx lives; the generation itself continues if the caller goes away.
func (s *GenerationService) Start(ctx context.Context, req *StartRequest) (string, <-chan model.StreamChunk, error) {
	if err := validation.Struct(req); err != nil {
		return "", nil, err
	}
	if err := s.store.SaveChat(ctx, req.ChatID, req.Messages); err != nil {
		return "", nil, err
	}

	streamID := s.newID()
	if err := s.store.AppendStreamID(ctx, req.ChatID, streamID); err != nil {
		return "", nil, err
	}
	gen, err := s.hub.Start(streamID)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", app_errors.ErrInternal, err)
	}
	sub := gen.Subscribe(ctx)

	modelName := req.Model
	if modelName == "" {
		modelName = s.defaultModel
	}
	llmReq := &llm.GenerateRequest{Model: modelName, Messages: s.promptMessages(req.Messages)}

	s.wg.Add(1)
	go s.run(gen, req.ChatID, llmReq)

	slog.Info("Started generation", "chat_id", req.ChatID, "stream_id", streamID, "model", modelName)
	return streamID, sub, nil
}

// Resume re-attaches to the most recent stream of chatID. It fails with
// ErrStreamNotActive when that stream has finished or none was started.
func (s *GenerationService) Resume(ctx context.Context, chatID string) (string, <-chan model.StreamChunk, error) {
	streamID, ok, err := s.store.LatestStreamID(ctx, chatID)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("%w: chat %s has no streams", app_errors.ErrStreamNotActive, chatID)
	}
	sub, err := s.hub.Subscribe(ctx, streamID)
	if err != nil {
		return "", nil, err
	}
	slog.Info("Resumed generation", "chat_id", chatID, "stream_id", streamID)
	return streamID, sub, nil
}

// Shutdown cancels running generations and waits for them to store what
// they produced, or until ctx is done.
func (s *GenerationService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GenerationService) run(gen *stream.Generation, chatID string, llmReq *llm.GenerateRequest) {
	defer s.wg.Done()
	defer gen.Finish()

	ch := make(chan llm.StreamResponse)
	errCh := make(chan error, 1)
	go func() { errCh <- s.llm.GenerateStream(s.baseCtx, llmReq, ch) }()

	var reply strings.Builder
	failed := false
	// The channel is always drained so the producer never blocks on send.
	for chunk := range ch {
		if chunk.Error != "" {
			slog.Warn("Stream error from LLM", "stream_id", gen.ID(), "error", chunk.Error)
			gen.Publish(model.StreamChunk{Error: chunk.Error})
			failed = true
			continue
		}
		if chunk.Content == "" {
			continue
		}
		reply.WriteString(chunk.Content)
		gen.Publish(model.StreamChunk{Content: chunk.Content})
	}
	if err := <-errCh; err != nil {
		slog.Error("Generation failed", "chat_id", chatID, "stream_id", gen.ID(), "error", err)
		gen.Publish(model.StreamChunk{Error: "Generation failed"})
		failed = true
	}

	if reply.Len() > 0 {
		now := time.Now().UTC()
		assistant := model.Message{
			ID:        s.newID(),
			Role:      model.RoleAssistant,
			Content:   model.TextContent(reply.String()),
			CreatedAt: &now,
		}
		// Shutdown cancels baseCtx; the reply is still written.
		if err := s.store.AppendMessageToChat(context.WithoutCancel(s.baseCtx), chatID, assistant); err != nil {
			slog.Error("CRITICAL: Failed to save assistant message", "chat_id", chatID, "stream_id", gen.ID(), "error", err)
			gen.Publish(model.StreamChunk{Error: "Could not save the reply"})
			failed = true
		}
	}

	gen.Publish(model.StreamChunk{Done: true})
	slog.Info("Finished generation", "chat_id", chatID, "stream_id", gen.ID(), "failed", failed, "chars", reply.Len())
}

// promptMessages flattens the chat into the producer's plain-text format,
// prefixing the configured system prompt unless the chat carries its own.
func (s *GenerationService) promptMessages(messages []model.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	if s.systemPrompt != "" && (len(messages) == 0 || messages[0].Role != model.RoleSystem) {
		out = append(out, llm.Message{Role: model.RoleSystem, Content: s.systemPrompt})
	}
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: codec.Text(m)})
	}
	return out
}
