package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatstore/internal/codec"
	app_errors "chatstore/internal/errors"
	"chatstore/internal/llm"
	mock_llm "chatstore/internal/llm/mocks"
	"chatstore/internal/model"
	"chatstore/internal/service"
	"chatstore/internal/stream"
)

func setupGenerationService(t *testing.T) (*service.GenerationService, *service.ChatStore, *mock_llm.MockLLMProvider, *stream.Hub) {
	f := setupChatStore(t)
	provider := mock_llm.NewMockLLMProvider(t)
	hub := stream.NewHub()
	svc := service.NewGenerationService(f.store, provider, hub, "default-model", "Be brief.")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc, f.store, provider, hub
}

func drain(t *testing.T, ch <-chan model.StreamChunk) []model.StreamChunk {
	t.Helper()
	var out []model.StreamChunk
	timeout := time.After(2 * time.Second)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, chunk)
		case <-timeout:
			t.Fatal("stream did not finish in time")
			return out
		}
	}
}

func contentOf(chunks []model.StreamChunk) string {
	var s string
	for _, c := range chunks {
		s += c.Content
	}
	return s
}

func TestGenerationService_Start(t *testing.T) {
	ctx := context.Background()
	svc, store, provider, hub := setupGenerationService(t)

	provider.On("GenerateStream", mock.Anything, mock.MatchedBy(func(req *llm.GenerateRequest) bool {
		return req.Model == "default-model" &&
			len(req.Messages) == 2 &&
			req.Messages[0].Role == model.RoleSystem &&
			req.Messages[1].Content == "Hello"
	}), mock.Anything).Run(func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		ch <- llm.StreamResponse{Content: "Hi"}
		ch <- llm.StreamResponse{Content: " there", Done: true}
		close(ch)
	}).Return(nil).Once()

	streamID, sub, err := svc.Start(ctx, &service.StartRequest{
		ChatID:   "chat-1",
		Messages: []model.Message{msg(model.RoleUser, "Hello")},
	})
	require.NoError(t, err)
	require.NotEmpty(t, streamID)

	chunks := drain(t, sub)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Hi there", contentOf(chunks))
	last := chunks[len(chunks)-1]
	assert.True(t, last.Done)
	assert.Equal(t, streamID, last.StreamID)

	loaded, err := store.LoadChat(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, loaded, 2, "the reply is stored before the stream ends")
	assert.Equal(t, model.RoleAssistant, loaded[1].Role)
	assert.Equal(t, "Hi there", codec.Text(loaded[1]))

	streams, err := store.LoadStreams(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{streamID}, streams)

	assert.False(t, hub.Active(streamID))
	_, _, err = svc.Resume(ctx, "chat-1")
	assert.True(t, errors.Is(err, app_errors.ErrStreamNotActive))
}

func TestGenerationService_ResumeWhileActive(t *testing.T) {
	ctx := context.Background()
	svc, _, provider, _ := setupGenerationService(t)

	release := make(chan struct{})
	provider.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		ch <- llm.StreamResponse{Content: "one "}
		<-release
		ch <- llm.StreamResponse{Content: "two"}
		close(ch)
	}).Return(nil).Once()

	// The initiating client goes away immediately.
	reqCtx, cancel := context.WithCancel(ctx)
	streamID, _, err := svc.Start(reqCtx, &service.StartRequest{
		ChatID:   "chat-1",
		Messages: []model.Message{msg(model.RoleUser, "count")},
		Model:    "other-model",
	})
	require.NoError(t, err)
	cancel()

	resumedID, sub, err := svc.Resume(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, streamID, resumedID)
	close(release)

	chunks := drain(t, sub)
	assert.Equal(t, "one two", contentOf(chunks), "a late subscriber sees the whole reply")
	assert.True(t, chunks[len(chunks)-1].Done)
}

func TestGenerationService_ProducerFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, provider, _ := setupGenerationService(t)

	provider.On("GenerateStream", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		ch := args.Get(2).(chan<- llm.StreamResponse)
		close(ch)
	}).Return(errors.New("connection refused")).Once()

	_, sub, err := svc.Start(ctx, &service.StartRequest{
		ChatID:   "chat-1",
		Messages: []model.Message{msg(model.RoleUser, "Hello")},
	})
	require.NoError(t, err)

	chunks := drain(t, sub)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Generation failed", chunks[0].Error)
	assert.True(t, chunks[1].Done)

	loaded, err := store.LoadChat(ctx, "chat-1")
	require.NoError(t, err)
	assert.Len(t, loaded, 1, "nothing is appended when the producer yields no text")
}

func TestGenerationService_StartValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, hub := setupGenerationService(t)

	testCases := []struct {
		name string
		req  *service.StartRequest
	}{
		{"missing chat id", &service.StartRequest{Messages: []model.Message{msg(model.RoleUser, "x")}}},
		{"bad chat id", &service.StartRequest{ChatID: "a/b", Messages: []model.Message{msg(model.RoleUser, "x")}}},
		{"no messages", &service.StartRequest{ChatID: "chat-1"}},
		{"message without role", &service.StartRequest{ChatID: "chat-1", Messages: []model.Message{{Content: model.TextContent("x")}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Start(ctx, tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, app_errors.ErrInvalidArgument), "got %v", err)
		})
	}
	assert.Equal(t, 0, hub.Len())
}

func TestGenerationService_ResumeWithoutStreams(t *testing.T) {
	svc, _, _, _ := setupGenerationService(t)

	_, _, err := svc.Resume(context.Background(), "chat-1")
	assert.True(t, errors.Is(err, app_errors.ErrStreamNotActive))

	_, _, err = svc.Resume(context.Background(), "")
	assert.True(t, errors.Is(err, app_errors.ErrInvalidArgument))
}
