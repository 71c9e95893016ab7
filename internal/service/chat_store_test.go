package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatstore/internal/catalog"
	"chatstore/internal/codec"
	app_errors "chatstore/internal/errors"
	"chatstore/internal/lock"
	"chatstore/internal/model"
	"chatstore/internal/repository"
	"chatstore/internal/service"
	"chatstore/internal/storage"
)

type storeFixture struct {
	store   *service.ChatStore
	backend *storage.MemoryBackend
}

func setupChatStore(t *testing.T) storeFixture {
	backend := storage.NewMemoryBackend()
	locks := lock.NewKeyedMutex()
	chats := repository.NewChatLogRepository(backend, locks, time.Second)
	streams := repository.NewStreamRepository(backend, locks, time.Second)
	store := service.NewChatStore(chats, streams, catalog.NewBuilder(chats, 4))
	return storeFixture{store: store, backend: backend}
}

func msg(role, text string) model.Message {
	return model.Message{Role: role, Content: model.TextContent(text)}
}

func TestChatStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := setupChatStore(t)

	chatID, err := f.store.CreateChat(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, chatID)

	loaded, err := f.store.LoadChat(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, loaded, "a new chat has no messages")

	require.NoError(t, f.store.SaveChat(ctx, chatID, []model.Message{msg(model.RoleUser, "Hello")}))
	require.NoError(t, f.store.AppendMessageToChat(ctx, chatID, msg(model.RoleAssistant, "Hi there")))

	loaded, err = f.store.LoadChat(ctx, chatID)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Hello", codec.Text(loaded[0]))
	assert.Equal(t, "Hi there", codec.Text(loaded[1]))

	chats, err := f.store.GetAllChats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, chatID, chats[0].ID)
	assert.Equal(t, "Hello", chats[0].Title)
	assert.Equal(t, "Hi there", chats[0].LastMessage)
	assert.Equal(t, 2, chats[0].MessageCount)

	require.NoError(t, f.store.AppendStreamID(ctx, chatID, "s1"))
	require.NoError(t, f.store.DeleteChat(ctx, chatID))

	loaded, err = f.store.LoadChat(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, loaded)
	streams, err := f.store.LoadStreams(ctx, chatID)
	require.NoError(t, err)
	assert.Empty(t, streams)

	chats, err = f.store.GetAllChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats, "deleted chats are not listed")
}

func TestChatStore_Streams(t *testing.T) {
	ctx := context.Background()
	f := setupChatStore(t)

	_, ok, err := f.store.LatestStreamID(ctx, "chat-1")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, f.store.AppendStreamID(ctx, "chat-1", id))
	}

	streams, err := f.store.LoadStreams(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, streams)

	latest, ok, err := f.store.LatestStreamID(ctx, "chat-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "s3", latest)
}

func TestChatStore_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	f := setupChatStore(t)

	testCases := []struct {
		name string
		call func() error
	}{
		{"load with empty id", func() error { _, err := f.store.LoadChat(ctx, ""); return err }},
		{"save with path separator", func() error { return f.store.SaveChat(ctx, "../etc", nil) }},
		{"save message without role", func() error {
			return f.store.SaveChat(ctx, "chat-1", []model.Message{{Content: model.TextContent("x")}})
		}},
		{"append message without role", func() error {
			return f.store.AppendMessageToChat(ctx, "chat-1", model.Message{})
		}},
		{"delete with empty id", func() error { return f.store.DeleteChat(ctx, "") }},
		{"empty stream id", func() error { return f.store.AppendStreamID(ctx, "chat-1", "") }},
		{"latest with dotted id", func() error { _, _, err := f.store.LatestStreamID(ctx, "a.b"); return err }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, app_errors.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestChatStore_LoadIsFailSoft(t *testing.T) {
	ctx := context.Background()
	f := setupChatStore(t)

	require.NoError(t, f.backend.Write(ctx, storage.KindChat, "broken", []byte("{not json")))

	loaded, err := f.store.LoadChat(ctx, "broken")
	require.NoError(t, err)
	assert.Empty(t, loaded)

	err = f.store.AppendMessageToChat(ctx, "broken", msg(model.RoleUser, "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, app_errors.ErrStorageIO))
}

func TestChatStore_SaveLoadKeepsClientFields(t *testing.T) {
	ctx := context.Background()
	f := setupChatStore(t)

	raw := `[
		{"id":"u1","role":"user","content":"find go docs","experimental_attachments":[{"name":"a.txt","url":"data:text/plain;base64,eA=="}]},
		{"id":"a1","role":"assistant","toolInvocations":[{"toolName":"search","args":{"q":"go"},"state":"call"}],"annotations":[{"step":1}]}
	]`
	var messages []model.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &messages))

	require.NoError(t, f.store.SaveChat(ctx, "chat-1", messages[:1]))
	require.NoError(t, f.store.AppendMessageToChat(ctx, "chat-1", messages[1]))

	loaded, err := f.store.LoadChat(ctx, "chat-1")
	require.NoError(t, err)
	out, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}
