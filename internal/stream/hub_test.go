package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app_errors "chatstore/internal/errors"
	"chatstore/internal/model"
	"chatstore/internal/stream"
)

func collect(t *testing.T, ch <-chan model.StreamChunk) []string {
	t.Helper()
	var out []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case chunk, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, chunk.Content)
		case <-timeout:
			t.Fatal("stream did not finish in time")
			return out
		}
	}
}

func TestHub_LateSubscriberReplays(t *testing.T) {
	hub := stream.NewHub()
	gen, err := hub.Start("s1")
	require.NoError(t, err)

	gen.Publish(model.StreamChunk{Content: "Hel"})
	gen.Publish(model.StreamChunk{Content: "lo"})

	sub, err := hub.Subscribe(context.Background(), "s1")
	require.NoError(t, err)

	gen.Publish(model.StreamChunk{Content: "!", Done: true})
	gen.Finish()

	assert.Equal(t, []string{"Hel", "lo", "!"}, collect(t, sub))
	assert.False(t, hub.Active("s1"))
}

func TestHub_FinishedStreamIsNotResumable(t *testing.T) {
	hub := stream.NewHub()
	gen, err := hub.Start("s1")
	require.NoError(t, err)
	gen.Finish()

	_, err = hub.Subscribe(context.Background(), "s1")
	assert.ErrorIs(t, err, app_errors.ErrStreamNotActive)

	_, err = hub.Subscribe(context.Background(), "unknown")
	assert.ErrorIs(t, err, app_errors.ErrStreamNotActive)
	assert.Equal(t, 0, hub.Len())
}

func TestHub_DuplicateStart(t *testing.T) {
	hub := stream.NewHub()
	_, err := hub.Start("s1")
	require.NoError(t, err)
	_, err = hub.Start("s1")
	assert.Error(t, err)
}

func TestGeneration_SubscriberCancellation(t *testing.T) {
	hub := stream.NewHub()
	gen, err := hub.Start("s1")
	require.NoError(t, err)
	defer gen.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	sub := gen.Subscribe(ctx)
	gen.Publish(model.StreamChunk{Content: "a"})

	chunk := <-sub
	assert.Equal(t, "a", chunk.Content)
	assert.Equal(t, "s1", chunk.StreamID)

	cancel()
	_, ok := <-sub
	assert.False(t, ok, "channel should close once the subscriber's context is done")
	assert.True(t, hub.Active("s1"), "a leaving subscriber does not stop the generation")
}

func TestGeneration_PublishAfterFinishIsDropped(t *testing.T) {
	hub := stream.NewHub()
	gen, err := hub.Start("s1")
	require.NoError(t, err)

	sub := gen.Subscribe(context.Background())
	gen.Publish(model.StreamChunk{Content: "a"})
	gen.Finish()
	gen.Publish(model.StreamChunk{Content: "late"})

	assert.Equal(t, []string{"a"}, collect(t, sub))
}
