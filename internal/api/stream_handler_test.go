package api_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatstore/internal/api"
	app_errors "chatstore/internal/errors"
	"chatstore/internal/interfaces/mocks"
	"chatstore/internal/model"
	"chatstore/internal/service"
)

func setupStreamHandler(t *testing.T) (*api.StreamHandler, *mocks.MockGenerationService) {
	mockGen := mocks.NewMockGenerationService(t)
	return api.NewStreamHandler(mockGen), mockGen
}

// chunkStream returns a closed channel that yields chunks in order.
func chunkStream(chunks ...model.StreamChunk) <-chan model.StreamChunk {
	ch := make(chan model.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func TestStreamHandler_HandleChat(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockGen := setupStreamHandler(t)
		chunks := chunkStream(
			model.StreamChunk{StreamID: "s1", Content: "Hi"},
			model.StreamChunk{StreamID: "s1", Content: " there"},
			model.StreamChunk{StreamID: "s1", Done: true},
		)
		mockGen.On("Start", mock.Anything, mock.MatchedBy(func(req *service.StartRequest) bool {
			return req.ChatID == "chat1" && len(req.Messages) == 1 && req.Model == "llama3"
		})).Return("s1", chunks, nil).Once()

		body := `{"chatId":"chat1","model":"llama3","messages":[{"role":"user","content":"Hello"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))
		assert.Equal(t, "s1", rr.Header().Get(api.StreamHeader))
		out := rr.Body.String()
		assert.Contains(t, out, `data: {"streamId":"s1","content":"Hi","done":false}`)
		assert.Contains(t, out, `data: {"streamId":"s1","content":"","done":true}`)
		assert.Equal(t, 3, strings.Count(out, "data: "))
	})

	t.Run("Producer error is sent as an error event", func(t *testing.T) {
		handler, mockGen := setupStreamHandler(t)
		chunks := chunkStream(
			model.StreamChunk{StreamID: "s1", Error: "Generation failed"},
			model.StreamChunk{StreamID: "s1", Done: true},
		)
		mockGen.On("Start", mock.Anything, mock.Anything).Return("s1", chunks, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"chatId":"chat1","messages":[{"role":"user","content":"x"}]}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Contains(t, rr.Body.String(), "event: error\ndata: {\"error\":\"Generation failed\"}")
	})

	t.Run("Failure - Bad JSON", func(t *testing.T) {
		handler, _ := setupStreamHandler(t)
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Failure - Validation Error", func(t *testing.T) {
		handler, mockGen := setupStreamHandler(t)
		mockGen.On("Start", mock.Anything, mock.Anything).
			Return("", nil, fmt.Errorf("%w: Field 'ChatID' failed on the 'required' tag", app_errors.ErrInvalidArgument)).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[]}`))
		rr := httptest.NewRecorder()
		handler.HandleChat(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Field 'ChatID' failed on the 'required' tag")
	})
}

func TestStreamHandler_HandleResume(t *testing.T) {
	t.Run("Active stream", func(t *testing.T) {
		handler, mockGen := setupStreamHandler(t)
		chunks := chunkStream(
			model.StreamChunk{StreamID: "s2", Content: "partial"},
			model.StreamChunk{StreamID: "s2", Done: true},
		)
		mockGen.On("Resume", mock.Anything, "chat1").Return("s2", chunks, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/chat/chat1/stream", nil)
		req = addChiURLParams(req, map[string]string{"chatID": "chat1"})
		rr := httptest.NewRecorder()
		handler.HandleResume(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "s2", rr.Header().Get(api.StreamHeader))
		assert.Contains(t, rr.Body.String(), `"content":"partial"`)
	})

	t.Run("Nothing to resume", func(t *testing.T) {
		handler, mockGen := setupStreamHandler(t)
		mockGen.On("Resume", mock.Anything, "chat1").
			Return("", nil, fmt.Errorf("%w: s1", app_errors.ErrStreamNotActive)).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/chat/chat1/stream", nil)
		req = addChiURLParams(req, map[string]string{"chatID": "chat1"})
		rr := httptest.NewRecorder()
		handler.HandleResume(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("Failure - Invalid id", func(t *testing.T) {
		handler, mockGen := setupStreamHandler(t)
		mockGen.On("Resume", mock.Anything, "").Return("", nil, app_errors.ErrInvalidArgument).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/chat//stream", nil)
		rr := httptest.NewRecorder()
		handler.HandleResume(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
