package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatstore/internal/config"
	"chatstore/internal/storage"
)

func testConfig(t *testing.T, backend string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		AppPort:            8000,
		StorageBackend:     backend,
		DataDir:            filepath.Join(dir, "data"),
		DatabasePath:       filepath.Join(dir, "db", "chatstore.db"),
		LockTimeout:        time.Second,
		CatalogConcurrency: 2,
		OllamaURL:          "http://localhost:11434",
		DefaultModel:       "test-model",
		LogLevel:           "DEBUG",
	}
}

func TestNewApp(t *testing.T) {
	testCases := []struct {
		backend string
		want    interface{}
	}{
		{config.BackendFile, &storage.FileBackend{}},
		{config.BackendSQLite, &storage.SQLiteBackend{}},
		{config.BackendMemory, &storage.MemoryBackend{}},
	}

	for _, tc := range testCases {
		t.Run(tc.backend, func(t *testing.T) {
			app, err := NewApp(testConfig(t, tc.backend))
			require.NoError(t, err)
			require.NotNil(t, app)
			defer func() { require.NoError(t, app.Backend.Close()) }()

			assert.IsType(t, tc.want, app.Backend)
			assert.NotNil(t, app.Server)
			assert.Equal(t, ":8000", app.Server.Addr)
		})
	}
}

func TestNewApp_UnknownBackend(t *testing.T) {
	_, err := NewApp(testConfig(t, "postgres"))
	assert.Error(t, err)
}

func TestApp_Routes(t *testing.T) {
	app, err := NewApp(testConfig(t, config.BackendMemory))
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Backend.Close()) }()

	srv := httptest.NewServer(app.Server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/chats")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/chat/unknown/stream")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 0, app.Shutdown())
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "WARN", "error", "bogus"} {
		assert.NotPanics(t, func() { setupLogger(level) })
	}
}
