package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatstore/internal/api"
	"chatstore/internal/catalog"
	"chatstore/internal/config"
	"chatstore/internal/database"
	"chatstore/internal/llm"
	"chatstore/internal/lock"
	"chatstore/internal/repository"
	"chatstore/internal/service"
	"chatstore/internal/storage"
	"chatstore/internal/stream"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired application: its storage backend, the generation
// service and the HTTP server.
type App struct {
	Backend    storage.Backend
	Generation *service.GenerationService
	Server     *http.Server
}

// NewApp opens the configured backend and wires every layer on top of it.
func NewApp(cfg *config.Config) (*App, error) {
	backend, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}

	// Both records of a chat share one lock table.
	locks := lock.NewKeyedMutex()
	chats := repository.NewChatLogRepository(backend, locks, cfg.LockTimeout)
	streams := repository.NewStreamRepository(backend, locks, cfg.LockTimeout)
	chatStore := service.NewChatStore(chats, streams, catalog.NewBuilder(chats, cfg.CatalogConcurrency))

	ollamaProvider := llm.NewOllamaProvider(cfg.OllamaURL)
	generation := service.NewGenerationService(chatStore, ollamaProvider, stream.NewHub(), cfg.DefaultModel, cfg.SystemPrompt)

	router := api.NewRouter(api.NewChatHandler(chatStore), api.NewStreamHandler(generation))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}

	return &App{Backend: backend, Generation: generation, Server: server}, nil
}

func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		b, err := storage.NewFileBackend(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data directory: %w", err)
		}
		slog.Info("Using file storage", "data_dir", cfg.DataDir)
		return b, nil
	case config.BackendSQLite:
		db, err := database.InitDB(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)
		return storage.NewSQLiteBackend(db), nil
	case config.BackendMemory:
		slog.Warn("Using in-memory storage. Chats will be lost on restart.")
		return storage.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Run starts the server and blocks until it fails or the process is asked
// to stop. The return value is the process exit code.
func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)
	logConfigSource(cfg)

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := app.Backend.Close(); err != nil {
			slog.Error("Failed to close storage backend", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", app.Server.Addr)
		serverErr <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	return app.Shutdown()
}

// Shutdown stops accepting requests and lets running generations store
// their replies before the backend is closed by the caller.
func (a *App) Shutdown() int {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	code := 0
	if err := a.Server.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down server gracefully", "error", err)
		code = 1
	}
	if err := a.Generation.Shutdown(ctx); err != nil {
		slog.Error("Generations did not finish before shutdown", "error", err)
		code = 1
	}
	slog.Info("Server stopped")
	return code
}

func logConfigSource(cfg *config.Config) {
	if cfg.ConfigFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", cfg.ConfigFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
