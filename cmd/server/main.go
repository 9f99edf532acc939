package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram-script-bridge/internal/adapters/parser"
	"telegram-script-bridge/internal/cache"
	"telegram-script-bridge/internal/core/services"
	"telegram-script-bridge/internal/pkg/config"
	"telegram-script-bridge/internal/server"
	"telegram-script-bridge/internal/server/usecase"
	"telegram-script-bridge/internal/telegram/router"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	// 1. Загрузка и валидация конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Инициализация и запуск фоновых сервисов
	appCtx, appCancel := context.WithCancel(context.Background())

	tgServers := cfg.GetTelegramServers()
	tgRouter, err := router.NewRouter(appCtx,
		router.WithServerConfigs(tgServers),
		router.WithHealthCheckInterval(time.Duration(cfg.TelegramAPI.HealthCheckIntervalSeconds)*time.Second),
	)
	if err != nil {
		appCancel()
		return fmt.Errorf("failed to create telegram router: %w", err)
	}

	// 5. Инициализация зависимостей
	taskStore := server.NewTaskStore()
	peerStore := cache.NewPeerStore(time.Duration(cfg.Processing.CacheTTLMinutes) * time.Minute)
	resultStore := cache.NewResultStore()
	parserSvc := parser.NewJsonParser()
	directorySvc := services.NewDirectoryService(tgRouter,
		services.WithPoolSize(cfg.Directory.PoolSize),
		services.WithClientRetryPause(time.Duration(cfg.Directory.ClientRetryPauseSeconds)*time.Second),
		services.WithOperationTimeout(config.DefaultDirectoryOperationTimeout),
	)
	scriptSvc := services.NewScriptService(services.WithHandlerName(cfg.Scripting.Handler))
	if err := scriptSvc.LoadFile(cfg.Scripting.ScriptFile); err != nil {
		appCancel()
		return fmt.Errorf("failed to load script: %w", err)
	}
	processor := usecase.NewProcessBatchUseCase(cfg, parserSvc, directorySvc, scriptSvc, peerStore, resultStore)

	// Периодическая очистка устаревших записей о собеседниках
	peerStore.StartCleanupTicker(appCtx, config.DefaultCleanupInterval)

	// 6. Создание HTTP-сервера
	srv, err := server.New(cfg, processor, taskStore, resultStore)
	if err != nil {
		appCancel()
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")

	// Сначала отменяем контекст приложения, чтобы остановить фоновые процессы (клиенты Telegram)
	appCancel()
	slog.Info("Application context canceled, waiting for background services to stop...")

	// Затем останавливаем HTTP-сервер
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("HTTP server stopped")

	// В конце останавливаем роутер (его health-check тикер)
	tgRouter.Stop()

	slog.Info("Application exited gracefully")
	return nil
}
