package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"telegram-entity-parser/internal/adapters/parser"
	"telegram-entity-parser/internal/cache"
	"telegram-entity-parser/internal/core/services"
	"telegram-entity-parser/internal/log"
	"telegram-entity-parser/internal/pkg/config"
	"telegram-entity-parser/internal/server"
	"telegram-entity-parser/internal/server/usecase"
	"telegram-entity-parser/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run() error {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	// 1. Загрузка и валидация конфигурации
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Инициализация логгера
	logger, err := log.New(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// 3. Инициализация зависимостей
	taskStore := server.NewTaskStore(cfg.Processing.TaskTTL)
	cacheStore := cache.NewCacheStore()
	parserSvc := parser.NewJsonParser()
	extractorSvc := services.NewExtractionService()

	var opts []usecase.Option
	opts = append(opts, usecase.WithLogger(logger))

	// Разрешение упоминаний включается только при настроенном MTProto-приложении.
	if cfg.Resolver.Enabled {
		tgClient := telegram.NewClient(telegram.Config{
			APIID:       cfg.Resolver.APIID,
			APIHash:     cfg.Resolver.APIHash,
			PhoneNumber: cfg.Resolver.PhoneNumber,
			SessionPath: cfg.Resolver.SessionFile,
		}, telegram.WithLogger(logger.With("component", "mtproto")))
		tgClient.Start(appCtx)

		resolver := services.NewResolutionService(tgClient,
			services.WithPoolSize(cfg.Resolver.PoolSize),
			services.WithMaxAttempts(cfg.Resolver.MaxAttempts),
			services.WithOperationTimeout(cfg.Resolver.OperationTimeout),
			services.WithTotalTimeout(cfg.Resolver.TotalTimeout),
			services.WithLogger(logger),
		)
		opts = append(opts, usecase.WithResolver(resolver))
		logger.Info("Mention resolution enabled", "client_id", tgClient.ID())
	}

	processor := usecase.NewProcessUpdatesUseCase(parserSvc, extractorSvc, cacheStore, cfg.Processing.CacheTTL, opts...)

	// 4. Создание HTTP-сервера
	srv := server.New(cfg, processor, taskStore, cacheStore, logger)
	srv.StartCleanup(appCtx)

	// 5. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		logger.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Signal received, shutting down...")

	// Сначала останавливаем фоновые процессы (клиент MTProto, очистку хранилищ).
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	logger.Info("Application exited gracefully")
	return nil
}
