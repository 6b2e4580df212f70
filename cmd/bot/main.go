package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"telegram-entity-parser/cmd/bot/config"
	"telegram-entity-parser/internal/bot"
	"telegram-entity-parser/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	configPath := flag.String("config", "bot_config.yml", "path to the bot YAML config")
	flag.Parse()

	cfg, err := config.LoadBotConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Логгер маскирует токен бота, который tgbotapi пишет в URL запросов.
	logger, err := log.New(os.Stdout, cfg.LogLevel, "json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := tgbotapi.SetLogger(log.NewTGBotAPIAdapter(logger)); err != nil {
		logger.Warn("failed to set tgbotapi logger", slog.String("error", err.Error()))
	}

	taskStore := bot.NewTaskStore()
	serverClient := bot.NewServerClient(cfg.BackendURL, cfg.HTTPTimeout)

	b, err := bot.NewBot(*cfg, serverClient, taskStore, logger.With(slog.String("component", "bot")))
	if err != nil {
		logger.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Bot created successfully, starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start возвращается после отмены контекста.
	b.Start(ctx)

	logger.Info("Bot stopped gracefully")
}
