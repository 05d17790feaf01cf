package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatlas/cmd/bot/config"
	"chatlas/internal/adapters/exporter"
	"chatlas/internal/adapters/parser"
	"chatlas/internal/bot"
	"chatlas/internal/cache"
	"chatlas/internal/core/services"
	"chatlas/internal/core/usecase"
	"chatlas/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

const cacheCleanupInterval = 10 * time.Minute

func main() {
	// BOT_TOKEN можно хранить в .env рядом с бинарником
	_ = godotenv.Load()

	// Загрузка конфигурации бота
	cfg, err := config.LoadBotConfig("bot_config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с маскировкой токенов и настройками из конфига
	logger := log.New(os.Stdout, log.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Secrets: []string{cfg.Token},
	})
	slog.SetDefault(logger)
	if err := tgbotapi.SetLogger(log.NewTGBotAPIAdapter(logger)); err != nil {
		logger.Warn("failed to set telegram bot api logger", slog.Any("error", err))
	}

	// Ожидание сигналов для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Инициализация компонентов
	cacheStore := cache.NewCacheStore()
	cacheStore.StartCleanupTicker(ctx, cacheCleanupInterval)

	pipeline := usecase.NewProcessExportUseCase(
		parser.NewJsonParser(logger),
		services.NewExtractionService(logger, services.WithExcludedNames(cfg.ExcludedNames...)),
		services.NewRenderService(logger, services.WithSpreadsheetEncoder(exporter.NewXLSXEncoder())),
		logger,
	)
	processor := cache.NewProcessor(pipeline, cacheStore, cfg.CacheTTL(), logger)

	b, err := bot.NewBot(*cfg, processor, logger.With(slog.String("component", "bot")))
	if err != nil {
		slog.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Bot created successfully, starting...")

	// Start возвращается после отмены контекста
	b.Start(ctx)

	slog.Info("Bot stopped gracefully")
}
