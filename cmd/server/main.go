package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatlas/internal/adapters/exporter"
	"chatlas/internal/adapters/parser"
	"chatlas/internal/cache"
	"chatlas/internal/core/services"
	"chatlas/internal/core/usecase"
	applog "chatlas/internal/log"
	"chatlas/internal/pkg/config"
	"chatlas/internal/server"

	"github.com/sevlyar/go-daemon"
)

const cacheCleanupInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run(configPath string) error {
	// 1. Загрузка и валидация конфигурации
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 2. Переход в фоновый режим
	var logOutput io.Writer = os.Stdout
	if cfg.Server.Daemon.Enabled {
		dctx := &daemon.Context{
			PidFileName: cfg.Server.Daemon.PidFile,
			PidFilePerm: 0o644,
			LogFileName: cfg.Server.Daemon.LogFile,
			LogFilePerm: 0o640,
			WorkDir:     cfg.Server.Daemon.WorkDir,
			Umask:       0o27,
		}
		child, err := dctx.Reborn()
		if err != nil {
			return fmt.Errorf("failed to daemonize: %w", err)
		}
		if child != nil {
			_, _ = fmt.Fprintf(os.Stdout, "chatlas server started in background, pid %d\n", child.Pid)
			return nil
		}
		defer func() {
			_ = dctx.Release()
		}()
		// Вывод дочернего процесса go-daemon перенаправляет в LogFileName.
		logOutput = os.Stderr
	}

	// 3. Инициализация логгера
	logger := applog.New(logOutput, applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	slog.SetDefault(logger)

	// 4. Инициализация зависимостей
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	cacheStore := cache.NewCacheStore()
	cacheStore.StartCleanupTicker(appCtx, cacheCleanupInterval)

	pipeline := usecase.NewProcessExportUseCase(
		parser.NewJsonParser(logger),
		services.NewExtractionService(logger, services.WithExcludedNames(cfg.Processing.ExcludedNames...)),
		services.NewRenderService(logger, services.WithSpreadsheetEncoder(exporter.NewXLSXEncoder())),
		logger,
	)
	processor := cache.NewProcessor(pipeline, cacheStore, cfg.Processing.CacheTTL, logger)

	// 5. Создание HTTP-сервера
	srv, err := server.New(cfg, processor, logger.With(slog.String("component", "server")))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 6. Запуск сервера и graceful shutdown
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Signal received, shutting down...", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Сначала останавливаем фоновые процессы (тикер кэша)
	appCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	<-serverErr

	logger.Info("Application exited gracefully")
	return nil
}
