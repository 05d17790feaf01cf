package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chatlas/internal/adapters/exporter"
	"chatlas/internal/adapters/parser"
	"chatlas/internal/adapters/source"
	"chatlas/internal/core/services"
	"chatlas/internal/core/usecase"
	"chatlas/internal/log"
	"chatlas/internal/pkg/config"
	"chatlas/internal/ports"

	"github.com/spf13/cobra"
)

const defaultServerAddr = "http://localhost:8080"

type rootOptions struct {
	logLevel   string
	configPath string
}

type analyzeOptions struct {
	outDir        string
	excludedNames []string
	workers       int
	timeout       time.Duration
}

type remoteOptions struct {
	serverAddr string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "chatlas",
		Short:         "Участники и упоминания из экспорта чата Telegram",
		Long:          "chatlas разбирает JSON-экспорт истории чата Telegram (result.json) и выводит список участников и упоминаний.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "уровень логирования: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "файл конфигурации (раздел processing), как у сервера")

	cmd.AddCommand(newAnalyzeCmd(opts), newRemoteCmd(opts))
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return log.New(cmd.ErrOrStderr(), log.Options{Level: o.logLevel, Format: "text"})
}

// loadConfig читает файл из --config. Без флага возвращает nil:
// CLI не подхватывает config.yml из рабочего каталога неявно.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(o.configPath); err != nil {
		return nil, fmt.Errorf("не удалось открыть файл конфигурации: %w", err)
	}
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("некорректная конфигурация: %w", err)
	}
	return cfg, nil
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Обработать файлы экспорта локально",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cfg != nil {
				// Имена из флага дополняют имена из файла.
				opts.excludedNames = append(append([]string(nil), cfg.Processing.ExcludedNames...), opts.excludedNames...)
			}
			return runAnalyze(cmd, root.logger(cmd), opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "каталог для сохранения .xlsx")
	cmd.Flags().StringSliceVar(&opts.excludedNames, "exclude", nil, "дополнительные имена отправителей, которые не считаются участниками")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", services.DefaultPoolSize, "количество файлов, обрабатываемых одновременно")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", services.DefaultTotalTimeout, "общий таймаут обработки, 0 отключает его")
	return cmd
}

func runAnalyze(cmd *cobra.Command, logger *slog.Logger, opts *analyzeOptions, paths []string) error {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("не удалось создать каталог %s: %w", opts.outDir, err)
	}

	processor := usecase.NewProcessExportUseCase(
		parser.NewJsonParser(logger),
		services.NewExtractionService(logger, services.WithExcludedNames(opts.excludedNames...)),
		services.NewRenderService(logger, services.WithSpreadsheetEncoder(exporter.NewXLSXEncoder())),
		logger,
	)
	batch := services.NewBatchService(processor, logger,
		services.WithPoolSize(opts.workers),
		services.WithTotalTimeout(opts.timeout),
	)

	srcs := make([]ports.DataSource, 0, len(paths))
	for _, path := range paths {
		srcs = append(srcs, source.NewCliSource(path))
	}
	outcomes := batch.ProcessAll(cmd.Context(), srcs)

	out := cmd.OutOrStdout()
	exp := exporter.NewConsoleExporter(out, opts.outDir)

	failed := 0
	for i, outcome := range outcomes {
		err := outcome.Err
		if err == nil {
			fmt.Fprintf(out, "Файл \"%s\":\n", outcome.Name)
			err = exp.Export(outcome.Result)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", paths[i], err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("не удалось обработать файлов: %d из %d", failed, len(paths))
	}
	return nil
}

func newRemoteCmd(root *rootOptions) *cobra.Command {
	opts := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "remote FILE...",
		Short: "Отправить файлы экспорта на сервер chatlas",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemote(cmd, root.logger(cmd), opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.serverAddr, "server", defaultServerAddr, "адрес сервера")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", time.Minute, "таймаут запроса")
	return cmd
}

func runRemote(cmd *cobra.Command, logger *slog.Logger, opts *remoteOptions, paths []string) error {
	client := &http.Client{Timeout: opts.timeout}
	endpoint := strings.TrimRight(opts.serverAddr, "/") + "/api/v1/analyze"

	failed := 0
	for _, path := range paths {
		body, err := upload(client, endpoint, path)
		if err != nil {
			logger.Error("upload failed", slog.String("file", path), slog.Any("error", err))
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), body)
	}
	if failed > 0 {
		return fmt.Errorf("не удалось обработать файлов: %d из %d", failed, len(paths))
	}
	return nil
}

// upload отправляет один файл и возвращает отформатированный JSON ответа.
func upload(client *http.Client, endpoint, path string) (string, error) {
	data, err := source.NewCliSource(path).Fetch()
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл формы: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("не удалось записать данные файла: %w", err)
	}
	// Важно закрыть writer, чтобы записать завершающую границу
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("не удалось закрыть multipart writer: %w", err)
	}

	resp, err := client.Post(endpoint, writer.FormDataContentType(), &body)
	if err != nil {
		return "", fmt.Errorf("не удалось отправить запрос: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать ответ: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(bytes.TrimSpace(raw))
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("сервер вернул статус %d: %s", resp.StatusCode, pretty.String())
	}
	return pretty.String(), nil
}
