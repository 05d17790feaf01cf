package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"chatlas/cmd/bot/config"
	"chatlas/internal/domain"
	"chatlas/internal/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand = "start"
	helpCommand  = "help"

	defaultFileName = "unknown.json"
	cleanupInterval = time.Minute
)

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       config.BotConfig
	processor ports.ChatProcessor
	batches   *BatchStore
	logger    *slog.Logger

	httpClient *http.Client

	// Вызовы Bot API вынесены в поля, чтобы подменять их в тестах.
	sendMessageFunc      func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, processor ports.ChatProcessor, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, processor, logger)
	b.api = api
	b.sendMessageFunc = api.Send
	b.getFileDirectURLFunc = api.GetFileDirectURL
	return b, nil
}

func newBot(cfg config.BotConfig, processor ports.ChatProcessor, logger *slog.Logger) *Bot {
	return &Bot{
		cfg:        cfg,
		processor:  processor,
		batches:    NewBatchStore(cfg.MaxFilesPerMessage, cfg.FileBatchTimeout()),
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	b.batches.StartCleanupTicker(ctx, cleanupInterval, b.cfg.BatchTTL())

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Warn("updates channel closed")
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		b.handleCommand(msg)
	case msg.Document != nil:
		b.handleDocument(ctx, msg)
	case msg.Text != "":
		b.reply(msg.Chat.ID, plainTextHint)
	default:
		b.logger.Debug("unsupported message type", slog.Int64("chat_id", msg.Chat.ID))
	}
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		b.reply(msg.Chat.ID, startText)
	case helpCommand:
		b.reply(msg.Chat.ID, fmt.Sprintf(helpText, b.cfg.MaxFilesPerMessage, b.storageNote()))
	default:
		b.reply(msg.Chat.ID, unknownCommandText)
	}
}

// storageNote описывает, что бот хранит после обработки.
func (b *Bot) storageNote() string {
	if ttl := b.cfg.CacheTTL(); ttl > 0 {
		return fmt.Sprintf(cacheNote, int(ttl.Minutes()))
	}
	return noStorageNote
}

// handleDocument проверяет документ и добавляет его в пачку чата.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	doc := msg.Document
	if doc.FileName == "" {
		doc.FileName = defaultFileName
	}
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("file", doc.FileName))

	if !strings.EqualFold(filepath.Ext(doc.FileName), ".json") {
		logger.Info("rejected non-json document", slog.String("mime", doc.MimeType))
		b.reply(chatID, notJSONText)
		return
	}
	if int64(doc.FileSize) > b.cfg.MaxFileSizeBytes() {
		logger.Info("rejected oversized document", slog.Int("size", doc.FileSize))
		b.reply(chatID, fmt.Sprintf(tooLargeText, doc.FileName, b.cfg.MaxFileSizeMB))
		return
	}

	outcome, docs := b.batches.Add(chatID, doc, func() {
		b.processFileBatch(context.WithoutCancel(ctx), chatID)
	})

	switch outcome {
	case Busy:
		logger.Warn("user tried to send files while a batch is processing")
		b.reply(chatID, busyText)
	case Overflow:
		logger.Warn("file limit exceeded, document dropped", slog.Int("limit", b.cfg.MaxFilesPerMessage))
		b.reply(chatID, fmt.Sprintf(overflowText, b.cfg.MaxFilesPerMessage))
	case Full:
		logger.Info("file limit reached, processing batch immediately")
		go b.processDocs(context.WithoutCancel(ctx), chatID, docs)
	case Added:
		logger.Debug("document added to batch", slog.Int("batch_size", b.batches.Len(chatID)))
	}
}

// processFileBatch забирает пачку по истечении окна и обрабатывает ее.
func (b *Bot) processFileBatch(ctx context.Context, chatID int64) {
	docs, ok := b.batches.Take(chatID)
	if !ok {
		return
	}
	b.processDocs(ctx, chatID, docs)
}

// processDocs обрабатывает файлы пачки по очереди. Ошибка одного файла
// не прерывает обработку остальных. Пачка очищается в любом случае.
func (b *Bot) processDocs(ctx context.Context, chatID int64, docs []*tgbotapi.Document) {
	defer b.batches.Clear(chatID)

	logger := b.logger.With(slog.Int64("chat_id", chatID))
	logger.Info("processing file batch", slog.Int("files", len(docs)))
	b.reply(chatID, fmt.Sprintf(processingText, len(docs)))

	for _, doc := range docs {
		b.processDocument(ctx, chatID, doc, logger.With(slog.String("file", doc.FileName)))
	}
}

func (b *Bot) processDocument(ctx context.Context, chatID int64, doc *tgbotapi.Document, logger *slog.Logger) {
	data, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		logger.Error("failed to download file", slog.Any("error", err))
		if errors.Is(err, errFileTooLarge) {
			b.reply(chatID, fmt.Sprintf(tooLargeText, doc.FileName, b.cfg.MaxFileSizeMB))
			return
		}
		b.reply(chatID, fmt.Sprintf(downloadErrorText, doc.FileName))
		return
	}

	result, err := b.processor.Process(data, doc.FileName)
	if err != nil {
		logger.Warn("failed to process file", slog.Any("error", err))
		b.reply(chatID, userMessageFor(err, doc.FileName))
		return
	}

	b.sendResult(chatID, doc.FileName, result, logger)
}

// downloadFile скачивает файл с серверов Telegram с ограничением размера.
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.getFileDirectURLFunc(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file direct url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected download status: %s", resp.Status)
	}

	limit := b.cfg.MaxFileSizeBytes()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}

// sendResult отправляет текст частями или таблицу документом.
func (b *Bot) sendResult(chatID int64, fileName string, result *domain.RenderResult, logger *slog.Logger) {
	switch result.Kind {
	case domain.RenderKindText:
		text := fmt.Sprintf("Файл \"%s\":\n\n%s", fileName, result.Text.Body)
		chunks := splitMessage(text, maxMessageLength)
		logger.Info("sending text result", slog.Int("chunks", len(chunks)))
		for _, chunk := range chunks {
			b.reply(chatID, chunk)
		}
	case domain.RenderKindSpreadsheet:
		report := result.Spreadsheet
		if len(report.Content) == 0 {
			logger.Error("spreadsheet result has no content")
			b.reply(chatID, fmt.Sprintf("Не удалось сформировать Excel-файл для \"%s\". Попробуйте ещё раз позже.", fileName))
			return
		}
		msg := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: report.FileName, Bytes: report.Content})
		msg.Caption = fmt.Sprintf("Файл \"%s\": найдено участников %d, упоминаний %d. Результат во вложении.",
			fileName, result.ParticipantCount, result.MentionCount)
		logger.Info("sending spreadsheet result", slog.String("xlsx", report.FileName), slog.Int("size", len(report.Content)))
		b.sendMessage(msg)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.Any("error", err))
	}
}
