package cache

import (
	"log/slog"
	"time"

	"chatlas/internal/domain"
	"chatlas/internal/ports"
)

// Processor кэширует успешные результаты обработки по содержимому файла.
// Повторная отправка того же экспорта не запускает конвейер заново.
type Processor struct {
	next   ports.ChatProcessor
	store  *CacheStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewProcessor оборачивает next кэшем. При ttl <= 0 кэш не используется.
func NewProcessor(next ports.ChatProcessor, store *CacheStore, ttl time.Duration, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{next: next, store: store, ttl: ttl, logger: logger}
}

// Process реализует ports.ChatProcessor.
func (p *Processor) Process(data []byte, fileName string) (*domain.RenderResult, error) {
	if p.ttl <= 0 || p.store == nil {
		return p.next.Process(data, fileName)
	}

	key := ContentHash(data)
	if item, ok := p.store.Get(key); ok {
		p.logger.Info("using cached result", slog.String("file", fileName), slog.String("hash", key))
		return item.Result, nil
	}

	result, err := p.next.Process(data, fileName)
	if err != nil {
		return nil, err
	}
	p.store.Put(key, result, p.ttl)
	return result, nil
}
