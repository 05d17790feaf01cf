package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chatlas/internal/domain"
	"chatlas/internal/ports"
)

const (
	DefaultPoolSize     = 4
	DefaultTotalTimeout = 5 * time.Minute
)

// FileOutcome - итог обработки одного файла пачки. Заполнено либо Result, либо Err.
type FileOutcome struct {
	Name   string
	Result *domain.RenderResult
	Err    error
}

// BatchConfig содержит параметры пула обработки.
type BatchConfig struct {
	PoolSize     int
	TotalTimeout time.Duration
}

// BatchOption - функциональная опция для BatchService.
type BatchOption func(*BatchConfig)

// WithPoolSize задает количество воркеров.
func WithPoolSize(n int) BatchOption {
	return func(c *BatchConfig) {
		if n > 0 {
			c.PoolSize = n
		}
	}
}

// WithTotalTimeout задает общий таймаут на всю пачку, 0 отключает его.
func WithTotalTimeout(d time.Duration) BatchOption {
	return func(c *BatchConfig) {
		if d >= 0 {
			c.TotalTimeout = d
		}
	}
}

// BatchService обрабатывает несколько файлов параллельно пулом воркеров.
// Файлы независимы: ошибка одного не влияет на остальные.
type BatchService struct {
	processor ports.ChatProcessor
	config    BatchConfig
	log       *slog.Logger
}

// NewBatchService создает новый экземпляр BatchService.
func NewBatchService(processor ports.ChatProcessor, logger *slog.Logger, opts ...BatchOption) *BatchService {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := BatchConfig{PoolSize: DefaultPoolSize, TotalTimeout: DefaultTotalTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &BatchService{processor: processor, config: cfg, log: logger}
}

// ProcessAll обрабатывает все источники и возвращает итоги в порядке источников.
func (s *BatchService) ProcessAll(ctx context.Context, sources []ports.DataSource) []FileOutcome {
	outcomes := make([]FileOutcome, len(sources))
	if len(sources) == 0 {
		return outcomes
	}

	cfg := s.config
	if cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.TotalTimeout)
		defer cancel()
	}

	poolSize := min(cfg.PoolSize, len(sources))
	s.log.InfoContext(ctx, "Starting batch processing", "files", len(sources), "pool_size", poolSize)

	tasks := make(chan int, len(sources))
	for i := range sources {
		tasks <- i
	}
	close(tasks)

	// Каждый воркер пишет только в свою ячейку outcomes.
	var wg sync.WaitGroup
	for i := 0; i < poolSize; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, sources, tasks, outcomes)
	}
	wg.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	s.log.InfoContext(ctx, "Batch processing finished", "files", len(sources), "failed", failed)
	return outcomes
}

func (s *BatchService) worker(ctx context.Context, wg *sync.WaitGroup, sources []ports.DataSource, tasks <-chan int, outcomes []FileOutcome) {
	defer wg.Done()
	for i := range tasks {
		src := sources[i]
		if err := ctx.Err(); err != nil {
			// Оставшиеся задачи помечаются ошибкой, чтобы у каждого файла был итог.
			outcomes[i] = FileOutcome{Name: src.Name(), Err: fmt.Errorf("batch cancelled: %w", err)}
			continue
		}
		outcomes[i] = s.processOne(ctx, src)
	}
}

func (s *BatchService) processOne(ctx context.Context, src ports.DataSource) FileOutcome {
	name := src.Name()
	data, err := src.Fetch()
	if err != nil {
		s.log.WarnContext(ctx, "Failed to fetch file", "file", name, "error", err)
		return FileOutcome{Name: name, Err: err}
	}

	result, err := s.processor.Process(data, name)
	if err != nil {
		return FileOutcome{Name: name, Err: err}
	}
	return FileOutcome{Name: name, Result: result}
}
