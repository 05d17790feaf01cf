package usecase

import (
	"log/slog"

	"chatlas/internal/domain"
	"chatlas/internal/ports"
)

// ProcessExportUseCase последовательно запускает разбор, анализ и рендеринг
// одного файла экспорта. Вызовы независимы и могут выполняться параллельно.
type ProcessExportUseCase struct {
	decoder   ports.Decoder
	extractor ports.Extractor
	renderer  ports.Renderer
	logger    *slog.Logger
}

// NewProcessExportUseCase создает новый экземпляр ProcessExportUseCase.
func NewProcessExportUseCase(
	decoder ports.Decoder,
	extractor ports.Extractor,
	renderer ports.Renderer,
	logger *slog.Logger,
) *ProcessExportUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessExportUseCase{
		decoder:   decoder,
		extractor: extractor,
		renderer:  renderer,
		logger:    logger,
	}
}

// Process обрабатывает один файл. Ошибка любого этапа возвращается как
// *domain.ProcessingError, частичные результаты не возвращаются.
func (uc *ProcessExportUseCase) Process(data []byte, fileName string) (*domain.RenderResult, error) {
	logger := uc.logger.With(slog.String("file", fileName))
	logger.Info("processing export", slog.Int("size", len(data)))

	doc, err := uc.decoder.Decode(data, fileName)
	if err != nil {
		return nil, uc.fail(logger, domain.StageDecode, fileName, err)
	}
	logger.Info("export parsed", slog.Int("message_count", doc.MessageCount()))

	analysis, err := uc.extractor.Extract(doc)
	if err != nil {
		return nil, uc.fail(logger, domain.StageExtract, fileName, err)
	}

	result, err := uc.renderer.Render(analysis)
	if err != nil {
		return nil, uc.fail(logger, domain.StageRender, fileName, err)
	}

	logger.Info("export processed",
		slog.String("kind", string(result.Kind)),
		slog.Int("participants", result.ParticipantCount),
		slog.Int("mentions", result.MentionCount),
	)
	return result, nil
}

func (uc *ProcessExportUseCase) fail(logger *slog.Logger, stage domain.Stage, fileName string, err error) error {
	logger.Warn("export processing failed", slog.String("stage", string(stage)), slog.String("error", err.Error()))
	return &domain.ProcessingError{Stage: stage, FileName: fileName, Err: err}
}
