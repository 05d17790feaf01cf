package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"chatlas/internal/adapters/exporter"
	"chatlas/internal/adapters/parser"
	"chatlas/internal/core/services"
	"chatlas/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type MockDecoder struct {
	mock.Mock
}

func (m *MockDecoder) Decode(data []byte, fileName string) (*domain.Document, error) {
	args := m.Called(data, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(doc *domain.Document) (*domain.AnalysisResult, error) {
	args := m.Called(doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalysisResult), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(result *domain.AnalysisResult) (*domain.RenderResult, error) {
	args := m.Called(result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RenderResult), args.Error(1)
}

func TestProcessExportUseCase_Process(t *testing.T) {
	data := []byte(`{"messages": []}`)

	t.Run("Успешная обработка проходит все этапы", func(t *testing.T) {
		decoder, extractor, renderer := new(MockDecoder), new(MockExtractor), new(MockRenderer)
		doc := &domain.Document{Messages: []*domain.Message{}}
		analysis := domain.EmptyAnalysisResult()
		rendered := &domain.RenderResult{Kind: domain.RenderKindText, Text: &domain.TextReport{Body: "ok"}}

		decoder.On("Decode", data, "result.json").Return(doc, nil).Once()
		extractor.On("Extract", doc).Return(analysis, nil).Once()
		renderer.On("Render", analysis).Return(rendered, nil).Once()

		uc := NewProcessExportUseCase(decoder, extractor, renderer, nil)
		result, err := uc.Process(data, "result.json")

		require.NoError(t, err)
		assert.Same(t, rendered, result)
		decoder.AssertExpectations(t)
		extractor.AssertExpectations(t)
		renderer.AssertExpectations(t)
	})

	t.Run("Ошибка разбора останавливает конвейер", func(t *testing.T) {
		decoder, extractor, renderer := new(MockDecoder), new(MockExtractor), new(MockRenderer)
		cause := &domain.DecodeError{Kind: domain.DecodeMalformed, FileName: "bad.json"}
		decoder.On("Decode", data, "bad.json").Return(nil, cause).Once()

		uc := NewProcessExportUseCase(decoder, extractor, renderer, nil)
		result, err := uc.Process(data, "bad.json")

		assert.Nil(t, result)
		var procErr *domain.ProcessingError
		require.True(t, errors.As(err, &procErr))
		assert.Equal(t, domain.StageDecode, procErr.Stage)
		assert.Equal(t, "bad.json", procErr.FileName)
		assert.ErrorIs(t, err, cause)

		extractor.AssertNotCalled(t, "Extract", mock.Anything)
		renderer.AssertNotCalled(t, "Render", mock.Anything)
	})

	t.Run("Ошибка извлечения помечается этапом extract", func(t *testing.T) {
		decoder, extractor, renderer := new(MockDecoder), new(MockExtractor), new(MockRenderer)
		doc := &domain.Document{}
		decoder.On("Decode", data, "result.json").Return(doc, nil).Once()
		extractor.On("Extract", doc).Return(nil, &domain.ExtractionError{Reason: domain.ReasonNullDocument}).Once()

		uc := NewProcessExportUseCase(decoder, extractor, renderer, nil)
		_, err := uc.Process(data, "result.json")

		var procErr *domain.ProcessingError
		require.True(t, errors.As(err, &procErr))
		assert.Equal(t, domain.StageExtract, procErr.Stage)
		renderer.AssertNotCalled(t, "Render", mock.Anything)
	})

	t.Run("Ошибка рендеринга помечается этапом render", func(t *testing.T) {
		decoder, extractor, renderer := new(MockDecoder), new(MockExtractor), new(MockRenderer)
		doc := &domain.Document{}
		analysis := domain.EmptyAnalysisResult()
		decoder.On("Decode", data, "result.json").Return(doc, nil).Once()
		extractor.On("Extract", doc).Return(analysis, nil).Once()
		renderer.On("Render", analysis).Return(nil, &domain.RenderError{Err: errors.New("boom")}).Once()

		uc := NewProcessExportUseCase(decoder, extractor, renderer, nil)
		_, err := uc.Process(data, "result.json")

		var procErr *domain.ProcessingError
		require.True(t, errors.As(err, &procErr))
		assert.Equal(t, domain.StageRender, procErr.Stage)
		var renderErr *domain.RenderError
		assert.True(t, errors.As(err, &renderErr))
	})
}

func newPipeline() *ProcessExportUseCase {
	return NewProcessExportUseCase(
		parser.NewJsonParser(nil),
		services.NewExtractionService(nil),
		services.NewRenderService(nil, services.WithSpreadsheetEncoder(exporter.NewXLSXEncoder())),
		nil,
	)
}

func TestProcessExportUseCase_Pipeline(t *testing.T) {
	t.Run("Реальный экспорт обрабатывается в текст", func(t *testing.T) {
		export := `{
			"name": "Команда",
			"type": "private_supergroup",
			"id": 1,
			"messages": [
				{"id": 1, "type": "message", "from": "Name A", "from_id": "user123456789", "text": "hi", "text_entities": [{"type": "plain", "text": "hi"}]},
				{"id": 2, "type": "message", "from": "Name B", "from_id": "user123123123", "text": "", "text_entities": []},
				{"id": 3, "type": "message", "from": "Name B", "from_id": "user123123123", "text": [{"type": "mention", "text": "@a"}], "text_entities": [{"type": "mention", "text": "@a"}]},
				{"id": 4, "type": "message", "from": "Name A", "from_id": "user123456789", "text": ["", {"type": "mention", "text": "@a"}, " ", {"type": "mention", "text": "@b"}]},
				{"id": 5, "type": "service", "actor": "Deleted Account", "action": "join_group_by_link"},
				{"id": 6, "type": "message", "from": "Deleted Account", "from_id": "user1", "text": "bye"}
			]
		}`

		result, err := newPipeline().Process([]byte(export), "result.json")
		require.NoError(t, err)

		assert.Equal(t, domain.RenderKindText, result.Kind)
		assert.Equal(t, 2, result.ParticipantCount)
		assert.Equal(t, 2, result.MentionCount)
		assert.Contains(t, result.Text.Body, "user123456789  Name A")
		assert.Contains(t, result.Text.Body, "@b")
		assert.NotContains(t, result.Text.Body, "Deleted Account")
	})

	t.Run("Большой экспорт обрабатывается в таблицу", func(t *testing.T) {
		var sb bytes.Buffer
		sb.WriteString(`{"messages": [`)
		for i := 0; i < 60; i++ {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"id": %d, "from": "User %d", "from_id": "user%d"}`, i, i, i)
		}
		sb.WriteString(`]}`)

		result, err := newPipeline().Process(sb.Bytes(), "big.json")
		require.NoError(t, err)
		require.Equal(t, domain.RenderKindSpreadsheet, result.Kind)
		assert.Equal(t, 60, result.ParticipantCount)

		f, err := excelize.OpenReader(bytes.NewReader(result.Spreadsheet.Content))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(exporter.ParticipantsSheet)
		require.NoError(t, err)
		assert.Len(t, rows, 61)
	})

	t.Run("Пустой файл возвращает ошибку этапа decode", func(t *testing.T) {
		_, err := newPipeline().Process([]byte("  "), "empty.json")

		var procErr *domain.ProcessingError
		require.True(t, errors.As(err, &procErr))
		assert.Equal(t, domain.StageDecode, procErr.Stage)
		var decodeErr *domain.DecodeError
		require.True(t, errors.As(err, &decodeErr))
		assert.Equal(t, domain.DecodeEmpty, decodeErr.Kind)
	})
}
