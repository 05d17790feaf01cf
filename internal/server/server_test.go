package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatlas/internal/domain"
	"chatlas/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock implementation for ChatProcessor
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Process(data []byte, fileName string) (*domain.RenderResult, error) {
	args := m.Called(data, fileName)
	if res := args.Get(0); res != nil {
		return res.(*domain.RenderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.Server{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
			ShutdownTimeout: time.Second,
			MaxUploadSizeMB: 1,
		},
	}
}

func uploadRequest(t *testing.T, target, field, fileName string, content []byte) *http.Request {
	t.Helper()
	var b bytes.Buffer
	writer := multipart.NewWriter(&b)
	fw, err := writer.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &b)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func textResult() *domain.RenderResult {
	return &domain.RenderResult{
		Kind:             domain.RenderKindText,
		Text:             &domain.TextReport{Body: "Найдено участников: 1, упоминаний: 0."},
		ParticipantCount: 1,
	}
}

func spreadsheetResult(content []byte) *domain.RenderResult {
	return &domain.RenderResult{
		Kind: domain.RenderKindSpreadsheet,
		Spreadsheet: &domain.SpreadsheetReport{
			Participants: []domain.ParticipantRow{{ID: "user1", DisplayName: "Анна"}},
			Mentions:     []domain.MentionRow{{Text: "@bob"}},
			FileName:     "chat_participants_2024-03-05_14-07-09.xlsx",
			Content:      content,
		},
		ParticipantCount: 1,
		MentionCount:     1,
	}
}

func TestNew(t *testing.T) {
	t.Run("Без конфигурации возвращается ошибка", func(t *testing.T) {
		_, err := New(nil, new(mockProcessor), nil)
		assert.Error(t, err)
	})

	t.Run("Без обработчика возвращается ошибка", func(t *testing.T) {
		_, err := New(testConfig(), nil, nil)
		assert.Error(t, err)
	})

	t.Run("Таймауты и адрес берутся из конфигурации", func(t *testing.T) {
		srv, err := New(testConfig(), new(mockProcessor), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost:8080", srv.HTTPServer.Addr)
		assert.Equal(t, time.Second, srv.HTTPServer.ReadTimeout)
	})
}

func TestServer(t *testing.T) {
	export := []byte(`{"messages": []}`)

	t.Run("Health Check", func(t *testing.T) {
		srv, err := New(testConfig(), new(mockProcessor), nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ok", resp["status"])
	})

	t.Run("Текстовый результат возвращается в JSON", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("Process", export, "result.json").Return(textResult(), nil).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze", "file", "result.json", export))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var resp AnalyzeResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.NotEmpty(t, resp.RequestID)
		assert.Equal(t, rr.Header().Get("X-Request-Id"), resp.RequestID)
		assert.Equal(t, "result.json", resp.FileName)
		assert.Equal(t, domain.RenderKindText, resp.Type)
		assert.Equal(t, 1, resp.ParticipantsCount)
		assert.Equal(t, 1, resp.TotalCount)
		assert.Contains(t, resp.Text, "Найдено участников")
		assert.Empty(t, resp.Participants)
		assert.Empty(t, resp.SpreadsheetFileName)
		proc.AssertExpectations(t)
	})

	t.Run("Табличный результат возвращает строки и имя файла", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("Process", export, "big.json").Return(spreadsheetResult([]byte("xlsx")), nil).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze", "file", "big.json", export))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp AnalyzeResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, domain.RenderKindSpreadsheet, resp.Type)
		assert.Equal(t, []ParticipantJSON{{ID: "user1", Name: "Анна"}}, resp.Participants)
		assert.Equal(t, []string{"@bob"}, resp.Mentions)
		assert.Equal(t, "chat_participants_2024-03-05_14-07-09.xlsx", resp.SpreadsheetFileName)
		assert.Empty(t, resp.Text)
	})

	t.Run("format=xlsx отдает книгу вложением", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("Process", export, "big.json").Return(spreadsheetResult([]byte("PK-workbook")), nil).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze?format=xlsx", "file", "big.json", export))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="chat_participants_2024-03-05_14-07-09.xlsx"`, rr.Header().Get("Content-Disposition"))
		assert.Equal(t, "PK-workbook", rr.Body.String())
	})

	t.Run("format=xlsx для текстового результата возвращает JSON", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("Process", export, "result.json").Return(textResult(), nil).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze?format=xlsx", "file", "result.json", export))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	})

	t.Run("format=xlsx без содержимого книги возвращает 500", func(t *testing.T) {
		proc := new(mockProcessor)
		proc.On("Process", export, "big.json").Return(spreadsheetResult(nil), nil).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze?format=xlsx", "file", "big.json", export))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("Ошибка разбора возвращает 422 без подробностей", func(t *testing.T) {
		proc := new(mockProcessor)
		cause := &domain.ProcessingError{
			Stage:    domain.StageDecode,
			FileName: "bad.json",
			Err:      &domain.DecodeError{Kind: domain.DecodeMalformed, FileName: "bad.json", Err: errors.New("secret detail")},
		}
		proc.On("Process", mock.Anything, "bad.json").Return(nil, cause).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze", "file", "bad.json", []byte("{")))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, errNotExport, resp.Error)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("Ошибка рендеринга возвращает 500", func(t *testing.T) {
		proc := new(mockProcessor)
		cause := &domain.ProcessingError{Stage: domain.StageRender, Err: &domain.RenderError{Err: errors.New("disk full")}}
		proc.On("Process", export, "result.json").Return(nil, cause).Once()
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze", "file", "result.json", export))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "disk full")
	})

	t.Run("Запрос без multipart возвращает 400", func(t *testing.T) {
		proc := new(mockProcessor)
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{}"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("Файл в другом поле формы возвращает 400", func(t *testing.T) {
		proc := new(mockProcessor)
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze", "document", "result.json", export))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, errNoFile, resp.Error)
	})

	t.Run("Слишком большой файл возвращает 413", func(t *testing.T) {
		proc := new(mockProcessor)
		srv, err := New(testConfig(), proc, nil)
		require.NoError(t, err)

		big := bytes.Repeat([]byte("a"), (1<<20)+(1<<19))
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, uploadRequest(t, "/api/v1/analyze", "file", "big.json", big))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		proc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
	})

	t.Run("Неизвестный маршрут возвращает 404", func(t *testing.T) {
		srv, err := New(testConfig(), new(mockProcessor), nil)
		require.NoError(t, err)

		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/1", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestStatusFor(t *testing.T) {
	status, msg := statusFor(&domain.ProcessingError{Stage: domain.StageExtract, Err: &domain.ExtractionError{Reason: domain.ReasonNullDocument}})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, errProcessing, msg)

	status, _ = statusFor(&domain.DecodeError{Kind: domain.DecodeEmpty})
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = statusFor(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
