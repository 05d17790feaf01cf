package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"chatlas/internal/domain"
	"chatlas/internal/pkg/config"
	"chatlas/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	formFileField   = "file"
	defaultFileName = "unknown.json"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// Сверх предельного размера файла допускаются заголовки multipart.
	multipartOverhead = 1 << 20
)

// Тексты ошибок фиксированы: причины пишутся только в лог.
const (
	errBadForm    = "Не удалось разобрать форму"
	errNoFile     = "Не удалось получить файл из формы"
	errTooLarge   = "Файл превышает допустимый размер"
	errNotExport  = "Файл не похож на экспорт истории чата Telegram"
	errProcessing = "Не удалось обработать файл"
	errNoWorkbook = "Не удалось сформировать Excel-файл"
	errReadUpload = "Не удалось прочитать загруженный файл"
)

// ParticipantJSON - участник в ответе API.
type ParticipantJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AnalyzeResponse - тело успешного ответа /api/v1/analyze.
type AnalyzeResponse struct {
	RequestID           string            `json:"request_id"`
	FileName            string            `json:"file_name"`
	Type                domain.RenderKind `json:"type"`
	ParticipantsCount   int               `json:"participants_count"`
	MentionsCount       int               `json:"mentions_count"`
	TotalCount          int               `json:"total_count"`
	Text                string            `json:"text,omitempty"`
	Participants        []ParticipantJSON `json:"participants,omitempty"`
	Mentions            []string          `json:"mentions,omitempty"`
	SpreadsheetFileName string            `json:"spreadsheet_file_name,omitempty"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	processor  ports.ChatProcessor
	logger     *slog.Logger
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor ports.ChatProcessor, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if processor == nil {
		return nil, errors.New("processor is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		processor: processor,
		logger:    logger,
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", s.handleHealth)

	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// Handler возвращает корневой обработчик сервера.
func (s *Server) Handler() http.Handler {
	return s.HTTPServer.Handler
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze синхронно прогоняет загруженный файл через конвейер.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	logger := s.logger.With(
		slog.String("request_id", requestID),
		slog.String("chi_request_id", middleware.GetReqID(r.Context())),
	)

	limit := s.cfg.MaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("upload exceeds size limit", slog.Int64("limit", limit))
			writeError(w, http.StatusRequestEntityTooLarge, requestID, errTooLarge)
			return
		}
		logger.Warn("failed to parse multipart form", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, requestID, errBadForm)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(formFileField)
	if err != nil {
		logger.Warn("form file is missing", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, requestID, errNoFile)
		return
	}
	defer file.Close()

	fileName := header.Filename
	if fileName == "" {
		fileName = defaultFileName
	}
	logger = logger.With(slog.String("file", fileName))

	if header.Size > limit {
		logger.Warn("upload exceeds size limit", slog.Int64("size", header.Size), slog.Int64("limit", limit))
		writeError(w, http.StatusRequestEntityTooLarge, requestID, errTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("failed to read uploaded file", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, requestID, errReadUpload)
		return
	}

	result, err := s.processor.Process(data, fileName)
	if err != nil {
		status, message := statusFor(err)
		logger.Warn("failed to process upload", slog.Any("error", err), slog.Int("status", status))
		writeError(w, status, requestID, message)
		return
	}

	logger.Info("upload processed",
		slog.String("type", string(result.Kind)),
		slog.Int("participants", result.ParticipantCount),
		slog.Int("mentions", result.MentionCount),
	)

	if r.URL.Query().Get("format") == "xlsx" && result.Kind == domain.RenderKindSpreadsheet {
		s.writeWorkbook(w, requestID, result.Spreadsheet, logger)
		return
	}

	writeJSON(w, http.StatusOK, newAnalyzeResponse(requestID, fileName, result))
}

func (s *Server) writeWorkbook(w http.ResponseWriter, requestID string, report *domain.SpreadsheetReport, logger *slog.Logger) {
	if report == nil || len(report.Content) == 0 {
		logger.Error("spreadsheet result has no content")
		writeError(w, http.StatusInternalServerError, requestID, errNoWorkbook)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report.Content); err != nil {
		logger.Error("failed to write workbook", slog.Any("error", err))
	}
}

func newAnalyzeResponse(requestID, fileName string, result *domain.RenderResult) AnalyzeResponse {
	resp := AnalyzeResponse{
		RequestID:         requestID,
		FileName:          fileName,
		Type:              result.Kind,
		ParticipantsCount: result.ParticipantCount,
		MentionsCount:     result.MentionCount,
		TotalCount:        result.TotalCount(),
	}

	switch result.Kind {
	case domain.RenderKindText:
		if result.Text != nil {
			resp.Text = result.Text.Body
		}
	case domain.RenderKindSpreadsheet:
		if report := result.Spreadsheet; report != nil {
			resp.SpreadsheetFileName = report.FileName
			resp.Participants = make([]ParticipantJSON, 0, len(report.Participants))
			for _, p := range report.Participants {
				resp.Participants = append(resp.Participants, ParticipantJSON{ID: p.ID, Name: p.DisplayName})
			}
			resp.Mentions = make([]string, 0, len(report.Mentions))
			for _, m := range report.Mentions {
				resp.Mentions = append(resp.Mentions, m.Text)
			}
		}
	}
	return resp
}

// statusFor сопоставляет ошибку конвейера с HTTP-статусом и текстом ответа.
func statusFor(err error) (int, string) {
	var procErr *domain.ProcessingError
	if errors.As(err, &procErr) && procErr.Stage == domain.StageDecode {
		return http.StatusUnprocessableEntity, errNotExport
	}
	var decodeErr *domain.DecodeError
	if errors.As(err, &decodeErr) {
		return http.StatusUnprocessableEntity, errNotExport
	}
	return http.StatusInternalServerError, errProcessing
}

func writeError(w http.ResponseWriter, status int, requestID, message string) {
	writeJSON(w, status, ErrorResponse{RequestID: requestID, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
