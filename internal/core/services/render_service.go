package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatlas/internal/domain"
	"chatlas/internal/ports"

	"github.com/mattn/go-runewidth"
)

// SpreadsheetThreshold — минимальное общее количество сущностей,
// начиная с которого результат отдается таблицей.
const SpreadsheetThreshold = 51

// EmptyResultBody — текст ответа, когда не найдено ни участников, ни упоминаний.
const EmptyResultBody = "Участники и упоминания не найдены."

const (
	unnamedParticipant = "(без имени)"
	noneLine           = "нет"
	columnGap          = 2
)

// RenderService выбирает между текстом и таблицей и упаковывает результат.
type RenderService struct {
	logger  *slog.Logger
	encoder ports.SpreadsheetEncoder
	now     func() time.Time
}

// RenderOption настраивает RenderService.
type RenderOption func(*RenderService)

// WithSpreadsheetEncoder включает формирование байтов таблицы при рендеринге.
func WithSpreadsheetEncoder(enc ports.SpreadsheetEncoder) RenderOption {
	return func(s *RenderService) { s.encoder = enc }
}

// WithClock подменяет источник времени для имени файла.
func WithClock(now func() time.Time) RenderOption {
	return func(s *RenderService) { s.now = now }
}

// NewRenderService создает новый экземпляр RenderService.
func NewRenderService(logger *slog.Logger, opts ...RenderOption) *RenderService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RenderService{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Render возвращает текстовый вариант, если сущностей меньше порога, иначе табличный.
func (s *RenderService) Render(result *domain.AnalysisResult) (*domain.RenderResult, error) {
	if result == nil {
		return nil, &domain.RenderError{Err: errors.New("nil analysis result")}
	}

	out := &domain.RenderResult{
		ParticipantCount: result.ParticipantCount(),
		MentionCount:     result.MentionCount(),
	}

	total := result.TotalCount()
	if total < SpreadsheetThreshold {
		out.Kind = domain.RenderKindText
		out.Text = &domain.TextReport{Body: renderText(result)}
		s.logger.Debug("rendered text result", slog.Int("total", total))
		return out, nil
	}

	report := buildSpreadsheet(result, s.now())
	if s.encoder != nil {
		content, err := s.encoder.Encode(report)
		if err != nil {
			return nil, &domain.RenderError{Err: err}
		}
		report.Content = content
	}

	out.Kind = domain.RenderKindSpreadsheet
	out.Spreadsheet = report
	s.logger.Debug("rendered spreadsheet result",
		slog.Int("total", total),
		slog.String("file_name", report.FileName),
		slog.Int("size", len(report.Content)),
	)
	return out, nil
}

func renderText(result *domain.AnalysisResult) string {
	if result.TotalCount() == 0 {
		return EmptyResultBody
	}

	participants := result.Participants()
	mentions := result.Mentions()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Найдено участников: %d, упоминаний: %d.\n", len(participants), len(mentions))

	fmt.Fprintf(&sb, "\nУчастники (%d):\n", len(participants))
	if len(participants) == 0 {
		sb.WriteString(noneLine + "\n")
	}
	idWidth := 0
	for _, p := range participants {
		if w := runewidth.StringWidth(p.FromID); w > idWidth {
			idWidth = w
		}
	}
	for _, p := range participants {
		pad := idWidth - runewidth.StringWidth(p.FromID) + columnGap
		sb.WriteString(p.FromID)
		sb.WriteString(strings.Repeat(" ", pad))
		sb.WriteString(cleanLine(p.DisplayName, unnamedParticipant))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nУпоминания (%d):\n", len(mentions))
	if len(mentions) == 0 {
		sb.WriteString(noneLine + "\n")
	}
	for _, m := range mentions {
		sb.WriteString(cleanLine(m.Text, ""))
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nВсего: %d", result.TotalCount())
	return sb.String()
}

// cleanLine убирает переносы строк, чтобы каждая запись занимала одну строку.
func cleanLine(s, fallback string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	if strings.TrimSpace(s) == "" && fallback != "" {
		return fallback
	}
	return s
}

func buildSpreadsheet(result *domain.AnalysisResult, now time.Time) *domain.SpreadsheetReport {
	participants := result.Participants()
	mentions := result.Mentions()

	report := &domain.SpreadsheetReport{
		Participants: make([]domain.ParticipantRow, 0, len(participants)),
		Mentions:     make([]domain.MentionRow, 0, len(mentions)),
		FileName:     fmt.Sprintf("chat_participants_%s.xlsx", now.Format("2006-01-02_15-04-05")),
	}
	for _, p := range participants {
		report.Participants = append(report.Participants, domain.ParticipantRow{ID: p.FromID, DisplayName: p.DisplayName})
	}
	for _, m := range mentions {
		report.Mentions = append(report.Mentions, domain.MentionRow{Text: m.Text})
	}
	return report
}
