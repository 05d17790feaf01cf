package services

import (
	"log/slog"
	"strings"

	"chatlas/internal/domain"
)

// Имена, под которыми Telegram экспортирует удаленные аккаунты.
const (
	deletedAccountNameEN = "Deleted Account"
	deletedAccountNameRU = "Удалённый аккаунт"
)

// ExtractionService извлекает уникальных участников и упоминания из документа.
type ExtractionService struct {
	logger   *slog.Logger
	excluded map[string]struct{}
}

// ExtractionOption настраивает ExtractionService.
type ExtractionOption func(*ExtractionService)

// WithExcludedNames добавляет отображаемые имена, которые не считаются участниками.
// Сравнение регистронезависимое, пробелы по краям игнорируются.
func WithExcludedNames(names ...string) ExtractionOption {
	return func(s *ExtractionService) {
		for _, n := range names {
			s.excluded[normalizeName(n)] = struct{}{}
		}
	}
}

// NewExtractionService создает новый экземпляр ExtractionService.
func NewExtractionService(logger *slog.Logger, opts ...ExtractionOption) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ExtractionService{
		logger: logger,
		excluded: map[string]struct{}{
			normalizeName(deletedAccountNameEN): {},
			normalizeName(deletedAccountNameRU): {},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract проходит по сообщениям один раз и собирает участников и упоминания.
func (s *ExtractionService) Extract(doc *domain.Document) (*domain.AnalysisResult, error) {
	if doc == nil {
		return nil, &domain.ExtractionError{Reason: domain.ReasonNullDocument}
	}

	if doc.Messages == nil {
		s.logger.Warn("export has no messages list, returning empty result")
		return domain.EmptyAnalysisResult(), nil
	}

	participants := domain.NewParticipantSet()
	mentions := domain.NewMentionSet()

	for _, msg := range doc.Messages {
		if msg == nil {
			continue
		}
		s.extractParticipant(msg, participants)
		s.extractMentions(msg, mentions)
	}

	s.logger.Info("analysis completed",
		slog.Int("participants", participants.Len()),
		slog.Int("mentions", mentions.Len()),
	)
	return domain.NewAnalysisResult(participants, mentions)
}

func (s *ExtractionService) extractParticipant(msg *domain.Message, participants *domain.ParticipantSet) {
	// from может быть пустой строкой, но не null.
	if strings.TrimSpace(msg.FromID) == "" || msg.From == nil {
		return
	}

	if s.isExcluded(*msg.From) {
		s.logger.Info("skipping deleted account",
			slog.String("from_id", msg.FromID),
			slog.String("from", *msg.From),
		)
		return
	}

	p, err := domain.NewParticipant(msg.FromID, msg.From)
	if err != nil {
		s.logger.Warn("failed to create participant",
			slog.String("from_id", msg.FromID),
			slog.String("error", err.Error()),
		)
		return
	}
	participants.Add(p)
}

func (s *ExtractionService) extractMentions(msg *domain.Message, mentions *domain.MentionSet) {
	for _, entity := range msg.TextEntities {
		if !entity.IsMention() || entity.Text == nil {
			continue
		}
		text := strings.TrimSpace(*entity.Text)
		if text == "" {
			continue
		}
		m, err := domain.NewMention(text)
		if err != nil {
			s.logger.Warn("failed to create mention",
				slog.String("text", text),
				slog.String("error", err.Error()),
			)
			continue
		}
		mentions.Add(m)
	}
}

func (s *ExtractionService) isExcluded(from string) bool {
	_, ok := s.excluded[normalizeName(from)]
	return ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
