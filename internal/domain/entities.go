package domain

import (
	"errors"
	"sort"
	"strings"
)

// MentionPrefix — символ, с которого начинается любое упоминание.
const MentionPrefix = "@"

var (
	ErrBlankFromID       = errors.New("fromId cannot be empty")
	ErrNilDisplayName    = errors.New("displayName cannot be null")
	ErrBlankMention      = errors.New("mention text cannot be empty")
	ErrMentionPrefix     = errors.New("mention text must start with @")
	ErrNilParticipantSet = errors.New("participants set cannot be null")
	ErrNilMentionSet     = errors.New("mentions set cannot be null")
)

// Participant — автор сообщений чата. Идентичность определяется FromID,
// DisplayName в сравнении не участвует.
type Participant struct {
	FromID      string
	DisplayName string
}

// NewParticipant создает участника. displayName == nil означает, что имя
// отсутствовало в экспорте; пустое имя допустимо.
func NewParticipant(fromID string, displayName *string) (Participant, error) {
	if strings.TrimSpace(fromID) == "" {
		return Participant{}, ErrBlankFromID
	}
	if displayName == nil {
		return Participant{}, ErrNilDisplayName
	}
	return Participant{FromID: fromID, DisplayName: *displayName}, nil
}

// Mention — уникальное упоминание вида @username.
type Mention struct {
	Text string
}

// NewMention обрезает пробелы по краям и проверяет префикс @.
func NewMention(raw string) (Mention, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Mention{}, ErrBlankMention
	}
	if !strings.HasPrefix(text, MentionPrefix) {
		return Mention{}, ErrMentionPrefix
	}
	return Mention{Text: text}, nil
}

// ParticipantSet хранит участников без повторов по FromID.
// Первое добавленное имя для идентификатора сохраняется.
type ParticipantSet struct {
	items map[string]Participant
}

// NewParticipantSet создает пустое множество участников.
func NewParticipantSet() *ParticipantSet {
	return &ParticipantSet{items: make(map[string]Participant)}
}

// Add добавляет участника и возвращает true, если идентификатор встретился впервые.
func (s *ParticipantSet) Add(p Participant) bool {
	if _, ok := s.items[p.FromID]; ok {
		return false
	}
	s.items[p.FromID] = p
	return true
}

// Get возвращает участника по идентификатору.
func (s *ParticipantSet) Get(fromID string) (Participant, bool) {
	p, ok := s.items[fromID]
	return p, ok
}

// Len возвращает количество участников.
func (s *ParticipantSet) Len() int {
	return len(s.items)
}

// MentionSet хранит упоминания без повторов по точному тексту.
type MentionSet struct {
	items map[string]Mention
}

// NewMentionSet создает пустое множество упоминаний.
func NewMentionSet() *MentionSet {
	return &MentionSet{items: make(map[string]Mention)}
}

// Add добавляет упоминание и возвращает true, если оно новое.
func (s *MentionSet) Add(m Mention) bool {
	if _, ok := s.items[m.Text]; ok {
		return false
	}
	s.items[m.Text] = m
	return true
}

// Contains проверяет наличие упоминания с указанным текстом.
func (s *MentionSet) Contains(text string) bool {
	_, ok := s.items[text]
	return ok
}

// Len возвращает количество упоминаний.
func (s *MentionSet) Len() int {
	return len(s.items)
}

// AnalysisResult — неизменяемый результат анализа: уникальные участники и упоминания.
type AnalysisResult struct {
	participants []Participant
	mentions     []Mention
}

// NewAnalysisResult копирует содержимое множеств; последующие изменения
// множеств на результат не влияют.
func NewAnalysisResult(participants *ParticipantSet, mentions *MentionSet) (*AnalysisResult, error) {
	if participants == nil {
		return nil, ErrNilParticipantSet
	}
	if mentions == nil {
		return nil, ErrNilMentionSet
	}

	r := &AnalysisResult{
		participants: make([]Participant, 0, participants.Len()),
		mentions:     make([]Mention, 0, mentions.Len()),
	}
	for _, p := range participants.items {
		r.participants = append(r.participants, p)
	}
	for _, m := range mentions.items {
		r.mentions = append(r.mentions, m)
	}
	sort.Slice(r.participants, func(i, j int) bool { return r.participants[i].FromID < r.participants[j].FromID })
	sort.Slice(r.mentions, func(i, j int) bool { return r.mentions[i].Text < r.mentions[j].Text })
	return r, nil
}

// EmptyAnalysisResult возвращает результат без участников и упоминаний.
func EmptyAnalysisResult() *AnalysisResult {
	return &AnalysisResult{participants: []Participant{}, mentions: []Mention{}}
}

// Participants возвращает копию списка участников, отсортированную по FromID.
func (r *AnalysisResult) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

// Mentions возвращает копию списка упоминаний, отсортированную по тексту.
func (r *AnalysisResult) Mentions() []Mention {
	out := make([]Mention, len(r.mentions))
	copy(out, r.mentions)
	return out
}

func (r *AnalysisResult) ParticipantCount() int { return len(r.participants) }

func (r *AnalysisResult) MentionCount() int { return len(r.mentions) }

// TotalCount возвращает общее количество уникальных сущностей.
func (r *AnalysisResult) TotalCount() int {
	return r.ParticipantCount() + r.MentionCount()
}
