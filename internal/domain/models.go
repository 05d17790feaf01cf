package domain

import (
	"strings"
	"sync"
)

// EntityTypeMention — тип текстовой сущности, из которой извлекаются упоминания.
const EntityTypeMention = "mention"

// EntityTypePlain — тип фрагмента обычного текста.
const EntityTypePlain = "plain"

// Document представляет корневую структуру файла экспорта после нормализации.
// Отсутствующие в файле поля остаются nil.
type Document struct {
	Name *string
	Type *string
	ID   *int64
	// Messages равен nil, если поле messages отсутствует в экспорте.
	// Элемент nil соответствует значению null внутри массива.
	Messages []*Message
}

// MessageCount возвращает количество сообщений, включая null-заглушки.
func (d *Document) MessageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Messages)
}

// Message представляет одно сообщение в чате.
type Message struct {
	ID   int64
	Type string
	Date string

	// From равен nil, если имя отправителя отсутствует или равно null.
	// Пустая строка допустима.
	From *string
	// FromID пуст, если идентификатор отправителя отсутствует.
	FromID string

	// TextEntities равен nil, если сообщение не содержит сущностей.
	TextEntities []TextEntity

	textOnce sync.Once
	text     string
}

// Text возвращает склеенный текст сообщения, собранный из фрагментов.
// Значение вычисляется один раз и не используется для поиска упоминаний.
func (m *Message) Text() string {
	m.textOnce.Do(func() {
		var sb strings.Builder
		for _, e := range m.TextEntities {
			if e.Text != nil {
				sb.WriteString(*e.Text)
			}
		}
		m.text = sb.String()
	})
	return m.text
}

// TextEntity представляет "богатую" часть текста (упоминание, ссылка и т.д.).
type TextEntity struct {
	Type string
	Text *string
}

// IsMention сообщает, является ли сущность упоминанием.
func (e TextEntity) IsMention() bool {
	return e.Type == EntityTypeMention
}

// StringPtr возвращает указатель на копию строки.
func StringPtr(s string) *string {
	return &s
}
