package domain

// RenderKind определяет форму результата.
type RenderKind string

const (
	RenderKindText        RenderKind = "text"
	RenderKindSpreadsheet RenderKind = "spreadsheet"
)

// RenderResult — готовый к доставке результат. Заполнен ровно один из
// вариантов: Text или Spreadsheet.
type RenderResult struct {
	Kind        RenderKind
	Text        *TextReport
	Spreadsheet *SpreadsheetReport

	ParticipantCount int
	MentionCount     int
}

// TotalCount возвращает общее количество сущностей в результате.
func (r *RenderResult) TotalCount() int {
	return r.ParticipantCount + r.MentionCount
}

// TextReport — текстовый вариант результата. Записи разделены переводами строк.
type TextReport struct {
	Body string
}

// ParticipantRow — строка листа участников.
type ParticipantRow struct {
	ID          string
	DisplayName string
}

// MentionRow — строка листа упоминаний.
type MentionRow struct {
	Text string
}

// SpreadsheetReport — табличный вариант результата.
type SpreadsheetReport struct {
	Participants []ParticipantRow
	Mentions     []MentionRow
	FileName     string
	// Content содержит байты XLSX, если рендерер настроен с кодировщиком.
	Content []byte
}
