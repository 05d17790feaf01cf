package exporter

import (
	"fmt"

	"chatlas/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	ParticipantsSheet = "Участники"
	MentionsSheet     = "Упоминания"

	defaultSheet = "Sheet1"
)

// XLSXEncoder формирует книгу Excel с листами участников и упоминаний.
type XLSXEncoder struct{}

// NewXLSXEncoder создает новый экземпляр XLSXEncoder.
func NewXLSXEncoder() *XLSXEncoder {
	return &XLSXEncoder{}
}

// Encode возвращает содержимое XLSX-файла.
func (e *XLSXEncoder) Encode(report *domain.SpreadsheetReport) (content []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName(defaultSheet, ParticipantsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(MentionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", MentionsSheet, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	participantRows := make([][]interface{}, 0, len(report.Participants))
	for _, p := range report.Participants {
		participantRows = append(participantRows, []interface{}{p.ID, p.DisplayName})
	}
	if err := writeSheet(f, ParticipantsSheet, []interface{}{"ID", "Имя"}, participantRows, headerStyle); err != nil {
		return nil, err
	}

	mentionRows := make([][]interface{}, 0, len(report.Mentions))
	for _, m := range report.Mentions {
		mentionRows = append(mentionRows, []interface{}{m.Text})
	}
	if err := writeSheet(f, MentionsSheet, []interface{}{"Упоминание"}, mentionRows, headerStyle); err != nil {
		return nil, err
	}

	index, err := f.GetSheetIndex(ParticipantsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to find sheet %s: %w", ParticipantsSheet, err)
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 32); err != nil {
		return fmt.Errorf("failed to set column width of %s: %w", sheet, err)
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}
	return nil
}
