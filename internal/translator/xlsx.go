package translator

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nborup/skribent/internal/apperr"
)

// ExportUntranslatedXLSX builds a spreadsheet of every row still awaiting
// translation, one sheet, required columns only. Returns the workbook
// bytes and a timestamped filename.
func (s *Session) ExportUntranslatedXLSX() ([]byte, string, error) {
	rows := s.UntranslatedRows()
	if len(rows) == 0 {
		return nil, "", fmt.Errorf("%w: no untranslated rows", apperr.ErrNotFound)
	}

	wb := excelize.NewFile()
	defer wb.Close()

	const sheet = "Untranslated"
	wb.SetSheetName("Sheet1", sheet)

	header := []any{"locale", "type", "field", "default content", "translated content"}
	if err := wb.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, "", fmt.Errorf("translator: write xlsx header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", fmt.Errorf("translator: cell name: %w", err)
		}
		values := []any{row.Locale, row.Type, row.Field, row.DefaultContent, row.TranslatedContent}
		if err := wb.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, "", fmt.Errorf("translator: write xlsx row: %w", err)
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("translator: serialize xlsx: %w", err)
	}
	filename := fmt.Sprintf("untranslated_rows_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}
