package exporter

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"

	"github.com/xuri/excelize/v2"
)

// SheetName задает имя листа с сущностями в xlsx-файле.
const SheetName = "Entities"

var excelHeaders = []string{
	"Update ID", "Message ID", "Chat ID", "Source", "Type", "Offset", "Length", "Text", "URL", "User ID", "User",
}

// ExcelExporter реализует интерфейс Exporter, сохраняя сущности в xlsx-файл.
type ExcelExporter struct {
	path string
}

// NewExcelExporter создает экспортер, пишущий в файл path.
func NewExcelExporter(path string) ports.Exporter {
	return &ExcelExporter{path: path}
}

// Export сохраняет сущности в файл, по одной строке на сущность.
func (e *ExcelExporter) Export(reports []domain.EntityReport) error {
	f, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", e.path, err)
	}
	defer f.Close()

	if err := WriteExcel(f, reports); err != nil {
		return err
	}
	return f.Close()
}

// WriteExcel формирует xlsx-книгу с одним листом и пишет ее в w.
func WriteExcel(w io.Writer, reports []domain.EntityReport) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	for i, h := range excelHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, r := range reports {
		row := excelRow(r)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write excel: %w", err)
	}
	return nil
}

func excelRow(r domain.EntityReport) []any {
	source := "text"
	if r.Caption {
		source = "caption"
	}
	userID, userName := "", ""
	if r.User != nil {
		userID = strconv.FormatInt(r.User.ID, 10)
		userName = r.User.Name()
	}
	return []any{
		r.UpdateID, r.MessageID, r.ChatID, source, string(r.Type), r.Offset, r.Length, r.Text, r.URL, userID, userName,
	}
}
