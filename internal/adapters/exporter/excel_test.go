package exporter

import (
	"bytes"
	"path/filepath"
	"telegram-entity-parser/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReports() []domain.EntityReport {
	return []domain.EntityReport{
		{UpdateID: 1, MessageID: 10, ChatID: -100, Type: domain.EntityHashtag, Offset: 3, Length: 3, Text: "#go"},
		{
			UpdateID: 2, MessageID: 11, ChatID: -100, Caption: true, Type: domain.EntityTextMention,
			Offset: 0, Length: 4, Text: "John", User: &domain.User{ID: 7, FirstName: "John"},
		},
	}
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleReports()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, excelHeaders, rows[0])
	require.GreaterOrEqual(t, len(rows[1]), 8)
	assert.Equal(t, []string{"1", "10", "-100", "text", "hashtag", "3", "3", "#go"}, rows[1][:8])
	require.Len(t, rows[2], len(excelHeaders))
	assert.Equal(t, "caption", rows[2][3])
	assert.Equal(t, "7", rows[2][9])
	assert.Equal(t, "John", rows[2][10])
}

func TestExcelExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.xlsx")

	require.NoError(t, NewExcelExporter(path).Export(sampleReports()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue(SheetName, "E2")
	require.NoError(t, err)
	assert.Equal(t, "hashtag", value)

	t.Run("ошибка создания файла", func(t *testing.T) {
		err := NewExcelExporter(filepath.Join(t.TempDir(), "missing", "x.xlsx")).Export(nil)
		assert.Error(t, err)
	})
}
