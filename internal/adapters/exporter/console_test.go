package exporter

import (
	"bytes"
	"errors"
	"strings"
	"telegram-entity-parser/internal/domain"
	"testing"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestConsoleExporter(t *testing.T) {
	t.Run("NewConsoleExporter создает корректный экземпляр", func(t *testing.T) {
		exporter := NewConsoleExporter()
		if exporter == nil {
			t.Error("Ожидался экземпляр ConsoleExporter, получен nil")
		}
	})

	t.Run("Export корректно выводит сущности", func(t *testing.T) {
		var buf bytes.Buffer
		exporter := NewConsoleExporter(WithWriter(&buf))

		reports := []domain.EntityReport{
			{UpdateID: 1, MessageID: 10, Type: domain.EntityMention, Offset: 0, Length: 6, Text: "@durov"},
			{UpdateID: 1, MessageID: 10, Type: domain.EntityTextLink, Offset: 7, Length: 4, Text: "site", URL: "https://x"},
			{
				UpdateID: 2, MessageID: 11, Caption: true, Type: domain.EntityTextMention, Offset: 0, Length: 4, Text: "John",
				User: &domain.User{ID: 7, FirstName: "John", Username: "johndoe"},
			},
		}

		if err := exporter.Export(reports); err != nil {
			t.Errorf("Неожиданная ошибка: %v", err)
		}

		output := buf.String()
		expectedOutputs := []string{
			"--- Message Entities ---",
			`1. [mention] "@durov" (update 1, message 10, offset 0, length 6)`,
			"URL: https://x",
			"caption, User: @johndoe (ID: 7)",
		}

		for _, expected := range expectedOutputs {
			if !strings.Contains(output, expected) {
				t.Errorf("Ожидалось '%s' в выводе, получено:\n%s", expected, output)
			}
		}
	})

	t.Run("Export выводит сообщение при отсутствии сущностей", func(t *testing.T) {
		var buf bytes.Buffer
		exporter := NewConsoleExporter(WithWriter(&buf))

		if err := exporter.Export(nil); err != nil {
			t.Errorf("Неожиданная ошибка: %v", err)
		}

		if !strings.Contains(buf.String(), "No entities found.") {
			t.Error("Ожидалось 'No entities found.' в выводе")
		}
	})

	t.Run("Export возвращает ошибку записи", func(t *testing.T) {
		exporter := NewConsoleExporter(WithWriter(failingWriter{}))

		if err := exporter.Export(nil); err == nil {
			t.Error("Ожидалась ошибка записи, получено nil")
		}
	})
}
