package exporter

import (
	"fmt"
	"io"
	"os"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода сущностей в консоль.
type ConsoleExporter struct {
	out io.Writer
}

// ConsoleOption настраивает ConsoleExporter.
type ConsoleOption func(*ConsoleExporter)

// WithWriter перенаправляет вывод (по умолчанию os.Stdout).
func WithWriter(w io.Writer) ConsoleOption {
	return func(e *ConsoleExporter) {
		e.out = w
	}
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter(opts ...ConsoleOption) ports.Exporter {
	e := &ConsoleExporter{out: os.Stdout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export выводит список найденных сущностей.
func (e *ConsoleExporter) Export(reports []domain.EntityReport) error {
	if _, err := fmt.Fprintln(e.out, "--- Message Entities ---"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(reports) == 0 {
		_, err := fmt.Fprintln(e.out, "No entities found.")
		return err
	}

	for i, r := range reports {
		line := fmt.Sprintf("%d. [%s] %q (update %d, message %d, offset %d, length %d)",
			i+1, r.Type, r.Text, r.UpdateID, r.MessageID, r.Offset, r.Length)
		if r.Caption {
			line += ", caption"
		}
		if r.URL != "" {
			line += ", URL: " + r.URL
		}
		if r.User != nil {
			line += fmt.Sprintf(", User: %s (ID: %d)", r.User.Name(), r.User.ID)
		}
		if _, err := fmt.Fprintln(e.out, line); err != nil {
			return fmt.Errorf("failed to write report #%d: %w", i, err)
		}
	}
	return nil
}
