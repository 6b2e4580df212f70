package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"telegram-entity-parser/cmd/bot/config"
	"telegram-entity-parser/internal/domain"
)

// renderTable форматирует сущности в таблицу для блока <pre>.
// Ширина считается по исходному тексту, экранирование для HTML идет после переноса.
func renderTable(reports []domain.EntityReport, widths config.ColumnWidths) string {
	var sb strings.Builder

	cols := []int{widths.Type, widths.Text, widths.Details}
	writeRow(&sb, cols, []string{"Type", "Text", "Details"})

	sb.WriteString("|")
	for _, w := range cols {
		sb.WriteString(strings.Repeat("-", w+2) + "|")
	}
	sb.WriteString("\n")

	for _, r := range reports {
		writeRow(&sb, cols, []string{cleanCell(string(r.Type)), cleanCell(r.Text), cleanCell(details(r))})
	}
	return sb.String()
}

// writeRow печатает одну логическую строку таблицы, перенося длинные значения.
func writeRow(sb *strings.Builder, cols []int, values []string) {
	wrapped := make([][]string, len(values))
	maxLines := 0
	for i, v := range values {
		wrapped[i] = wrapString(v, cols[i])
		maxLines = max(maxLines, len(wrapped[i]))
	}

	for line := 0; line < maxLines; line++ {
		for i, w := range cols {
			part := ""
			if line < len(wrapped[i]) {
				part = wrapped[i][line]
			}
			sb.WriteString("| " + html.EscapeString(part) + generatePadding(part, w) + " ")
		}
		sb.WriteString("|\n")
	}
}

func details(r domain.EntityReport) string {
	var parts []string
	if r.Caption {
		parts = append(parts, "caption")
	}
	if r.URL != "" {
		parts = append(parts, r.URL)
	}
	if r.User != nil {
		parts = append(parts, fmt.Sprintf("%s (%d)", r.User.Name(), r.User.ID))
	}
	return strings.Join(parts, " ")
}

func cleanCell(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, ""), "\n", " ")
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Некоторые клиенты рендерят CJK шире, чем считает runewidth.
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			if paddingNeeded >= 0 {
				paddingNeeded++
			}
			break
		}
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString разбивает строку на части шириной не больше width.
// Перенос идет по пробелам, слово длиннее width режется посередине.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	var currentLine strings.Builder
	for _, word := range strings.Fields(s) {
		wordWidth := runewidth.StringWidth(word)

		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
			lines = append(lines, splitByWidth(word, width)...)
			continue
		}

		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

func splitByWidth(word string, width int) []string {
	var lines []string
	runes := []rune(word)
	for len(runes) > 0 {
		i, currentWidth := 0, 0
		for i < len(runes) {
			rw := runewidth.RuneWidth(runes[i])
			if currentWidth+rw > width {
				break
			}
			currentWidth += rw
			i++
		}
		if i == 0 {
			i = 1
		}
		lines = append(lines, string(runes[:i]))
		runes = runes[i:]
	}
	return lines
}
