package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-entity-parser/internal/domain"
)

const updatesJSON = `{"ok": true, "result": [
	{"update_id": 1, "message": {"message_id": 10, "chat": {"id": 5, "type": "private"},
		"text": "hi @durov #go", "entities": [
			{"type": "mention", "offset": 3, "length": 6},
			{"type": "hashtag", "offset": 10, "length": 3}
		]}}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func writeUpdates(t *testing.T) string {
	return writeFile(t, "updates.json", updatesJSON)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLocalCommand(t *testing.T) {
	path := writeUpdates(t)

	t.Run("все сущности", func(t *testing.T) {
		out, err := execute(t, "local", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"@durov"`)
		assert.Contains(t, out, `"#go"`)
	})

	t.Run("фильтр по типу", func(t *testing.T) {
		out, err := execute(t, "local", "--types", "hashtag", path)
		require.NoError(t, err)
		assert.Contains(t, out, `"#go"`)
		assert.NotContains(t, out, `"@durov"`)
	})

	t.Run("xlsx", func(t *testing.T) {
		xlsx := filepath.Join(t.TempDir(), "out.xlsx")
		_, err := execute(t, "local", "--xlsx", xlsx, path)
		require.NoError(t, err)

		info, err := os.Stat(xlsx)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("файл не найден", func(t *testing.T) {
		_, err := execute(t, "local", filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("без аргументов", func(t *testing.T) {
		_, err := execute(t, "local")
		assert.Error(t, err)
	})
}

func TestExtractLocal_MultipleFiles(t *testing.T) {
	path := writeUpdates(t)

	reports, err := extractLocal([]string{path, path}, []domain.EntityType{domain.EntityMention})
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "durov", reports[0].Username())
}

func TestTypesCommand(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)

	lines := strings.Fields(out)
	require.Len(t, lines, len(domain.AllEntityTypes()))
	assert.Equal(t, string(domain.EntityMention), lines[0])
}
