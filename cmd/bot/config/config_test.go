package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadBotConfig(t *testing.T) {
	t.Run("значения по умолчанию", func(t *testing.T) {
		path := writeConfig(t, "bot:\n  token: \"123:abc\"\n  backend_url: \"http://localhost:8080\"\n")

		cfg, err := LoadBotConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "123:abc", cfg.Token)
		assert.Equal(t, DefaultPollingInterval, cfg.PollingInterval)
		assert.Equal(t, DefaultExcelThreshold, cfg.ExcelThreshold)
		assert.Equal(t, DefaultMaxFilesPerMessage, cfg.MaxFilesPerMessage)
		assert.Equal(t, DefaultFileBatchTimeout, cfg.FileBatchTimeout)
		assert.Equal(t, DefaultTextColumnWidth, cfg.Render.Text)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("длительности из строк", func(t *testing.T) {
		path := writeConfig(t, `bot:
  token: "123:abc"
  backend_url: "http://localhost:8080"
  polling_interval: 500ms
  file_batch_timeout: 10s
  excel_threshold: 7
  render:
    text: 30
`)

		cfg, err := LoadBotConfig(path)
		require.NoError(t, err)

		assert.Equal(t, 500*time.Millisecond, cfg.PollingInterval)
		assert.Equal(t, 10*time.Second, cfg.FileBatchTimeout)
		assert.Equal(t, 7, cfg.ExcelThreshold)
		assert.Equal(t, 30, cfg.Render.Text)
		assert.Equal(t, DefaultTypeColumnWidth, cfg.Render.Type)
	})

	t.Run("токен из окружения", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "999:env")
		path := writeConfig(t, "bot:\n  backend_url: \"http://localhost:8080\"\n")

		cfg, err := LoadBotConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "999:env", cfg.Token)
	})

	t.Run("файл отсутствует", func(t *testing.T) {
		_, err := LoadBotConfig(filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})
}

func TestBotConfig_Validate(t *testing.T) {
	valid := func() BotConfig {
		cfg := BotConfig{Token: "123:abc", BackendURL: "http://localhost:8080"}
		cfg.applyDefaults()
		return cfg
	}

	testCases := []struct {
		name   string
		modify func(*BotConfig)
	}{
		{name: "токен-заглушка", modify: func(c *BotConfig) { c.Token = "YOUR_TELEGRAM_BOT_TOKEN" }},
		{name: "пустой адрес сервера", modify: func(c *BotConfig) { c.BackendURL = "" }},
		{name: "отрицательный интервал опроса", modify: func(c *BotConfig) { c.PollingInterval = -time.Second }},
		{name: "нулевой порог excel", modify: func(c *BotConfig) { c.ExcelThreshold = -1 }},
		{name: "нулевой размер страницы", modify: func(c *BotConfig) { c.ResultPageSize = -1 }},
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
