package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// ColumnWidths определяет ширину колонок для текстового вывода.
type ColumnWidths struct {
	Type    int `yaml:"type"`
	Text    int `yaml:"text"`
	Details int `yaml:"details"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token              string        `yaml:"token"`
	BackendURL         string        `yaml:"backend_url"`
	PollingInterval    time.Duration `yaml:"polling_interval"`
	ExcelThreshold     int           `yaml:"excel_threshold"`
	MaxFilesPerMessage int           `yaml:"max_files_per_message"`
	FileBatchTimeout   time.Duration `yaml:"file_batch_timeout"`
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	ResultPageSize     int           `yaml:"result_page_size"`
	LogLevel           string        `yaml:"log_level"`
	Render             ColumnWidths  `yaml:"render"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot BotConfig `yaml:"bot"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
// Токен можно переопределить переменной окружения BOT_TOKEN.
func LoadBotConfig(filename string) (*BotConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
	}

	botCfg := &cfg.Bot
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		botCfg.Token = token
	}
	botCfg.applyDefaults()

	return botCfg, nil
}

func (c *BotConfig) applyDefaults() {
	if c.PollingInterval == 0 {
		c.PollingInterval = DefaultPollingInterval
	}
	if c.ExcelThreshold == 0 {
		c.ExcelThreshold = DefaultExcelThreshold
	}
	if c.MaxFilesPerMessage == 0 {
		c.MaxFilesPerMessage = DefaultMaxFilesPerMessage
	}
	if c.FileBatchTimeout == 0 {
		c.FileBatchTimeout = DefaultFileBatchTimeout
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.ResultPageSize == 0 {
		c.ResultPageSize = DefaultResultPageSize
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Render.Type == 0 {
		c.Render.Type = DefaultTypeColumnWidth
	}
	if c.Render.Text == 0 {
		c.Render.Text = DefaultTextColumnWidth
	}
	if c.Render.Details == 0 {
		c.Render.Details = DefaultDetailsColumnWidth
	}
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty")
	}
	if c.PollingInterval <= 0 {
		return fmt.Errorf("bot.polling_interval must be positive")
	}
	if c.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}
	if c.MaxFilesPerMessage <= 0 {
		return fmt.Errorf("bot.max_files_per_message must be positive")
	}
	if c.FileBatchTimeout <= 0 {
		return fmt.Errorf("bot.file_batch_timeout must be positive")
	}
	if c.ResultPageSize <= 0 {
		return fmt.Errorf("bot.result_page_size must be positive")
	}
	return nil
}
