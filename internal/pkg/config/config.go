// Package config предоставляет управление конфигурацией сервера
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultPath: файл конфигурации, который читается, если путь не задан.
const DefaultPath = "config.yml"

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadSizeMB int           `yaml:"max_upload_size_mb"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Processing содержит конфигурацию обработки
type Processing struct {
	TaskTimeout time.Duration `yaml:"task_timeout"` // 0 - без ограничений
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	TaskTTL     time.Duration `yaml:"task_ttl"`
}

// Resolver содержит конфигурацию разрешения упоминаний через MTProto.
// Пока Enabled ложно, упоминания отдаются без пользователя.
type Resolver struct {
	Enabled          bool          `yaml:"enabled"`
	APIID            int           `yaml:"api_id"`
	APIHash          string        `yaml:"api_hash"`
	PhoneNumber      string        `yaml:"phone_number"`
	SessionFile      string        `yaml:"session_file"`
	PoolSize         int           `yaml:"pool_size"`
	MaxAttempts      int           `yaml:"max_attempts"`
	OperationTimeout time.Duration `yaml:"operation_timeout"`
	TotalTimeout     time.Duration `yaml:"total_timeout"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Config содержит конфигурацию сервера
type Config struct {
	Server     Server     `yaml:"server"`
	Processing Processing `yaml:"processing"`
	Resolver   Resolver   `yaml:"resolver"`
	Logging    Logging    `yaml:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxUploadSizeMB: 10,
			CleanupInterval: time.Hour,
		},
		Processing: Processing{
			TaskTimeout: 10 * time.Minute,
			CacheTTL:    time.Hour,
			TaskTTL:     24 * time.Hour,
		},
		Resolver: Resolver{
			SessionFile:      "tg.session",
			PoolSize:         1,
			MaxAttempts:      3,
			OperationTimeout: 5 * time.Second,
			TotalTimeout:     5 * time.Minute,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем YAML-файл path
// (если он есть), затем переменные окружения, в том числе из .env.
func LoadConfig(path string) (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := defaultConfig()
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromYAML накладывает значения из YAML-файла на cfg. Отсутствие файла не ошибка.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// applyEnv переопределяет значения переменными окружения.
// Заданный API_ID включает разрешение упоминаний.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if err := envInt("SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := envDuration("TASK_TIMEOUT", &cfg.Processing.TaskTimeout); err != nil {
		return err
	}
	if err := envDuration("CACHE_TTL", &cfg.Processing.CacheTTL); err != nil {
		return err
	}
	if v := os.Getenv("API_ID"); v != "" {
		if err := envInt("API_ID", &cfg.Resolver.APIID); err != nil {
			return err
		}
		cfg.Resolver.Enabled = true
	}
	if v := os.Getenv("API_HASH"); v != "" {
		cfg.Resolver.APIHash = v
	}
	if v := os.Getenv("PHONE_NUMBER"); v != "" {
		cfg.Resolver.PhoneNumber = v
	}
	if v := os.Getenv("SESSION_FILE"); v != "" {
		cfg.Resolver.SessionFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadSize возвращает предел размера загрузки в байтах.
func (c *Config) MaxUploadSize() int64 {
	return int64(c.Server.MaxUploadSizeMB) << 20
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number (1-65535)")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb must be positive")
	}
	if c.Server.CleanupInterval <= 0 {
		return fmt.Errorf("server.cleanup_interval must be positive")
	}

	if c.Processing.TaskTimeout < 0 {
		return fmt.Errorf("processing.task_timeout must be non-negative (0 for no limit)")
	}
	if c.Processing.CacheTTL <= 0 {
		return fmt.Errorf("processing.cache_ttl must be positive")
	}
	if c.Processing.TaskTTL <= 0 {
		return fmt.Errorf("processing.task_ttl must be positive")
	}

	if c.Resolver.Enabled {
		if c.Resolver.APIID <= 0 {
			return fmt.Errorf("resolver.api_id must be a positive integer")
		}
		if c.Resolver.APIHash == "" {
			return fmt.Errorf("resolver.api_hash must not be empty")
		}
		if c.Resolver.SessionFile == "" {
			return fmt.Errorf("resolver.session_file must not be empty")
		}
		if c.Resolver.PoolSize <= 0 {
			return fmt.Errorf("resolver.pool_size must be positive")
		}
		if c.Resolver.MaxAttempts <= 0 {
			return fmt.Errorf("resolver.max_attempts must be positive")
		}
		if c.Resolver.OperationTimeout <= 0 || c.Resolver.TotalTimeout <= 0 {
			return fmt.Errorf("resolver timeouts must be positive")
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	return nil
}
