package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// LoggingConfig содержит параметры журнала бота.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token                string        `yaml:"token"`
	MaxFilesPerMessage   int           `yaml:"max_files_per_message"`
	FileBatchTimeoutSecs int           `yaml:"file_batch_timeout_seconds"`
	HTTPTimeoutSeconds   int           `yaml:"http_timeout_seconds"`
	MaxFileSizeMB        int           `yaml:"max_file_size_mb"`
	BatchTTLMinutes      int           `yaml:"batch_ttl_minutes"`
	CacheTTLMinutes      int           `yaml:"cache_ttl_minutes"`
	ExcludedNames        []string      `yaml:"excluded_names"`
	Logging              LoggingConfig `yaml:"logging"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot BotConfig `yaml:"bot"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
// Отсутствующий файл допустим: токен тогда берется из BOT_TOKEN.
func LoadBotConfig(filename string) (*BotConfig, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	botCfg := &cfg.Bot
	if token := strings.TrimSpace(os.Getenv("BOT_TOKEN")); token != "" {
		botCfg.Token = token
	}
	botCfg.applyDefaults()
	return botCfg, nil
}

func (c *BotConfig) applyDefaults() {
	if c.MaxFilesPerMessage == 0 {
		c.MaxFilesPerMessage = DefaultMaxFilesPerMessage
	}
	if c.FileBatchTimeoutSecs == 0 {
		c.FileBatchTimeoutSecs = DefaultFileBatchTimeoutSecs
	}
	if c.HTTPTimeoutSeconds == 0 {
		c.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if c.MaxFileSizeMB == 0 {
		c.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	if c.BatchTTLMinutes == 0 {
		c.BatchTTLMinutes = DefaultBatchTTLMinutes
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// FileBatchTimeout возвращает окно накопления файлов.
func (c *BotConfig) FileBatchTimeout() time.Duration {
	return time.Duration(c.FileBatchTimeoutSecs) * time.Second
}

// HTTPTimeout возвращает таймаут скачивания файла.
func (c *BotConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// MaxFileSizeBytes возвращает предельный размер файла в байтах.
func (c *BotConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

// BatchTTL возвращает время, после которого зависшая пачка файлов удаляется.
func (c *BotConfig) BatchTTL() time.Duration {
	return time.Duration(c.BatchTTLMinutes) * time.Minute
}

// CacheTTL возвращает время хранения результатов, 0 отключает кэш.
func (c *BotConfig) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.MaxFilesPerMessage <= 0 {
		return fmt.Errorf("bot.max_files_per_message must be positive")
	}
	if c.FileBatchTimeoutSecs <= 0 {
		return fmt.Errorf("bot.file_batch_timeout_seconds must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.http_timeout_seconds must be positive")
	}
	if c.MaxFileSizeMB <= 0 || c.MaxFileSizeMB > TelegramDownloadLimitMB {
		return fmt.Errorf("bot.max_file_size_mb must be between 1 and %d", TelegramDownloadLimitMB)
	}
	if c.BatchTTLMinutes <= 0 {
		return fmt.Errorf("bot.batch_ttl_minutes must be positive")
	}
	if c.CacheTTLMinutes < 0 {
		return fmt.Errorf("bot.cache_ttl_minutes must not be negative")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("bot.logging.level must be one of: debug, info, warn, error")
	}
	return nil
}
