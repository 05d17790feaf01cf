// Package config предоставляет управление конфигурацией HTTP-сервера и CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// DefaultConfigFile - имя файла конфигурации, который ищется в рабочем каталоге.
const DefaultConfigFile = "config.yml"

// Daemon содержит параметры запуска сервера в фоновом режиме.
type Daemon struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	PidFile string `json:"pid_file" yaml:"pid_file"`
	LogFile string `json:"log_file" yaml:"log_file"`
	WorkDir string `json:"work_dir" yaml:"work_dir"`
}

// Server содержит конфигурацию сервера
type Server struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxUploadSizeMB int64         `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
	Daemon          Daemon        `json:"daemon" yaml:"daemon"`
}

// Processing содержит конфигурацию конвейера обработки
type Processing struct {
	// ExcludedNames дополняет встроенные имена удаленных аккаунтов.
	ExcludedNames []string `json:"excluded_names" yaml:"excluded_names"`
	// CacheTTL - время хранения результата для повторно загруженного файла, 0 отключает кэш.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Processing Processing `json:"processing" yaml:"processing"`
	Logging    Logging    `json:"logging" yaml:"logging"`
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем YAML-файл
// (если существует), затем .env и переменные окружения.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	// Отсутствие .env не ошибка: переменные могут быть заданы окружением.
	_ = godotenv.Load()

	cfg := defaultConfig()
	if err := loadFromYAML(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("не удалось применить переменные окружения: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxUploadSizeMB: DefaultMaxUploadSizeMB,
			Daemon: Daemon{
				PidFile: DefaultPidFile,
				LogFile: DefaultDaemonLogFile,
			},
		},
		Processing: Processing{
			CacheTTL: DefaultCacheTTL,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// loadFromYAML накладывает значения из YAML-файла поверх cfg.
// Отсутствующий файл не считается ошибкой.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}
	return nil
}

// applyEnv переопределяет значения переменными окружения.
func applyEnv(cfg *Config) error {
	if v := getEnv("SERVER_HOST", ""); v != "" {
		cfg.Server.Host = v
	}
	if v := getEnv("SERVER_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := getEnv("MAX_UPLOAD_SIZE_MB", ""); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("недопустимый MAX_UPLOAD_SIZE_MB: %w", err)
		}
		cfg.Server.MaxUploadSizeMB = size
	}
	if v := getEnv("SHUTDOWN_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if v := getEnv("DAEMON", ""); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("недопустимый DAEMON: %w", err)
		}
		cfg.Server.Daemon.Enabled = enabled
	}
	if v := getEnv("EXCLUDED_NAMES", ""); v != "" {
		cfg.Processing.ExcludedNames = splitList(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		cfg.Logging.Level = v
	}
	if v := getEnv("LOG_FORMAT", ""); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes возвращает предельный размер загружаемого файла в байтах.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadSizeMB << 20
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("таймауты server.read_timeout, server.write_timeout и server.idle_timeout должны быть положительными")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}
	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}
	if c.Processing.CacheTTL < 0 {
		return fmt.Errorf("processing.cache_ttl должно быть неотрицательным (0 отключает кэш)")
	}
	if c.Server.Daemon.Enabled && c.Server.Daemon.PidFile == "" {
		return fmt.Errorf("server.daemon.pid_file не может быть пустым в фоновом режиме")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format должен быть одним из: text, json")
	}

	return nil
}

// getEnv извлекает значение переменной окружения или возвращает значение по умолчанию, если она не установлена
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
