package config

// Default values for bot configuration.
const (
	// DefaultMaxFilesPerMessage - Telegram позволяет прикрепить к сообщению до 10 файлов.
	DefaultMaxFilesPerMessage   = 10
	DefaultFileBatchTimeoutSecs = 2
	DefaultHTTPTimeoutSeconds   = 60
	DefaultMaxFileSizeMB        = 20
	DefaultBatchTTLMinutes      = 10

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// TelegramDownloadLimitMB - предел Bot API для скачивания файлов.
	TelegramDownloadLimitMB = 20
)
