package config

import "time"

// Значения по умолчанию для конфигурации бота.
const (
	DefaultPollingInterval    = 2 * time.Second
	DefaultExcelThreshold     = 40
	DefaultMaxFilesPerMessage = 5
	DefaultFileBatchTimeout   = 3 * time.Second
	DefaultHTTPTimeout        = 30 * time.Second
	DefaultResultPageSize     = 100
)

// Default column widths for text rendering.
const (
	DefaultTypeColumnWidth    = 12
	DefaultTextColumnWidth    = 22
	DefaultDetailsColumnWidth = 22
)
