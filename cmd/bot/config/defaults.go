package config

// Значения по умолчанию для необязательных полей конфигурации бота.
const (
	DefaultPollingIntervalSeconds = 5
	DefaultExcelThreshold         = 20
	DefaultMaxFilesPerMessage     = 5
	DefaultFileBatchTimeoutSecs   = 3
	DefaultHTTPTimeoutSeconds     = 30

	DefaultMessageColumnWidth = 12
	DefaultOutputColumnWidth  = 42
)
