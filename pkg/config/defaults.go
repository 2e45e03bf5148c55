package config

import (
	"time"

	"github.com/Sumatoshi-tech/stackzip/pkg/nice"
)

// Default configuration values.
const (
	DefaultRunHour         = 0
	DefaultDestinationMode = DestinationLocal
	DefaultArchiveRoot     = "/mnt/data"
	DefaultStackPath       = "/home/bits/stack"
	DefaultCodec           = "gzip"
	DefaultFailurePolicy   = "exit"
	DefaultNice            = nice.Default
	DefaultCheckInterval   = time.Hour
	DefaultLogLevel        = "info"
	DefaultLogFormat       = LogFormatText
	DefaultLogName         = "stackzip"
	DefaultCollectorMatch  = "collect"
	DefaultCatalogPath     = "stackzip.db"
)

// Destination modes.
const (
	DestinationLocal  = "local"
	DestinationVolume = "volume"
	DestinationS3     = "s3"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LogFileExt is appended to the log name to form the log file path.
const LogFileExt = ".log"
