package config

import "time"

type SinkType string

const (
	SinkTypeConnector  SinkType = "connector"
	SinkTypeConsole    SinkType = "console"
	SinkTypeFileSystem SinkType = "file_system"
	SinkTypeRedis      SinkType = "redis"
	SinkTypeHTTP       SinkType = "http"
)

type ConsoleSinkLevel string

const (
	ConsoleSinkLevelDebug   ConsoleSinkLevel = "debug"
	ConsoleSinkLevelInfo    ConsoleSinkLevel = "info"
	ConsoleSinkLevelWarning ConsoleSinkLevel = "warning"
	ConsoleSinkLevelError   ConsoleSinkLevel = "error"
)

type ConsoleSinkConfig struct {
	Level ConsoleSinkLevel `yaml:"level"`
}

type FileSystemSinkConfig struct {
	Path string `yaml:"path"`
}

type RedisSinkConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type SinkConfig struct {
	ID   ID       `yaml:"id"`
	Type SinkType `yaml:"type"`
	// Batching, used by the file system sink
	MaxBatchSize  int           `yaml:"max_batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	// Destinations
	// Console
	Console ConsoleSinkConfig `yaml:"console"`
	// File System (parquet)
	FileSystem FileSystemSinkConfig `yaml:"file_system"`
	// Redis pub/sub
	Redis RedisSinkConfig `yaml:"redis"`
	// Connector Channel
	Connector ConnectorConfig `yaml:"connector"`
}
