package config

// Source

type SourceType string

const (
	SourceTypeRedis     SourceType = "redis"
	SourceTypeConnector SourceType = "connector"
)

type ConnectorConfig struct {
	ID ID `yaml:"id"`
}

type RedisSourceConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type SourceConfig struct {
	ID   ID         `yaml:"id"`
	Type SourceType `yaml:"type"`
	// Redis pub/sub
	Redis RedisSourceConfig `yaml:"redis"`
	// Connector Channel
	Connector ConnectorConfig `yaml:"connector"`
}

// DefaultEventChannel is the Redis pub/sub channel shared by console instances.
const DefaultEventChannel = "ohara:events"
