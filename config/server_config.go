package config

import "time"

type ServerConfig struct {
	Port           string        `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// Connector classes hidden from the "add connector" lists.
	ConnectorFilters []string `yaml:"connector_filters"`
}

func (c *ServerConfig) setDefaults() {
	if c.Port == "" {
		c.Port = "5050"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

type EventServerConfig struct {
	// Port starts a dedicated listener; when empty the endpoints are mounted
	// on the API server.
	Port          string `yaml:"port"`
	Path          string `yaml:"path"`
	WebSocketPath string `yaml:"websocket_path"`
}
