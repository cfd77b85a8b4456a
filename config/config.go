package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ID string

type ConfigYaml struct {
	Server      *ServerConfig        `yaml:"server"`
	EventServer *EventServerConfig   `yaml:"event_server"`
	StateStore  *StateStoreConfig    `yaml:"state_store"`
	JarStore    *JarStoreConfig      `yaml:"jar_store"`
	Events      *EventFlowConfigYaml `yaml:"events"`
	Workers     []WorkerConfig       `yaml:"workers"`
	Pipelines   []PipelineConfig     `yaml:"pipelines"`
}

type Config struct {
	Server      ServerConfig
	EventServer *EventServerConfig
	StateStore  StateStoreConfig
	JarStore    JarStoreConfig
	Events      *EventFlowConfig
	Workers     []WorkerConfig
	Pipelines   []PipelineConfig
}

func ReadConfig(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(yamlFile)
}

func ParseConfig(data []byte) (*Config, error) {
	var config ConfigYaml
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	cfg := &Config{
		EventServer: config.EventServer,
		Workers:     config.Workers,
		Pipelines:   config.Pipelines,
	}
	if config.Server != nil {
		cfg.Server = *config.Server
	}
	cfg.Server.setDefaults()
	if config.StateStore != nil {
		cfg.StateStore = *config.StateStore
	}
	if cfg.StateStore.Type == "" {
		cfg.StateStore.Type = InMemoryStateStoreType
	}
	if config.JarStore != nil {
		cfg.JarStore = *config.JarStore
	}
	if cfg.JarStore.Type == "" {
		cfg.JarStore.Type = JarStoreTypeFileSystem
	}
	if cfg.JarStore.Type == JarStoreTypeFileSystem && cfg.JarStore.FileSystem.Path == "" {
		cfg.JarStore.FileSystem.Path = "./jars"
	}
	if config.Events != nil {
		events, err := config.Events.Materialize()
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		cfg.Events = &events
	}
	return cfg, nil
}
