package config

// Pipeline seeds loaded at startup

type NodeConfig struct {
	ID   ID     `yaml:"id"`
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	To   ID     `yaml:"to"`
	Icon string `yaml:"icon"`
}

type PipelineConfig struct {
	ID            ID                       `yaml:"id"`
	Name          string                   `yaml:"name"`
	WorkerCluster string                   `yaml:"worker_cluster"`
	Nodes         []NodeConfig             `yaml:"nodes"`
	Connectors    map[ID]map[string]string `yaml:"connectors"`
}

// Worker cluster seeds

type ConnectorDefinitionConfig struct {
	ClassName string `yaml:"class_name"`
	Version   string `yaml:"version"`
}

type WorkerConfig struct {
	Name            string                      `yaml:"name"`
	NodeNames       []string                    `yaml:"node_names"`
	StatusTopicName string                      `yaml:"status_topic_name"`
	ConfigTopicName string                      `yaml:"config_topic_name"`
	OffsetTopicName string                      `yaml:"offset_topic_name"`
	Sources         []ConnectorDefinitionConfig `yaml:"sources"`
	Sinks           []ConnectorDefinitionConfig `yaml:"sinks"`
}
