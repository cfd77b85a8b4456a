package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestReadConfig(t *testing.T) {
	// Create a temporary test file
	testConfig := `
server:
  port: "6060"
state_store:
  type: redis
  redis:
    addr: "localhost:6379"
    expiry: 1h
jar_store:
  type: bucket
  bucket:
    bucket_name: jars
events:
  sources:
    peers:
      type: redis
      redis:
        addr: "localhost:6379"
        channel: "ohara.events"
  sinks:
    console:
      type: console
      console:
        level: info
    live:
      type: http
  routes:
    main:
      sources: ["outlet", "peers"]
      kinds: ["graph_updated"]
      sinks: ["console", "live"]
event_server:
  path: "/events"
workers:
  - name: wk00
    node_names: ["node00"]
pipelines:
  - id: p1
    name: demo
    nodes:
      - id: c1
        kind: com.island.ohara.connector.ftp.FtpSource
        to: t1
      - id: t1
        kind: topic
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")
	err := os.WriteFile(configPath, []byte(testConfig), 0644)
	if err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := ReadConfig(configPath)
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if config.Server.Port != "6060" {
		t.Errorf("expected port 6060, got %q", config.Server.Port)
	}
	if config.Server.RequestTimeout != 30*time.Second {
		t.Errorf("expected default request timeout, got %v", config.Server.RequestTimeout)
	}
	if config.StateStore.Type != RedisStateStoreType || config.StateStore.Redis.Expiry != time.Hour {
		t.Errorf("unexpected state store config %+v", config.StateStore)
	}
	if config.JarStore.Type != JarStoreTypeBucket || config.JarStore.Bucket.BucketName != "jars" {
		t.Errorf("unexpected jar store config %+v", config.JarStore)
	}
	if len(config.Workers) != 1 || config.Workers[0].Name != "wk00" {
		t.Errorf("unexpected workers %+v", config.Workers)
	}
	if len(config.Pipelines) != 1 || len(config.Pipelines[0].Nodes) != 2 {
		t.Fatalf("unexpected pipelines %+v", config.Pipelines)
	}
	if config.Pipelines[0].Nodes[0].To != "t1" {
		t.Errorf("expected edge to t1, got %q", config.Pipelines[0].Nodes[0].To)
	}

	// Verify route config
	if config.Events == nil || len(config.Events.Routes) != 1 {
		t.Fatalf("expected 1 route, got %+v", config.Events)
	}
	route := config.Events.Routes[0]
	expectedSources := []SourceConfig{
		{
			ID:        "outlet",
			Type:      SourceTypeConnector,
			Connector: ConnectorConfig{ID: "outlet"},
		},
		{
			ID:   "peers",
			Type: SourceTypeRedis,
			Redis: RedisSourceConfig{
				Addr:    "localhost:6379",
				Channel: "ohara.events",
			},
		},
	}
	if !reflect.DeepEqual(route.Sources, expectedSources) {
		t.Errorf("expected sources %v, got %v", expectedSources, route.Sources)
	}
	expectedSinks := []SinkConfig{
		{
			ID:      "console",
			Type:    SinkTypeConsole,
			Console: ConsoleSinkConfig{Level: ConsoleSinkLevelInfo},
		},
		{
			ID:   "live",
			Type: SinkTypeHTTP,
		},
	}
	if !reflect.DeepEqual(route.Sinks, expectedSinks) {
		t.Errorf("expected sinks %v, got %v", expectedSinks, route.Sinks)
	}
	if !reflect.DeepEqual(route.Kinds, []EventKind{EventKindGraphUpdated}) {
		t.Errorf("unexpected kinds %v", route.Kinds)
	}
	if got := config.Events.Connectors(); !reflect.DeepEqual(got, []ID{"outlet"}) {
		t.Errorf("expected connectors [outlet], got %v", got)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if config.Server.Port != "5050" {
		t.Errorf("expected default port, got %q", config.Server.Port)
	}
	if config.StateStore.Type != InMemoryStateStoreType {
		t.Errorf("expected in-memory store, got %q", config.StateStore.Type)
	}
	if config.JarStore.Type != JarStoreTypeFileSystem || config.JarStore.FileSystem.Path != "./jars" {
		t.Errorf("unexpected jar store defaults %+v", config.JarStore)
	}
	if config.Events != nil {
		t.Errorf("expected no event flow, got %+v", config.Events)
	}
}

func TestEventFlowReads(t *testing.T) {
	config, err := ParseConfig([]byte(`
events:
  sinks:
    console:
      type: console
  routes:
    forward:
      sources: ["inbox"]
      sinks: ["outlet", "console"]
`))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if config.Events.Reads("outlet") {
		t.Error("a route writing to outlet must not count as reading it")
	}
	if !config.Events.Reads("inbox") {
		t.Error("expected inbox to be read")
	}
	if config.Events.Reads("console") {
		t.Error("console is a sink, not a connector source")
	}
}

func TestParseConfigRouteWithoutSources(t *testing.T) {
	_, err := ParseConfig([]byte(`
events:
  routes:
    broken:
      sinks: ["console"]
`))
	if err == nil {
		t.Error("ParseConfig() error = nil, want error")
	}
}

func TestParseConfigSinkWithoutType(t *testing.T) {
	_, err := ParseConfig([]byte(`
events:
  sinks:
    console: {}
`))
	if err == nil {
		t.Error("ParseConfig() error = nil, want error")
	}
}

func TestReadGraphConfigInvalidPath(t *testing.T) {
	_, err := ReadConfig("nonexistent.yaml")
	if err == nil {
		t.Error("ReadConfig() error = nil, want error")
	}
}

func TestReadConfigInvalidYAML(t *testing.T) {
	// Create a temporary file with invalid YAML
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	invalidYAML := `
pipelines:
  - id: p1
    nodes:
      - id: [invalid yaml
`
	if _, err := tmpfile.Write([]byte(invalidYAML)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = ReadConfig(tmpfile.Name())
	if err == nil {
		t.Error("ReadConfig() error = nil, want error")
	}
}
