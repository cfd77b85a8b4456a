package workers

import (
	"testing"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/graphs"
	"github.com/alan791205/ohara/state_stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, hidden ...string) *Registry {
	t.Helper()
	store := state_stores.NewInMemoryStateStore(config.InMemoryStateStoreConfig{})
	t.Cleanup(store.Close)
	return NewRegistry(store, hidden)
}

func TestCreateGetListDelete(t *testing.T) {
	r := newTestRegistry(t)

	w, err := r.Create(Worker{Name: "wk00", NodeNames: []string{"node00", "node01"}})
	require.NoError(t, err)
	assert.Equal(t, "wk00-status-topic", w.StatusTopicName)
	assert.Equal(t, "wk00-config-topic", w.ConfigTopicName)
	assert.Equal(t, "wk00-offset-topic", w.OffsetTopicName)

	_, err = r.Create(Worker{Name: "wk00", NodeNames: []string{"node02"}})
	assert.ErrorIs(t, err, ErrWorkerExists)

	_, err = r.Create(Worker{Name: "wk01", NodeNames: []string{"node02"}, StatusTopicName: "custom"})
	require.NoError(t, err)

	got, err := r.Get("wk01")
	require.NoError(t, err)
	assert.Equal(t, "custom", got.StatusTopicName)

	all, err := r.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "wk00", all[0].Name)

	require.NoError(t, r.Delete("wk00"))
	_, err = r.Get("wk00")
	assert.ErrorIs(t, err, ErrWorkerNotFound)
	assert.ErrorIs(t, r.Delete("wk00"), ErrWorkerNotFound)
}

func TestCreateValidates(t *testing.T) {
	r := newTestRegistry(t)

	tests := map[string]Worker{
		"missing name":     {NodeNames: []string{"node00"}},
		"upper case name":  {Name: "WK00", NodeNames: []string{"node00"}},
		"symbols in name":  {Name: "wk-00", NodeNames: []string{"node00"}},
		"no nodes":         {Name: "wk00"},
		"bad node name":    {Name: "wk00", NodeNames: []string{"node 00"}},
		"class name empty": {Name: "wk00", NodeNames: []string{"node00"}, Sources: []ConnectorDefinition{{Version: "1"}}},
	}
	for name, w := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := r.Create(w)
			assert.ErrorIs(t, err, ErrInvalidWorker)
		})
	}
}

func TestConnectorsHidesFilteredClasses(t *testing.T) {
	r := newTestRegistry(t, connectors.ClassHdfsSink)

	_, err := r.Seed(FromConfig(config.WorkerConfig{
		Name:      "wk00",
		NodeNames: []string{"node00"},
		Sources: []config.ConnectorDefinitionConfig{
			{ClassName: connectors.ClassFtpSource, Version: "0.2"},
			{ClassName: connectors.ClassJdbcSource, Version: "0.2"},
		},
		Sinks: []config.ConnectorDefinitionConfig{
			{ClassName: connectors.ClassFtpSink, Version: "0.2"},
			{ClassName: connectors.ClassHdfsSink, Version: "0.2"},
		},
	}))
	require.NoError(t, err)

	list, err := r.Connectors("wk00")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, Connector{ClassName: connectors.ClassFtpSource, Version: "0.2", Type: graphs.NodeTypeSource}, list[0])
	assert.Equal(t, graphs.NodeTypeSink, list[2].Type)
	for _, c := range list {
		assert.NotEqual(t, connectors.ClassHdfsSink, c.ClassName)
	}

	_, err = r.Connectors("missing")
	assert.ErrorIs(t, err, ErrWorkerNotFound)
}

func TestSeedKeepsExisting(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Create(Worker{Name: "wk00", NodeNames: []string{"node00"}})
	require.NoError(t, err)
	w, err := r.Seed(Worker{Name: "wk00", NodeNames: []string{"other"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"node00"}, w.NodeNames)
}
