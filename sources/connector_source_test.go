package sources

import (
	"context"
	"testing"
	"time"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outletSource(t *testing.T, connectors map[config.ID]chan any) Source {
	t.Helper()
	src, err := NewSource(context.Background(), config.SourceConfig{
		ID:        "outlet",
		Type:      config.SourceTypeConnector,
		Connector: config.ConnectorConfig{ID: "outlet"},
	}, connectors, "node-a")
	require.NoError(t, err)
	return src
}

func receive(t *testing.T, src Source) any {
	t.Helper()
	select {
	case got, ok := <-src.Out():
		require.True(t, ok, "source closed")
		return got
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event from source")
		return nil
	}
}

func TestConnectorSourceForwardsPipelineEvents(t *testing.T) {
	outlet := make(chan any, 4)
	src := outletSource(t, map[config.ID]chan any{"outlet": outlet})

	// events of this instance pass through unfiltered
	outlet <- &events.ConnectorStateEvent{Header: events.NewHeader("p1", "node-a"), ConnectorId: "ftp-in", State: "RUNNING"}
	outlet <- &events.PipelineDeletedEvent{Header: events.NewHeader("p2", "node-a")}

	state, ok := receive(t, src).(*events.ConnectorStateEvent)
	require.True(t, ok)
	assert.Equal(t, "ftp-in", state.ConnectorId)
	assert.Equal(t, "p1", state.GetPipelineId())

	deleted, ok := receive(t, src).(*events.PipelineDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, config.EventKindPipelineDeleted, deleted.GetKind())
}

func TestConnectorSourceReadsOnlyItsConnector(t *testing.T) {
	outlet := make(chan any, 4)
	inbox := make(chan any, 4)
	src := outletSource(t, map[config.ID]chan any{"outlet": outlet, "inbox": inbox})

	inbox <- &events.GraphUpdatedEvent{Header: events.NewHeader("p1", "node-b"), NodeId: "t1"}
	outlet <- &events.GraphUpdatedEvent{Header: events.NewHeader("p1", "node-a"), NodeId: "ftp-in"}

	got := receive(t, src).(*events.GraphUpdatedEvent)
	assert.Equal(t, "ftp-in", got.NodeId)

	select {
	case extra := <-src.Out():
		t.Errorf("unexpected event from another connector: %v", extra)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Len(t, inbox, 1)
}

func TestConnectorSourceClosesWithChannel(t *testing.T) {
	outlet := make(chan any, 1)
	src := outletSource(t, map[config.ID]chan any{"outlet": outlet})

	outlet <- &events.PipelineDeletedEvent{Header: events.NewHeader("p1", "node-a")}
	close(outlet)

	_, ok := receive(t, src).(*events.PipelineDeletedEvent)
	assert.True(t, ok)

	select {
	case _, ok := <-src.Out():
		assert.False(t, ok, "source must close after its connector")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for the source to close")
	}
}

func TestConnectorSourceUnregistered(t *testing.T) {
	_, err := NewConnectorSource(context.Background(), config.ConnectorConfig{ID: "missing"}, map[config.ID]chan any{})
	assert.ErrorContains(t, err, `"missing"`)
}
