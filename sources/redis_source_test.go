package sources

import (
	"context"
	"testing"
	"time"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func publish(t *testing.T, client *redis.Client, channel string, event events.Event) {
	t.Helper()
	data, err := events.Marshal(event)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Publish(context.Background(), channel, data).Err(); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func TestRedisSourceDropsOwnEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := NewRedisSource(ctx, config.RedisSourceConfig{Addr: mr.Addr()}, "node-a")
	if err != nil {
		t.Fatalf("NewRedisSource() error = %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publish(t, client, config.DefaultEventChannel, &events.PipelineDeletedEvent{Header: events.NewHeader("p1", "node-a")})
	publish(t, client, config.DefaultEventChannel, &events.PipelineDeletedEvent{Header: events.NewHeader("p2", "node-b")})

	select {
	case got := <-src.Out():
		event, ok := got.(events.Event)
		if !ok {
			t.Fatalf("expected events.Event, got %T", got)
		}
		if event.GetPipelineId() != "p2" || event.GetOrigin() != "node-b" {
			t.Errorf("got event from %q for %q, want node-b/p2", event.GetOrigin(), event.GetPipelineId())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for peer event")
	}
}

func TestRedisSourceSkipsGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := NewRedisSource(ctx, config.RedisSourceConfig{Addr: mr.Addr(), Channel: "bus"}, "node-a")
	if err != nil {
		t.Fatalf("NewRedisSource() error = %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	if err := client.Publish(ctx, "bus", "not json").Err(); err != nil {
		t.Fatal(err)
	}
	publish(t, client, "bus", &events.ConnectorStateEvent{Header: events.NewHeader("p1", "node-b"), ConnectorId: "c1"})

	select {
	case got := <-src.Out():
		if _, ok := got.(*events.ConnectorStateEvent); !ok {
			t.Errorf("expected *events.ConnectorStateEvent, got %T", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event after garbage payload")
	}
}

func TestRedisSourceClosesOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())

	src, err := NewRedisSource(ctx, config.RedisSourceConfig{Addr: mr.Addr()}, "node-a")
	if err != nil {
		t.Fatalf("NewRedisSource() error = %v", err)
	}
	cancel()

	select {
	case _, ok := <-src.Out():
		if ok {
			t.Error("expected Out() to be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for source to close")
	}
}

func TestNewSourceRejectsUnknownType(t *testing.T) {
	if _, err := NewSource(context.Background(), config.SourceConfig{Type: "kafka"}, nil, "node-a"); err == nil {
		t.Fatal("expected error for unknown source type")
	}
	if _, err := NewRedisSource(context.Background(), config.RedisSourceConfig{}, "node-a"); err == nil {
		t.Fatal("expected error for missing redis addr")
	}
}
