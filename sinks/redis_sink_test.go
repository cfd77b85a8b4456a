package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisSinkPublishesLocalEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	sub := client.Subscribe(ctx, "bus")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	sink, err := NewRedisSink(ctx, config.RedisSinkConfig{Addr: mr.Addr(), Channel: "bus"}, "node-a")
	if err != nil {
		t.Fatalf("NewRedisSink() error = %v", err)
	}

	peer := makeStateEvent("p1", "c1", "RUNNING")
	peer.Origin = "node-b"
	sink.In() <- peer
	sink.In() <- "not-an-event"
	sink.In() <- makeStateEvent("p2", "c2", "FAILED")

	select {
	case msg := <-sub.Channel():
		event, err := events.Unmarshal([]byte(msg.Payload))
		if err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if event.GetPipelineId() != "p2" {
			t.Errorf("got pipeline %q, want p2: peer events must not be republished", event.GetPipelineId())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for published event")
	}
}
