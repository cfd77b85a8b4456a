package sinks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/redis/go-redis/v9"
)

// RedisSink publishes the events raised by this instance on the shared bus.
// Events received from peers are not published again.
type RedisSink struct {
	client  *redis.Client
	channel string
	origin  string
	in      chan any
}

func NewRedisSink(ctx context.Context, cfg config.RedisSinkConfig, origin string) (*RedisSink, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis sink: missing addr")
	}
	channel := cfg.Channel
	if channel == "" {
		channel = config.DefaultEventChannel
	}
	sink := &RedisSink{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		channel: channel,
		origin:  origin,
		in:      make(chan any),
	}
	go sink.doSink(ctx)
	return sink, nil
}

func (s *RedisSink) doSink(ctx context.Context) {
	defer s.client.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.in:
			if !ok {
				return
			}
			event, ok := msg.(events.Event)
			if !ok || event.GetOrigin() != s.origin {
				continue
			}
			data, err := events.Marshal(event)
			if err != nil {
				slog.Error("redis sink: failed to encode event", "kind", event.GetKind(), "error", err)
				continue
			}
			if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
				slog.Error("redis sink: publish failed", "channel", s.channel, "error", err)
			}
		}
	}
}

func (s *RedisSink) In() chan<- any {
	return s.in
}
