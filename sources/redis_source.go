package sources

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/redis/go-redis/v9"
	"github.com/reugn/go-streams"
	"github.com/reugn/go-streams/flow"
)

// RedisSource subscribes to the event bus shared by console instances.
// Events published by this instance are dropped.
type RedisSource struct {
	client *redis.Client
	pubsub *redis.PubSub
	origin string
	out    chan any
}

func NewRedisSource(ctx context.Context, cfg config.RedisSourceConfig, origin string) (*RedisSource, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis source: missing addr")
	}
	channel := cfg.Channel
	if channel == "" {
		channel = config.DefaultEventChannel
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pubsub := client.Subscribe(ctx, channel)
	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		client.Close()
		return nil, err
	}

	source := &RedisSource{client: client, pubsub: pubsub, origin: origin, out: make(chan any)}
	go source.init(ctx)
	return source, nil
}

func (s *RedisSource) init(ctx context.Context) {
	defer close(s.out)
	defer s.client.Close()
	defer s.pubsub.Close()

	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			event, err := events.Unmarshal([]byte(msg.Payload))
			if err != nil {
				slog.Error("redis source: failed to decode event", "channel", msg.Channel, "error", err)
				continue
			}
			if event.GetOrigin() == s.origin {
				continue
			}
			select {
			case s.out <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *RedisSource) Via(operator streams.Flow) streams.Flow {
	flow.DoStream(s, operator)
	return operator
}

func (s *RedisSource) Out() <-chan any {
	return s.out
}
