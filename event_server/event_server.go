package event_server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultPath          = "/events"
	DefaultWebSocketPath = "/events/ws"

	subscriberBuffer = 64
	writeWait        = 10 * time.Second
)

type SubscriberId string

func NewSubscriberId() SubscriberId {
	return SubscriberId(uuid.New().String())
}

// Subscriber receives the event maps matching every key of its subscription,
// e.g. {"pipeline_id": "p1", "kind": "graph_updated"}.
type Subscriber struct {
	ID           SubscriberId
	Channel      chan any
	Subscription map[string]string
}

func NewSubscriber(id SubscriberId, subscription map[string]string) *Subscriber {
	return &Subscriber{
		ID:           id,
		Channel:      make(chan any, subscriberBuffer),
		Subscription: subscription,
	}
}

func (s *Subscriber) Matches(eventMap map[string]any) bool {
	for k, v := range s.Subscription {
		got, ok := eventMap[k]
		if !ok || fmt.Sprint(got) != v {
			return false
		}
	}
	return true
}

// EventServer pushes pipeline events to console pages over SSE and websockets.
type EventServer struct {
	clients    map[SubscriberId]*Subscriber
	clientsMux sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        config.EventServerConfig
	upgrader   websocket.Upgrader
}

// NewEventServer creates the server. It listens on its own port only when
// cfg.Port is set; otherwise mount Handler on another server.
func NewEventServer(ctx context.Context, cfg config.EventServerConfig) *EventServer {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.WebSocketPath == "" {
		cfg.WebSocketPath = DefaultWebSocketPath
	}
	server := &EventServer{
		clients: make(map[SubscriberId]*Subscriber),
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			// the console is served from another origin in development
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	server.ctx, server.cancel = context.WithCancel(ctx)

	if cfg.Port == "" {
		return server
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: server.Handler(),
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("event server error", "error", err)
		}
	}()

	go func() {
		<-server.ctx.Done()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			slog.Error("error shutting down event server", "error", err)
		}
	}()

	return server
}

func (es *EventServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+es.cfg.Path, es.handleSSE)
	mux.HandleFunc("GET "+es.cfg.WebSocketPath, es.handleWebSocket)
	return mux
}

// Paths returns the SSE and websocket paths served by Handler.
func (es *EventServer) Paths() (string, string) {
	return es.cfg.Path, es.cfg.WebSocketPath
}

func (es *EventServer) Close() {
	es.cancel()
}

func (es *EventServer) Subscribe(subscription map[string]string) *Subscriber {
	es.clientsMux.Lock()
	defer es.clientsMux.Unlock()
	client := NewSubscriber(NewSubscriberId(), subscription)
	es.clients[client.ID] = client
	return client
}

func (es *EventServer) Unsubscribe(client *Subscriber) {
	es.clientsMux.Lock()
	defer es.clientsMux.Unlock()
	if _, ok := es.clients[client.ID]; !ok {
		return
	}
	delete(es.clients, client.ID)
	close(client.Channel)
}

// Broadcast never blocks: a subscriber whose buffer is full misses the event.
func (es *EventServer) Broadcast(event events.Event) {
	es.clientsMux.RLock()
	defer es.clientsMux.RUnlock()
	eventMap := events.GetEventMap(event)

	for _, client := range es.clients {
		if !client.Matches(eventMap) {
			continue
		}
		select {
		case client.Channel <- eventMap:
		default:
			slog.Warn("event server: subscriber too slow, dropping event", "subscriber_id", client.ID, "kind", event.GetKind())
		}
	}
}

func subscriptionFrom(r *http.Request) map[string]string {
	subscription := map[string]string{}
	for k, v := range r.URL.Query() {
		subscription[k] = v[0]
	}
	return subscription
}

func (es *EventServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	client := es.Subscribe(subscriptionFrom(r))
	defer es.Unsubscribe(client)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-es.ctx.Done():
			return
		case event, ok := <-client.Channel:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("event server: failed to encode event", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (es *EventServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	client := es.Subscribe(subscriptionFrom(r))
	defer es.Unsubscribe(client)

	conn, err := es.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("event server: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The feed is one way; reading only notices when the peer goes away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-es.ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case event, ok := <-client.Channel:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("event server: websocket write failed", "subscriber_id", client.ID, "error", err)
				return
			}
		}
	}
}
