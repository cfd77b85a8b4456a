package processors

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/reugn/go-streams"
)

// EventFilter passes the events of the listed kinds and pipelines. An empty
// list matches everything.
type EventFilter struct {
	in        chan any
	out       chan any
	kinds     []config.EventKind
	pipelines []config.ID
}

func NewEventFilter(ctx context.Context, kinds []config.EventKind, pipelines []config.ID) *EventFilter {
	f := &EventFilter{
		in:        make(chan any),
		out:       make(chan any),
		kinds:     slices.Clone(kinds),
		pipelines: slices.Clone(pipelines),
	}
	go f.doStream(ctx)
	return f
}

func (f *EventFilter) In() chan<- any {
	return f.in
}

func (f *EventFilter) Out() <-chan any {
	return f.out
}

func (f *EventFilter) Via(flow streams.Flow) streams.Flow {
	go f.transmit(flow)
	return flow
}

func (f *EventFilter) To(sink streams.Sink) {
	go f.transmit(sink)
}

func (f *EventFilter) transmit(inlet streams.Inlet) {
	for element := range f.Out() {
		inlet.In() <- element
	}
	close(inlet.In())
}

func (f *EventFilter) Match(event events.Event) bool {
	if len(f.kinds) > 0 && !slices.Contains(f.kinds, event.GetKind()) {
		return false
	}
	if len(f.pipelines) > 0 && !slices.Contains(f.pipelines, config.ID(event.GetPipelineId())) {
		return false
	}
	return true
}

func (f *EventFilter) doStream(ctx context.Context) {
	defer close(f.out)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-f.in:
			if !ok {
				return
			}
			event, ok := msg.(events.Event)
			if !ok {
				slog.Warn("event filter: dropping invalid event type", "type", fmt.Sprintf("%T", msg))
				continue
			}
			if !f.Match(event) {
				continue
			}
			select {
			case f.out <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}
