package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alan791205/ohara/api/v1/events"
	"github.com/alan791205/ohara/config"
	"github.com/parquet-go/parquet-go"
)

const (
	defaultMaxBatchSize  = 1000
	defaultFlushInterval = time.Minute
)

// EventRow is one archived event.
type EventRow struct {
	Kind       string `parquet:"kind"`
	PipelineID string `parquet:"pipeline_id"`
	Origin     string `parquet:"origin"`
	Timestamp  int64  `parquet:"timestamp"`
	Attributes string `parquet:"attributes"`
}

func NewEventRow(event events.Event) (EventRow, error) {
	attrs, err := json.Marshal(event.GetAttributes())
	if err != nil {
		return EventRow{}, err
	}
	row := EventRow{
		Kind:       string(event.GetKind()),
		PipelineID: event.GetPipelineId(),
		Origin:     event.GetOrigin(),
		Attributes: string(attrs),
	}
	if ts := event.GetTimestamp(); ts != nil {
		row.Timestamp = ts.AsTime().UnixMilli()
	}
	return row, nil
}

// ParquetSink archives events as parquet files under a directory. A file is
// written when the batch is full, on every flush interval and on shutdown.
type ParquetSink struct {
	dir           string
	maxBatchSize  int
	flushInterval time.Duration
	in            chan any
	batch         []EventRow
	seq           int
	done          chan struct{}
}

func NewParquetSink(ctx context.Context, cfg config.SinkConfig) (*ParquetSink, error) {
	if cfg.FileSystem.Path == "" {
		return nil, errors.New("file system sink: missing path")
	}
	if err := os.MkdirAll(cfg.FileSystem.Path, 0o755); err != nil {
		return nil, fmt.Errorf("file system sink: %w", err)
	}
	sink := &ParquetSink{
		dir:           cfg.FileSystem.Path,
		maxBatchSize:  cfg.MaxBatchSize,
		flushInterval: cfg.FlushInterval,
		in:            make(chan any),
		done:          make(chan struct{}),
	}
	if sink.maxBatchSize <= 0 {
		sink.maxBatchSize = defaultMaxBatchSize
	}
	if sink.flushInterval <= 0 {
		sink.flushInterval = defaultFlushInterval
	}
	go sink.doSink(ctx)
	return sink, nil
}

func (s *ParquetSink) doSink(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-ticker.C:
			s.flush()
		case msg, ok := <-s.in:
			if !ok {
				s.flush()
				return
			}
			event, ok := msg.(events.Event)
			if !ok {
				slog.Warn("file system sink: invalid event type", "type", fmt.Sprintf("%T", msg))
				continue
			}
			row, err := NewEventRow(event)
			if err != nil {
				slog.Error("file system sink: failed to encode event", "kind", event.GetKind(), "error", err)
				continue
			}
			s.batch = append(s.batch, row)
			if len(s.batch) >= s.maxBatchSize {
				s.flush()
			}
		}
	}
}

func (s *ParquetSink) flush() {
	if len(s.batch) == 0 {
		return
	}
	s.seq++
	name := fmt.Sprintf("events-%d-%04d.parquet", time.Now().UnixMilli(), s.seq)
	if err := writeRows(filepath.Join(s.dir, name), s.batch); err != nil {
		slog.Error("file system sink: failed to write batch", "file", name, "rows", len(s.batch), "error", err)
		return
	}
	slog.Debug("file system sink: wrote batch", "file", name, "rows", len(s.batch))
	s.batch = s.batch[:0]
}

// writeRows writes to a temporary name first so readers never see a file
// without its footer.
func writeRows(path string, rows []EventRow) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := parquet.NewGenericWriter[EventRow](f)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Done is closed once the sink has written its last batch.
func (s *ParquetSink) Done() <-chan struct{} {
	return s.done
}

func (s *ParquetSink) In() chan<- any {
	return s.in
}
