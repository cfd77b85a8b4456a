package connectors

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bep/debounce"
)

const DefaultSaveDelay = time.Second

// Draft is an editable copy of a connector. Every edit marks it dirty until
// the next Commit. Only the fields edited through the draft are written back.
type Draft struct {
	mu           sync.Mutex
	curr         Connector
	editedKeys   map[string]bool
	nameEdited   bool
	schemaEdited bool
	dirty        bool
}

func NewDraft(c Connector) *Draft {
	return &Draft{curr: c.Clone(), editedKeys: map[string]bool{}}
}

func (d *Draft) Set(key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.curr.Configs == nil {
		d.curr.Configs = Config{}
	}
	if old, ok := d.curr.Configs[key]; ok && old == value {
		return
	}
	d.curr.Configs[key] = value
	d.editedKeys[key] = true
	d.dirty = true
}

func (d *Draft) Merge(configs Config) {
	for k, v := range configs {
		d.Set(k, v)
	}
}

func (d *Draft) SetName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.curr.Name != name {
		d.curr.Name = name
		d.nameEdited = true
		d.dirty = true
	}
}

func (d *Draft) SetSchema(schema []Column) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setSchema(schema)
}

func (d *Draft) setSchema(schema []Column) {
	if schema == nil {
		schema = []Column{}
	}
	d.curr.Schema = slices.Clone(schema)
	d.schemaEdited = true
	d.dirty = true
}

// EditSchema replaces the schema with fn's result. The draft is unchanged
// when fn fails.
func (d *Draft) EditSchema(fn func([]Column) ([]Column, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	schema, err := fn(slices.Clone(d.curr.Schema))
	if err != nil {
		return err
	}
	d.setSchema(schema)
	return nil
}

func (d *Draft) Dirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

func (d *Draft) Connector() Connector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.curr.Clone()
}

// Edits returns the fields changed through the draft so far.
func (d *Draft) Edits() Edits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.edits()
}

func (d *Draft) edits() Edits {
	e := Edits{Configs: Config{}}
	for k := range d.editedKeys {
		e.Configs[k] = d.curr.Configs[k]
	}
	if d.nameEdited {
		name := d.curr.Name
		e.Name = &name
	}
	if d.schemaEdited {
		e.Schema = slices.Clone(d.curr.Schema)
	}
	return e
}

// Commit returns the edits and clears the dirty flag.
func (d *Draft) Commit() (Edits, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dirty := d.dirty
	d.dirty = false
	return d.edits(), dirty
}

func (d *Draft) markDirty() {
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
}

// Edits are the form fields a draft changed. Name and Schema are nil when
// they were not edited.
type Edits struct {
	Name    *string
	Configs Config
	Schema  []Column
}

// Apply copies the edited fields onto c. Topics and state are kept.
func (e Edits) Apply(c Connector) Connector {
	c = c.Clone()
	if e.Name != nil {
		c.Name = *e.Name
	}
	if c.Configs == nil {
		c.Configs = Config{}
	}
	for k, v := range e.Configs {
		c.Configs[k] = v
	}
	if e.Schema != nil {
		c.Schema = slices.Clone(e.Schema)
	}
	return c
}

type SaveFunc func(ctx context.Context, edits Edits) error

// AutoSaver persists a draft once edits have stopped for the save delay.
type AutoSaver struct {
	ctx       context.Context
	draft     *Draft
	save      SaveFunc
	debounced func(func())
	saved     chan error
}

func NewAutoSaver(ctx context.Context, draft *Draft, save SaveFunc, delay time.Duration) *AutoSaver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &AutoSaver{
		ctx:       ctx,
		draft:     draft,
		save:      save,
		debounced: debounce.New(delay),
		saved:     make(chan error, 1),
	}
}

func (a *AutoSaver) Draft() *Draft { return a.draft }

// Touch schedules a save, pushing back any save already pending.
func (a *AutoSaver) Touch() {
	a.debounced(a.flush)
}

// Saved reports the outcome of each save attempt. Results are dropped when
// nobody is reading.
func (a *AutoSaver) Saved() <-chan error { return a.saved }

// Flush saves immediately when the draft is dirty.
func (a *AutoSaver) Flush() error {
	edits, dirty := a.draft.Commit()
	if !dirty {
		return nil
	}
	if err := a.ctx.Err(); err != nil {
		a.draft.markDirty()
		return err
	}
	if err := a.save(a.ctx, edits); err != nil {
		a.draft.markDirty()
		return err
	}
	return nil
}

// Cancel drops pending edits and any scheduled save.
func (a *AutoSaver) Cancel() {
	a.debounced(func() {})
	a.draft.Commit()
}

func (a *AutoSaver) flush() {
	err := a.Flush()
	if err != nil {
		slog.Error("connector autosave failed", "connector_id", a.draft.Connector().ID, "error", err)
	}
	select {
	case a.saved <- err:
	default:
	}
}
