package connectors

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/alan791205/ohara/config"
)

const (
	ClassFtpSource  = "com.island.ohara.connector.ftp.FtpSource"
	ClassFtpSink    = "com.island.ohara.connector.ftp.FtpSink"
	ClassJdbcSource = "com.island.ohara.connector.jdbc.JDBCSourceConnector"
	ClassHdfsSink   = "com.island.ohara.connector.hdfs.HDFSSinkConnector"
)

type State string

const (
	StateUnassigned State = "UNASSIGNED"
	StateRunning    State = "RUNNING"
	StatePaused     State = "PAUSED"
	StateFailed     State = "FAILED"
	StateDestroyed  State = "DESTROYED"
)

type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeInteger DataType = "integer"
	DataTypeBoolean DataType = "boolean"
)

var (
	ErrInvalidDataType = errors.New("invalid column data type")
	ErrColumnNotFound  = errors.New("column not found")
	ErrInvalidColumnOp = errors.New("invalid column operation")
)

// Config is the free-form key/value blob a connector class is configured with.
type Config map[string]string

func (c Config) Get(key string) string { return c[key] }

func (c Config) Int(key string) (int, error) {
	v, ok := c[key]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type Column struct {
	Order    int      `json:"order"`
	Name     string   `json:"name"`
	NewName  string   `json:"newName"`
	DataType DataType `json:"dataType"`
}

type Connector struct {
	ID            config.ID   `json:"id"`
	Name          string      `json:"name"`
	ClassName     string      `json:"className"`
	Topics        []config.ID `json:"topics"`
	NumberOfTasks int         `json:"numberOfTasks"`
	Schema        []Column    `json:"schema"`
	Configs       Config      `json:"configs"`
	State         State       `json:"state,omitempty"`
}

func New(id config.ID, className string) Connector {
	return Connector{
		ID:            id,
		ClassName:     className,
		Topics:        []config.ID{},
		NumberOfTasks: 1,
		Schema:        []Column{},
		Configs:       Config{},
	}
}

func (c Connector) Clone() Connector {
	c.Topics = slices.Clone(c.Topics)
	c.Schema = slices.Clone(c.Schema)
	c.Configs = c.Configs.Clone()
	return c
}

// Topic returns the first topic of the connector, if any.
func (c Connector) Topic() (config.ID, bool) {
	if len(c.Topics) == 0 {
		return "", false
	}
	return c.Topics[0], true
}

func (c Connector) IsRunning() bool { return c.State == StateRunning }

func (t DataType) Valid() bool {
	switch t {
	case DataTypeString, DataTypeInteger, DataTypeBoolean:
		return true
	}
	return false
}

// Schema edits. Each returns a new slice with orders numbered from 1.

func AddColumn(schema []Column, name, newName string, dataType DataType) ([]Column, error) {
	if !dataType.Valid() {
		return schema, fmt.Errorf("%w: %q", ErrInvalidDataType, dataType)
	}
	if newName == "" {
		newName = name
	}
	out := slices.Clone(schema)
	return append(out, Column{
		Order:    len(schema) + 1,
		Name:     name,
		NewName:  newName,
		DataType: dataType,
	}), nil
}

func DeleteColumn(schema []Column, order int) ([]Column, error) {
	idx := columnIndex(schema, order)
	if idx < 0 {
		return schema, fmt.Errorf("%w: %d", ErrColumnNotFound, order)
	}
	out := make([]Column, 0, len(schema)-1)
	for i, col := range schema {
		if i == idx {
			continue
		}
		col.Order = len(out) + 1
		out = append(out, col)
	}
	return out, nil
}

func SetColumnType(schema []Column, order int, dataType DataType) ([]Column, error) {
	if !dataType.Valid() {
		return schema, fmt.Errorf("%w: %q", ErrInvalidDataType, dataType)
	}
	idx := columnIndex(schema, order)
	if idx < 0 {
		return schema, fmt.Errorf("%w: %d", ErrColumnNotFound, order)
	}
	out := slices.Clone(schema)
	out[idx].DataType = dataType
	return out, nil
}

// MoveUp swaps the column with its predecessor; the first column stays put.
func MoveUp(schema []Column, order int) ([]Column, error) {
	idx := columnIndex(schema, order)
	if idx < 0 {
		return schema, fmt.Errorf("%w: %d", ErrColumnNotFound, order)
	}
	if idx == 0 {
		return schema, nil
	}
	return swapColumns(schema, idx-1, idx), nil
}

// MoveDown swaps the column with its successor; the last column stays put.
func MoveDown(schema []Column, order int) ([]Column, error) {
	idx := columnIndex(schema, order)
	if idx < 0 {
		return schema, fmt.Errorf("%w: %d", ErrColumnNotFound, order)
	}
	if idx == len(schema)-1 {
		return schema, nil
	}
	return swapColumns(schema, idx, idx+1), nil
}

func swapColumns(schema []Column, i, j int) []Column {
	out := slices.Clone(schema)
	out[i], out[j] = out[j], out[i]
	out[i].Order, out[j].Order = i+1, j+1
	return out
}

func columnIndex(schema []Column, order int) int {
	return slices.IndexFunc(schema, func(c Column) bool { return c.Order == order })
}

type ColumnOp string

const (
	ColumnAdd      ColumnOp = "add"
	ColumnDelete   ColumnOp = "delete"
	ColumnMoveUp   ColumnOp = "up"
	ColumnMoveDown ColumnOp = "down"
	ColumnSetType  ColumnOp = "type"
)

// ColumnEdit is one row action of the schema table. Order picks the row for
// every operation except add.
type ColumnEdit struct {
	Op       ColumnOp `json:"op"`
	Order    int      `json:"order"`
	Name     string   `json:"name"`
	NewName  string   `json:"newName"`
	DataType DataType `json:"dataType"`
}

func (e ColumnEdit) Apply(schema []Column) ([]Column, error) {
	switch e.Op {
	case ColumnAdd:
		if e.Name == "" {
			return schema, fmt.Errorf("%w: add needs a column name", ErrInvalidColumnOp)
		}
		return AddColumn(schema, e.Name, e.NewName, e.DataType)
	case ColumnDelete:
		return DeleteColumn(schema, e.Order)
	case ColumnMoveUp:
		return MoveUp(schema, e.Order)
	case ColumnMoveDown:
		return MoveDown(schema, e.Order)
	case ColumnSetType:
		return SetColumnType(schema, e.Order, e.DataType)
	}
	return schema, fmt.Errorf("%w: %q", ErrInvalidColumnOp, e.Op)
}
