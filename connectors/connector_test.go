package connectors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alan791205/ohara/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaEdits(t *testing.T) {
	schema, err := AddColumn(nil, "a", "", DataTypeString)
	require.NoError(t, err)
	schema, err = AddColumn(schema, "b", "bb", DataTypeInteger)
	require.NoError(t, err)
	schema, err = AddColumn(schema, "c", "cc", DataTypeBoolean)
	require.NoError(t, err)

	require.Len(t, schema, 3)
	assert.Equal(t, Column{Order: 1, Name: "a", NewName: "a", DataType: DataTypeString}, schema[0])

	_, err = AddColumn(schema, "d", "d", "float")
	assert.ErrorIs(t, err, ErrInvalidDataType)

	moved, err := MoveUp(schema, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(moved))
	assert.Equal(t, []int{1, 2, 3}, orders(moved))
	assert.Equal(t, []string{"a", "b", "c"}, names(schema), "input must not be mutated")

	same, err := MoveUp(schema, 1)
	require.NoError(t, err)
	assert.Equal(t, names(schema), names(same))

	moved, err = MoveDown(schema, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, names(moved))

	same, err = MoveDown(schema, 3)
	require.NoError(t, err)
	assert.Equal(t, names(schema), names(same))

	deleted, err := DeleteColumn(schema, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names(deleted))
	assert.Equal(t, []int{1, 2}, orders(deleted))

	_, err = DeleteColumn(schema, 9)
	assert.ErrorIs(t, err, ErrColumnNotFound)

	typed, err := SetColumnType(schema, 3, DataTypeString)
	require.NoError(t, err)
	assert.Equal(t, DataTypeString, typed[2].DataType)
	assert.Equal(t, DataTypeBoolean, schema[2].DataType)
}

func names(schema []Column) []string {
	var out []string
	for _, c := range schema {
		out = append(out, c.Name)
	}
	return out
}

func orders(schema []Column) []int {
	var out []int
	for _, c := range schema {
		out = append(out, c.Order)
	}
	return out
}

func TestFtpSourceSettingsRoundTrip(t *testing.T) {
	settings := FtpSourceSettings{
		FtpInfo:         FtpInfo{Hostname: "10.0.0.1", Port: 21, User: "ohara", Password: "secret"},
		InputFolder:     "/in",
		CompletedFolder: "/done",
		ErrorFolder:     "/err",
	}
	configs := settings.Configs()
	assert.Equal(t, "21", configs[FtpPort])
	assert.Equal(t, DefaultEncoding, configs[FtpEncode])

	parsed, err := ParseFtpSource(configs)
	require.NoError(t, err)
	settings.Encode = DefaultEncoding
	assert.Equal(t, settings, parsed)
	assert.Equal(t, []string{"/in", "/done", "/err"}, parsed.Folders())

	_, err = ParseFtpSource(Config{FtpPort: "twenty-one"})
	assert.Error(t, err)
}

func TestFtpSinkAndJdbcSettings(t *testing.T) {
	sink, err := ParseFtpSink(Config{FtpHostname: "h", FtpPort: "2121", FtpOutputFolder: "/out"})
	require.NoError(t, err)
	assert.Equal(t, "h:2121", sink.Addr())
	assert.Equal(t, []string{"/out"}, sink.Folders())

	jdbc := JdbcSourceSettings{
		RdbInfo:         RdbInfo{URL: "jdbc:postgresql://db:5432/ohara", User: "u", Password: "p"},
		Table:           "orders",
		TimestampColumn: "updated_at",
	}
	assert.Equal(t, jdbc, ParseJdbcSource(jdbc.Configs()))
}

func TestFtpInfoValidate(t *testing.T) {
	assert.ErrorIs(t, FtpInfo{Port: 21}.Validate(), ErrMissingSetting)
	assert.ErrorIs(t, FtpInfo{Hostname: "h", Port: 70000}.Validate(), ErrMissingSetting)
	assert.NoError(t, FtpInfo{Hostname: "h", Port: 21}.Validate())
}

func TestDraftDirtyFlag(t *testing.T) {
	original := New("c1", ClassFtpSource)
	d := NewDraft(original)
	assert.False(t, d.Dirty())

	d.Set(FtpHostname, "host")
	assert.True(t, d.Dirty())
	assert.Empty(t, original.Configs, "draft must not write through to the original")

	edits, dirty := d.Commit()
	assert.True(t, dirty)
	assert.Equal(t, Config{FtpHostname: "host"}, edits.Configs)
	assert.Nil(t, edits.Name)
	assert.Nil(t, edits.Schema)
	assert.False(t, d.Dirty())

	// same value again is not an edit
	d.Set(FtpHostname, "host")
	assert.False(t, d.Dirty())

	d.SetName("ftp-in")
	assert.True(t, d.Dirty())
	require.NotNil(t, d.Edits().Name)
	assert.Equal(t, "ftp-in", *d.Edits().Name)
}

func TestEditsApplyKeepsUneditedFields(t *testing.T) {
	d := NewDraft(New("c1", ClassFtpSource))
	d.Set(FtpPort, "21")
	require.NoError(t, d.EditSchema(ColumnEdit{Op: ColumnAdd, Name: "id", DataType: DataTypeInteger}.Apply))

	// the stored connector moved on after the draft was taken
	stored := New("c1", ClassFtpSource)
	stored.Name = "ftp-in"
	stored.Topics = []config.ID{"t1"}
	stored.State = StateRunning
	stored.Configs[FtpHostname] = "10.0.0.1"

	got := d.Edits().Apply(stored)
	assert.Equal(t, []config.ID{"t1"}, got.Topics)
	assert.Equal(t, StateRunning, got.State)
	assert.Equal(t, "ftp-in", got.Name)
	assert.Equal(t, Config{FtpHostname: "10.0.0.1", FtpPort: "21"}, got.Configs)
	assert.Equal(t, []string{"id"}, names(got.Schema))
	assert.Len(t, stored.Configs, 1, "Apply must not mutate its input")

	err := d.EditSchema(ColumnEdit{Op: ColumnDelete, Order: 5}.Apply)
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Equal(t, []string{"id"}, names(d.Connector().Schema))
}

func TestColumnEditApply(t *testing.T) {
	schema, err := ColumnEdit{Op: ColumnAdd, Name: "a", DataType: DataTypeString}.Apply(nil)
	require.NoError(t, err)
	schema, err = ColumnEdit{Op: ColumnAdd, Name: "b", NewName: "bb", DataType: DataTypeInteger}.Apply(schema)
	require.NoError(t, err)

	tests := []struct {
		name    string
		edit    ColumnEdit
		want    []string
		wantErr error
	}{
		{name: "up", edit: ColumnEdit{Op: ColumnMoveUp, Order: 2}, want: []string{"b", "a"}},
		{name: "down", edit: ColumnEdit{Op: ColumnMoveDown, Order: 1}, want: []string{"b", "a"}},
		{name: "delete", edit: ColumnEdit{Op: ColumnDelete, Order: 1}, want: []string{"b"}},
		{name: "type", edit: ColumnEdit{Op: ColumnSetType, Order: 2, DataType: DataTypeBoolean}, want: []string{"a", "b"}},
		{name: "add without name", edit: ColumnEdit{Op: ColumnAdd, DataType: DataTypeString}, wantErr: ErrInvalidColumnOp},
		{name: "unknown op", edit: ColumnEdit{Op: "sideways"}, wantErr: ErrInvalidColumnOp},
		{name: "bad type", edit: ColumnEdit{Op: ColumnSetType, Order: 1, DataType: "float"}, wantErr: ErrInvalidDataType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.edit.Apply(schema)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestAutoSaverDebounces(t *testing.T) {
	var saves atomic.Int32
	var last atomic.Value
	save := func(ctx context.Context, edits Edits) error {
		saves.Add(1)
		last.Store(edits.Configs[FtpHostname])
		return nil
	}

	saver := NewAutoSaver(context.Background(), NewDraft(New("c1", ClassFtpSource)), save, 30*time.Millisecond)
	for _, host := range []string{"a", "ab", "abc"} {
		saver.Draft().Set(FtpHostname, host)
		saver.Touch()
	}

	select {
	case err := <-saver.Saved():
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for autosave")
	}
	assert.Equal(t, int32(1), saves.Load())
	assert.Equal(t, "abc", last.Load())
	assert.False(t, saver.Draft().Dirty())
}

func TestAutoSaverKeepsDirtyOnFailure(t *testing.T) {
	failing := func(ctx context.Context, edits Edits) error { return errors.New("boom") }
	saver := NewAutoSaver(context.Background(), NewDraft(New("c1", ClassFtpSink)), failing, time.Millisecond)

	saver.Draft().Set(FtpOutputFolder, "/out")
	assert.Error(t, saver.Flush())
	assert.True(t, saver.Draft().Dirty())

	// nothing to do on a clean draft
	clean := NewAutoSaver(context.Background(), NewDraft(New("c2", ClassFtpSink)), failing, time.Millisecond)
	assert.NoError(t, clean.Flush())
}

func TestPostgresConnString(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "jdbc:postgresql://db:5432/ohara", want: "postgres://db:5432/ohara"},
		{url: "jdbc:postgresql://db/ohara?user=u&password=p&sslmode=disable", want: "postgres://u:p@db/ohara?sslmode=disable"},
		{url: "jdbc:mysql://db:3306/ohara", wantErr: true},
		{url: "postgresql://db:5432/ohara", wantErr: true},
		{url: "jdbc:postgresql:ohara", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := PostgresConnString(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatorRejectsBadInput(t *testing.T) {
	v := NewValidator(200 * time.Millisecond)

	err := v.ValidateFtp(context.Background(), FtpInfo{Port: 21})
	assert.ErrorIs(t, err, ErrMissingSetting)

	err = v.ValidateRdb(context.Background(), RdbInfo{URL: "jdbc:oracle:thin:@db:1521:xe"})
	assert.ErrorIs(t, err, ErrUnsupportedURL)

	// nothing listens on port 1
	err = v.ValidateFtp(context.Background(), FtpInfo{Hostname: "127.0.0.1", Port: 1})
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestAutoSaverCancel(t *testing.T) {
	var saves atomic.Int32
	save := func(ctx context.Context, edits Edits) error {
		saves.Add(1)
		return nil
	}
	saver := NewAutoSaver(context.Background(), NewDraft(New("c1", ClassFtpSource)), save, 20*time.Millisecond)
	saver.Draft().Set(FtpHostname, "host")
	saver.Touch()
	saver.Cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), saves.Load())
	assert.False(t, saver.Draft().Dirty())
}
