package jars

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alan791205/ohara/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "jars")
	store, err := NewStore(context.Background(), config.JarStoreConfig{
		Type:       config.JarStoreTypeFileSystem,
		FileSystem: config.FileSystemJarStoreConfig{Path: dir},
	})
	require.NoError(t, err)
	return NewService(store), dir
}

func TestUploadListOpen(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	jar, err := svc.Upload(ctx, "wordcount.jar", strings.NewReader("PK-wordcount"))
	require.NoError(t, err)
	assert.Equal(t, "wordcount.jar", jar.Name)
	assert.Equal(t, jar.Name, jar.ID)
	assert.Equal(t, int64(len("PK-wordcount")), jar.Size)
	assert.False(t, jar.LastModified.IsZero())

	_, err = svc.Upload(ctx, "alpha.JAR", strings.NewReader("PK"))
	require.NoError(t, err)

	jars, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, jars, 2)
	assert.Equal(t, "alpha.JAR", jars[0].Name)

	rc, err := svc.Open(ctx, "wordcount.jar")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "PK-wordcount", string(data))

	// no temporary files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestUploadRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "notes.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotJar)

	for _, name := range []string{"", "../evil.jar", "dir/app.jar", ".hidden.jar"} {
		_, err = svc.Upload(ctx, name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}

	_, err = svc.Upload(ctx, "app.jar", strings.NewReader("v1"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "app.jar", strings.NewReader("v2"))
	assert.ErrorIs(t, err, ErrDuplicateJar)
}

func TestRenameAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "a.jar", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = svc.Upload(ctx, "b.jar", strings.NewReader("b"))
	require.NoError(t, err)

	_, err = svc.Rename(ctx, "a.jar", "b.jar")
	assert.ErrorIs(t, err, ErrDuplicateJar)
	_, err = svc.Rename(ctx, "a.jar", "a.zip")
	assert.ErrorIs(t, err, ErrNotJar)
	_, err = svc.Rename(ctx, "missing.jar", "c.jar")
	assert.ErrorIs(t, err, ErrJarNotFound)

	jar, err := svc.Rename(ctx, "a.jar", "c.jar")
	require.NoError(t, err)
	assert.Equal(t, "c.jar", jar.Name)

	same, err := svc.Rename(ctx, "c.jar", "c.jar")
	require.NoError(t, err)
	assert.Equal(t, jar.Size, same.Size)

	require.NoError(t, svc.Delete(ctx, "c.jar"))
	assert.ErrorIs(t, svc.Delete(ctx, "c.jar"), ErrJarNotFound)
	_, err = svc.Open(ctx, "c.jar")
	assert.ErrorIs(t, err, ErrJarNotFound)

	jars, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, jars, 1)
	assert.Equal(t, "b.jar", jars[0].Name)
}

func TestNamesCheckedOnEveryAccess(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, "a.jar", strings.NewReader("a"))
	require.NoError(t, err)

	for _, name := range []string{".", "..", "", "../a.jar"} {
		assert.ErrorIs(t, svc.Delete(ctx, name), ErrInvalidName, "delete %q", name)
		_, err = svc.Open(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, "open %q", name)
		_, err = svc.Rename(ctx, name, "b.jar")
		assert.ErrorIs(t, err, ErrInvalidName, "rename %q", name)
	}

	// the jar directory and its contents are untouched
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(ctx, config.JarStoreConfig{Type: "ftp"})
	assert.Error(t, err)
	_, err = NewStore(ctx, config.JarStoreConfig{Type: config.JarStoreTypeFileSystem})
	assert.Error(t, err)
	_, err = NewStore(ctx, config.JarStoreConfig{Type: config.JarStoreTypeBucket})
	assert.Error(t, err)
}

func TestBucketKeys(t *testing.T) {
	store, err := NewBucketStore(context.Background(), config.BucketJarStoreConfig{
		URL:             "http://127.0.0.1:9000",
		BucketName:      "ohara",
		Region:          "us-east-1",
		Prefix:          "/streams/",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "streams/app.jar", store.key("app.jar"))
	assert.Equal(t, "ohara/streams/my%20app.jar", copySource("ohara", store.key("my app.jar")))
}
