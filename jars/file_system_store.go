package jars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alan791205/ohara/config"
)

type FileSystemStore struct {
	dir string
}

func NewFileSystemStore(cfg config.FileSystemJarStoreConfig) (*FileSystemStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("jar store: missing path")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("jar store: %w", err)
	}
	return &FileSystemStore{dir: cfg.Path}, nil
}

func (s *FileSystemStore) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrJarNotFound, name)
	}
	return err
}

func (s *FileSystemStore) Put(ctx context.Context, name string, r io.Reader) (Jar, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Jar{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return Jar{}, err
	}
	if err := tmp.Close(); err != nil {
		return Jar{}, err
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		return Jar{}, err
	}
	return s.Stat(ctx, name)
}

func (s *FileSystemStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, notFound(name, err)
	}
	return f, nil
}

func (s *FileSystemStore) Stat(ctx context.Context, name string) (Jar, error) {
	info, err := os.Stat(s.path(name))
	if err != nil {
		return Jar{}, notFound(name, err)
	}
	return jarOf(info), nil
}

func jarOf(info fs.FileInfo) Jar {
	return Jar{ID: info.Name(), Name: info.Name(), Size: info.Size(), LastModified: info.ModTime().UTC()}
}

func (s *FileSystemStore) List(ctx context.Context) ([]Jar, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	jars := []Jar{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		jars = append(jars, jarOf(info))
	}
	return jars, nil
}

func (s *FileSystemStore) Rename(ctx context.Context, from, to string) (Jar, error) {
	if err := os.Rename(s.path(from), s.path(to)); err != nil {
		return Jar{}, notFound(from, err)
	}
	return s.Stat(ctx, to)
}

func (s *FileSystemStore) Delete(ctx context.Context, name string) error {
	return notFound(name, os.Remove(s.path(name)))
}
