package jars

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/alan791205/ohara/config"
)

var (
	ErrNotJar       = errors.New("only .jar files can be uploaded")
	ErrDuplicateJar = errors.New("a jar with this name already exists")
	ErrJarNotFound  = errors.New("jar not found")
	ErrInvalidName  = errors.New("invalid jar name")
)

// Jar is an uploaded stream-app jar. Jars are addressed by file name, so ID
// and Name are equal.
type Jar struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (Jar, error)
	Get(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (Jar, error)
	List(ctx context.Context) ([]Jar, error)
	Rename(ctx context.Context, from, to string) (Jar, error)
	Delete(ctx context.Context, name string) error
}

func NewStore(ctx context.Context, cfg config.JarStoreConfig) (Store, error) {
	switch cfg.Type {
	case config.JarStoreTypeFileSystem, "":
		store, err := NewFileSystemStore(cfg.FileSystem)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.JarStoreTypeBucket:
		store, err := NewBucketStore(ctx, cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("invalid jar store type: %s", cfg.Type)
}

// Service enforces the naming rules of the jar list on top of a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func checkName(name string) error {
	if name == "" || name != path.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !strings.EqualFold(path.Ext(name), ".jar") {
		return fmt.Errorf("%w: %q", ErrNotJar, name)
	}
	return nil
}

func (s *Service) exists(ctx context.Context, name string) (bool, error) {
	_, err := s.store.Stat(ctx, name)
	if errors.Is(err, ErrJarNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (Jar, error) {
	if err := checkName(name); err != nil {
		return Jar{}, err
	}
	exists, err := s.exists(ctx, name)
	if err != nil {
		return Jar{}, err
	}
	if exists {
		return Jar{}, fmt.Errorf("%w: %q", ErrDuplicateJar, name)
	}
	jar, err := s.store.Put(ctx, name, r)
	if err != nil {
		return Jar{}, err
	}
	slog.Info("jar uploaded", "name", name, "size", jar.Size)
	return jar, nil
}

func (s *Service) List(ctx context.Context) ([]Jar, error) {
	jars, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(jars, func(a, b Jar) int { return strings.Compare(a.Name, b.Name) })
	return jars, nil
}

func (s *Service) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, name)
}

func (s *Service) Rename(ctx context.Context, from, to string) (Jar, error) {
	if err := checkName(from); err != nil {
		return Jar{}, err
	}
	if err := checkName(to); err != nil {
		return Jar{}, err
	}
	if from == to {
		return s.store.Stat(ctx, from)
	}
	exists, err := s.exists(ctx, to)
	if err != nil {
		return Jar{}, err
	}
	if exists {
		return Jar{}, fmt.Errorf("%w: %q", ErrDuplicateJar, to)
	}
	return s.store.Rename(ctx, from, to)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return s.store.Delete(ctx, name)
}
