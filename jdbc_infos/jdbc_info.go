package jdbc_infos

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/alan791205/ohara/config"
	"github.com/alan791205/ohara/connectors"
	"github.com/alan791205/ohara/state_stores"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrInfoNotFound = errors.New("database connection not found")
	ErrInvalidInfo  = errors.New("invalid database connection")
)

const keyPrefix = "jdbc:"

// Info is a saved database connection offered by the jdbc source form.
type Info struct {
	ID       config.ID `json:"id"`
	Name     string    `json:"name" validate:"required,max=50"`
	URL      string    `json:"url" validate:"required,startswith=jdbc:"`
	User     string    `json:"user"`
	Password string    `json:"password"`
}

func (i Info) RdbInfo() connectors.RdbInfo {
	return connectors.RdbInfo{URL: i.URL, User: i.User, Password: i.Password}
}

// Checker tests database connections and lists their tables.
type Checker interface {
	ValidateRdb(ctx context.Context, info connectors.RdbInfo) error
	QueryTables(ctx context.Context, info connectors.RdbInfo) ([]connectors.Table, error)
}

type Service struct {
	mu       sync.Mutex
	store    state_stores.StateStore
	checker  Checker
	validate *validator.Validate
}

func NewService(store state_stores.StateStore, checker Checker) *Service {
	return &Service{
		store:    store,
		checker:  checker,
		validate: validator.New(),
	}
}

func (s *Service) check(info Info) error {
	if err := s.validate.Struct(info); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInfo, err)
	}
	return nil
}

func (s *Service) Create(info Info) (Info, error) {
	if err := s.check(info); err != nil {
		return Info{}, err
	}
	info.ID = config.ID(uuid.New().String())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := state_stores.Save(s.store, keyPrefix+string(info.ID), info); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (s *Service) Update(info Info) (Info, error) {
	if err := s.check(info); err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(info.ID); err != nil {
		return Info{}, err
	}
	if err := state_stores.Save(s.store, keyPrefix+string(info.ID), info); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (s *Service) get(id config.ID) (Info, error) {
	info, found, err := state_stores.Load[Info](s.store, keyPrefix+string(id))
	if err != nil {
		return Info{}, err
	}
	if !found {
		return Info{}, fmt.Errorf("%w: %q", ErrInfoNotFound, id)
	}
	return info, nil
}

func (s *Service) Get(id config.ID) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *Service) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := state_stores.LoadAll[Info](s.store, keyPrefix)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(all, func(a, b Info) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(string(a.ID), string(b.ID)))
	})
	return all, nil
}

func (s *Service) Delete(id config.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(id); err != nil {
		return err
	}
	return s.store.Delete(keyPrefix + string(id))
}

// Validate tests a connection without saving it.
func (s *Service) Validate(ctx context.Context, info connectors.RdbInfo) error {
	if info.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidInfo)
	}
	return s.checker.ValidateRdb(ctx, info)
}

// Tables lists the tables reachable through the saved connection id.
func (s *Service) Tables(ctx context.Context, id config.ID) ([]connectors.Table, error) {
	info, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.checker.QueryTables(ctx, info.RdbInfo())
}
