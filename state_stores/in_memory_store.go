package state_stores

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alan791205/ohara/config"
	"google.golang.org/protobuf/proto"
)

type InMemoryState struct {
	msg        proto.Message
	expiration time.Time
}

type InMemoryStateStore struct {
	ttl    time.Duration
	states map[string]*InMemoryState
	mu     sync.RWMutex
	done   chan struct{}
	once   sync.Once
}

// NewInMemoryStateStore keeps records until they expire. A zero expiry
// keeps them for the lifetime of the process.
func NewInMemoryStateStore(config config.InMemoryStateStoreConfig) *InMemoryStateStore {
	s := &InMemoryStateStore{
		ttl:    config.Expiry,
		states: make(map[string]*InMemoryState),
		done:   make(chan struct{}),
	}
	if s.ttl > 0 {
		go s.expire()
	}
	return s
}

func (s *InMemoryStateStore) Get(key string, new func() proto.Message) (proto.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[key]
	if !ok || s.expired(state, time.Now()) {
		return new(), false, nil
	}
	return proto.Clone(state.msg), true, nil
}

func (s *InMemoryStateStore) Set(key string, msg proto.Message, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl == 0 {
		ttl = s.ttl
	}
	state := &InMemoryState{msg: proto.Clone(msg)}
	if ttl > 0 {
		state.expiration = time.Now().Add(ttl)
	}
	s.states[key] = state
	return nil
}

func (s *InMemoryStateStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key)
	return nil
}

func (s *InMemoryStateStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	keys := []string{}
	for key, state := range s.states {
		if strings.HasPrefix(key, prefix) && !s.expired(state, now) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *InMemoryStateStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *InMemoryStateStore) expired(state *InMemoryState, now time.Time) bool {
	return !state.expiration.IsZero() && state.expiration.Before(now)
}

func (s *InMemoryStateStore) expire() {
	// Sweep at 1/10th of TTL for more responsive cleanup, with a floor of 10s
	sweepInterval := s.ttl / 10
	if sweepInterval < 10*time.Second {
		sweepInterval = 10 * time.Second
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for key, state := range s.states {
				if s.expired(state, now) {
					delete(s.states, key)
				}
			}
			s.mu.Unlock()
		case <-s.done:
			return
		}
	}
}
