package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andrej220/prefstore/internal/lg"
	"github.com/andrej220/prefstore/pkg/config/configstore"
	"github.com/andrej220/prefstore/pkg/config/notify"
	"github.com/andrej220/prefstore/pkg/config/value"
)

// ErrPoisoned is returned by every write after a panic happened while the
// store was being modified. There is no way back from it.
var ErrPoisoned = errors.New("config store poisoned by an earlier panic")

// notifyTimeout bounds how long a Set waits for the change to be published.
const notifyTimeout = 5 * time.Second

// Store is an in-memory key/value configuration document backed by a
// ConfigStore. It is loaded once, lazily, and written back in full on every Set.
//
// Reads share a read lock. A write holds the exclusive lock for the whole
// conversion, insert and backend save, so a slow backend blocks all readers.
type Store struct {
	backend  configstore.ConfigStore
	logger   lg.Logger
	notifier notify.Notifier

	once     sync.Once
	mu       sync.RWMutex
	entries  value.Document
	poisoned bool
}

type Option func(*Store)

func WithLogger(logger lg.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// New creates a store over backend. Nothing is read until Init or the first access.
func New(backend configstore.ConfigStore, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		logger:   lg.Discard,
		notifier: notify.Nop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the document on first call; later calls do nothing.
func (s *Store) Init() {
	s.once.Do(s.load)
}

// load never fails: a missing, unreadable or malformed document leaves the store empty.
func (s *Store) load() {
	var doc value.Document
	if err := s.backend.Load(&doc); err != nil {
		if errors.Is(err, configstore.ErrNotFound) {
			s.logger.Debug("no stored configuration, starting empty", lg.Err(err))
		} else {
			s.logger.Warn("discarding unreadable configuration, starting empty", lg.Err(err))
		}
		doc = nil
	}
	if doc == nil {
		doc = value.Document{}
	}
	s.entries = doc
	s.logger.Debug("configuration loaded", lg.Int("keys", len(doc)))
}

// Lookup returns the raw value stored under key.
func (s *Store) Lookup(key string) (value.Value, bool) {
	s.Init()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.poisoned {
		return value.Value{}, false
	}
	v, ok := s.entries[key]
	return v, ok
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.Init()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.poisoned {
		return nil
	}
	return s.entries.Keys()
}

// Err reports ErrPoisoned once a write has panicked.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.poisoned {
		return ErrPoisoned
	}
	return nil
}

func (s *Store) put(key string, in any) (v value.Value, err error) {
	s.Init()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned {
		return value.Value{}, ErrPoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			s.logger.Error("panic while writing configuration, store is now unusable",
				lg.String("key", key), lg.Any("panic", r))
			panic(r)
		}
	}()

	v, err = value.From(in)
	if err != nil {
		return value.Value{}, fmt.Errorf("config: cannot store %q: %w", key, err)
	}
	if s.entries == nil {
		s.entries = value.Document{}
	}
	s.entries[key] = v

	if err := s.backend.Save(s.entries); err != nil {
		s.logger.Error("failed to persist configuration", lg.String("key", key), lg.Err(err))
		return v, fmt.Errorf("config: persist %q: %w", key, err)
	}
	return v, nil
}

func (s *Store) set(key string, in any) error {
	v, err := s.put(key, in)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	change := notify.Change{Key: key, Value: v.Interface()}
	if err := s.notifier.Notify(ctx, change); err != nil {
		s.logger.Warn("failed to publish configuration change", lg.String("key", key), lg.Err(err))
	}
	return nil
}

// Get returns the value stored under key converted to T. A missing key and a
// value of another shape both report false.
func Get[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.Lookup(key)
	if !ok {
		return zero, false
	}
	var out T
	if err := v.Decode(&out); err != nil {
		s.logger.Debug("stored value does not match requested type",
			lg.String("key", key), lg.Err(err))
		return zero, false
	}
	return out, true
}

// Set stores v under key and rewrites the whole document. When the rewrite
// fails the error is returned but the in-memory value is kept.
func Set[T any](s *Store, key string, v T) error {
	return s.set(key, v)
}

// GetList is Get for a sequence of T.
func GetList[T any](s *Store, key string) ([]T, bool) {
	return Get[[]T](s, key)
}

// SetList is Set for a sequence of T.
func SetList[T any](s *Store, key string, list []T) error {
	return Set(s, key, list)
}
