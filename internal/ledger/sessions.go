package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// SessionGauge receives the number of stores held in memory.
type SessionGauge interface {
	SetSessions(n int)
}

// Sessions hands out one loaded Store per owner. Stores are cached with LRU
// and TTL eviction, except that a store with unsaved changes is pinned until
// it has been flushed.
//
// A clean store evicted while a request still holds it can briefly coexist
// with a freshly loaded one for the same owner. Their saves are whole-collection
// snapshots, so the later save wins.
type Sessions struct {
	gw          storage.Gateway
	opts        []Option
	cache       *cache.LRUCache[*Store]
	loadTimeout time.Duration
	gauge       SessionGauge
	logger      *log.Logger

	mu     sync.Mutex
	pinned map[string]*Store
	group  singleflight.Group
}

// SessionsConfig sizes the session cache.
type SessionsConfig struct {
	Size        int
	TTL         time.Duration
	LoadTimeout time.Duration
	Gauge       SessionGauge
	Logger      *log.Logger
}

func NewSessions(gw storage.Gateway, cfg SessionsConfig, opts ...Option) *Sessions {
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default(log.ComponentLedger)
	}

	s := &Sessions{
		gw:          gw,
		opts:        opts,
		loadTimeout: cfg.LoadTimeout,
		gauge:       cfg.Gauge,
		logger:      cfg.Logger,
		pinned:      make(map[string]*Store),
	}
	s.cache = cache.NewLRUCache(cfg.Size, cfg.TTL, cache.WithEvictCallback(s.evicted))
	return s
}

// Get returns the owner's store, loading it on first use. Concurrent first
// requests for one owner share a single load. A store whose load partly
// failed is still returned; Status reports the degraded collections.
func (s *Sessions) Get(ctx context.Context, owner string) (*Store, error) {
	if owner == "" {
		return nil, errors.New("owner is required")
	}
	if st, ok := s.lookup(owner); ok {
		return st, nil
	}

	v, err, _ := s.group.Do(owner, func() (any, error) {
		if st, ok := s.lookup(owner); ok {
			return st, nil
		}

		// The load outlives a cancelled request so other waiters still get a store.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()

		st := NewStore(owner, s.gw, s.opts...)
		if err := st.Load(loadCtx); err != nil {
			s.logger.WarnContext(ctx, "Session loaded degraded",
				log.FieldOwnerID, owner,
				log.FieldError, err)
		}
		s.cache.Set(owner, st)
		s.report()
		return st, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return v.(*Store), nil
}

func (s *Sessions) lookup(owner string) (*Store, bool) {
	s.mu.Lock()
	st, ok := s.pinned[owner]
	s.mu.Unlock()
	if ok {
		return st, true
	}
	return s.cache.Get(owner)
}

func (s *Sessions) evicted(owner string, st *Store) {
	if st.Dirty() {
		s.mu.Lock()
		s.pinned[owner] = st
		s.mu.Unlock()
		s.logger.Info("Session pinned until saved", log.FieldOwnerID, owner)
	}
	s.report()
}

// CleanExpired drops expired sessions and releases pinned stores that have
// been saved since. It satisfies cache.Cleaner.
func (s *Sessions) CleanExpired() int {
	removed := s.cache.CleanExpired()

	s.mu.Lock()
	for owner, st := range s.pinned {
		if !st.Dirty() {
			delete(s.pinned, owner)
			removed++
		}
	}
	s.mu.Unlock()

	s.report()
	return removed
}

// Len counts cached plus pinned stores.
func (s *Sessions) Len() int {
	s.mu.Lock()
	pinned := len(s.pinned)
	s.mu.Unlock()
	return s.cache.Size() + pinned
}

// FlushAll saves every dirty store, for shutdown.
func (s *Sessions) FlushAll(ctx context.Context) error {
	stores := s.cache.Values()
	s.mu.Lock()
	for _, st := range s.pinned {
		stores = append(stores, st)
	}
	s.mu.Unlock()

	var errs []error
	for _, st := range stores {
		if err := st.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", st.Owner(), err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sessions) report() {
	if s.gauge != nil {
		s.gauge.SetSessions(s.Len())
	}
}

var _ cache.Cleaner = (*Sessions)(nil)
