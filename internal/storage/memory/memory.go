// Package memory provides an in-process storage.Gateway for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type key struct {
	owner string
	name  core.Collection
}

type entry struct {
	payload   []byte
	revision  int64
	updatedAt time.Time
}

// Store keeps encoded snapshots in memory so stored values never alias caller slices.
type Store struct {
	mu          sync.RWMutex
	collections map[key]entry
	profiles    map[string]core.Profile
}

func NewStore() *Store {
	return &Store{
		collections: make(map[key]entry),
		profiles:    make(map[string]core.Profile),
	}
}

func (s *Store) LoadTransactions(ctx context.Context, owner string) ([]core.LendingRecord, error) {
	return load[core.LendingRecord](s, owner, core.Transactions)
}

func (s *Store) SaveTransactions(ctx context.Context, owner string, records []core.LendingRecord) error {
	return save(s, owner, core.Transactions, records)
}

func (s *Store) LoadExpenses(ctx context.Context, owner string) ([]core.Expense, error) {
	return load[core.Expense](s, owner, core.Expenses)
}

func (s *Store) SaveExpenses(ctx context.Context, owner string, records []core.Expense) error {
	return save(s, owner, core.Expenses, records)
}

func (s *Store) LoadInterest(ctx context.Context, owner string) ([]core.InterestRecord, error) {
	return load[core.InterestRecord](s, owner, core.Interest)
}

func (s *Store) SaveInterest(ctx context.Context, owner string, records []core.InterestRecord) error {
	return save(s, owner, core.Interest, records)
}

func (s *Store) LoadEarnings(ctx context.Context, owner string) ([]core.EarningRecord, error) {
	return load[core.EarningRecord](s, owner, core.Earnings)
}

func (s *Store) SaveEarnings(ctx context.Context, owner string, records []core.EarningRecord) error {
	return save(s, owner, core.Earnings, records)
}

func (s *Store) LoadOtherBalances(ctx context.Context, owner string) ([]core.OtherBalance, error) {
	return load[core.OtherBalance](s, owner, core.OtherBalances)
}

func (s *Store) SaveOtherBalances(ctx context.Context, owner string, balances []core.OtherBalance) error {
	return save(s, owner, core.OtherBalances, balances)
}

func (s *Store) LoadProfile(ctx context.Context, owner string) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[owner]
	if !ok {
		return core.Profile{}, core.ErrNotFound
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p core.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

// LoadSnapshot mirrors SQLiteRepository.LoadSnapshot.
func (s *Store) LoadSnapshot(ctx context.Context, owner string, name core.Collection) (storage.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := storage.Snapshot{Owner: owner, Name: name}
	if e, ok := s.collections[key{owner, name}]; ok {
		snap.Payload = append([]byte(nil), e.payload...)
		snap.Revision = e.revision
		snap.UpdatedAt = e.updatedAt
	}
	return snap, nil
}

// ListSnapshots returns stored keys ordered by owner then collection.
func (s *Store) ListSnapshots(ctx context.Context) ([]storage.SnapshotKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]storage.SnapshotKey, 0, len(s.collections))
	for k := range s.collections {
		keys = append(keys, storage.SnapshotKey{Owner: k.owner, Name: k.name})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Owner != keys[j].Owner {
			return keys[i].Owner < keys[j].Owner
		}
		return keys[i].Name < keys[j].Name
	})
	return keys, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ storage.Gateway = (*Store)(nil)

func load[T any](s *Store, owner string, name core.Collection) ([]T, error) {
	s.mu.RLock()
	e := s.collections[key{owner, name}]
	s.mu.RUnlock()
	return storage.DecodeCollection[T](e.payload)
}

func save[T any](s *Store, owner string, name core.Collection, records []T) error {
	payload, err := storage.EncodeCollection(records)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{owner, name}
	e := s.collections[k]
	s.collections[k] = entry{payload: payload, revision: e.revision + 1, updatedAt: time.Now().UTC()}
	return nil
}
