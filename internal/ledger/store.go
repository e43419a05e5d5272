// Package ledger holds one owner's records in memory, applies mutations and
// persists whole collections through a storage.Gateway.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/validation"
)

// Notifier is told about every successfully persisted collection.
type Notifier interface {
	CollectionSaved(ctx context.Context, owner string, collection core.Collection)
}

// Retrier re-runs flush until it succeeds. Enqueueing the same key again
// replaces the pending flush.
type Retrier interface {
	Enqueue(key string, flush func(ctx context.Context) error)
}

// Observer receives load and save outcomes.
type Observer interface {
	ObserveLoad(collection string, err error)
	ObserveSave(collection string, err error, deferred bool)
}

type Option func(*Store)

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

func WithRetrier(r Retrier) Option { return func(s *Store) { s.retrier = r } }

func WithObserver(o Observer) Option { return func(s *Store) { s.observer = o } }

func WithValidator(v *validation.Validator) Option { return func(s *Store) { s.validate = v } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

// collection is one snapshot kept in memory. When loaded is false the last
// load failed: items is empty and mutations must not overwrite storage.
type collection[T any] struct {
	name    core.Collection
	items   []T
	loaded  bool
	loadErr error
	dirty   bool
	load    func(ctx context.Context, owner string) ([]T, error)
	save    func(ctx context.Context, owner string, items []T) error
}

// Store is the Record Store of a single owner. It is safe for concurrent use;
// mutations are serialized and each one saves its collection before returning.
type Store struct {
	owner string
	gw    storage.Gateway

	mu           sync.Mutex
	transactions collection[core.LendingRecord]
	expenses     collection[core.Expense]
	interest     collection[core.InterestRecord]
	earnings     collection[core.EarningRecord]
	balances     collection[core.OtherBalance]
	profile      *core.Profile

	validate *validation.Validator
	notifier Notifier
	retrier  Retrier
	observer Observer
	now      func() time.Time
	logger   *log.Logger
}

func NewStore(owner string, gw storage.Gateway, opts ...Option) *Store {
	s := &Store{
		owner: owner,
		gw:    gw,
		transactions: collection[core.LendingRecord]{
			name: core.Transactions, items: []core.LendingRecord{},
			load: gw.LoadTransactions, save: gw.SaveTransactions,
		},
		expenses: collection[core.Expense]{
			name: core.Expenses, items: []core.Expense{},
			load: gw.LoadExpenses, save: gw.SaveExpenses,
		},
		interest: collection[core.InterestRecord]{
			name: core.Interest, items: []core.InterestRecord{},
			load: gw.LoadInterest, save: gw.SaveInterest,
		},
		earnings: collection[core.EarningRecord]{
			name: core.Earnings, items: []core.EarningRecord{},
			load: gw.LoadEarnings, save: gw.SaveEarnings,
		},
		balances: collection[core.OtherBalance]{
			name: core.OtherBalances, items: []core.OtherBalance{},
			load: gw.LoadOtherBalances, save: gw.SaveOtherBalances,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validation.New()
	}
	if s.logger == nil {
		s.logger = log.Default(log.ComponentLedger)
	}
	s.logger = s.logger.With(log.FieldOwnerID, owner)
	return s
}

func (s *Store) Owner() string { return s.owner }

// Load fetches all five collections concurrently and waits for every one of
// them. A collection whose load fails stays empty and degraded; the first
// such error is returned while the rest of the store remains usable.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var g errgroup.Group
	apply := []func(){
		startLoad(ctx, s, &g, &s.transactions),
		startLoad(ctx, s, &g, &s.expenses),
		startLoad(ctx, s, &g, &s.interest),
		startLoad(ctx, s, &g, &s.earnings),
		startLoad(ctx, s, &g, &s.balances),
	}

	var profile *core.Profile
	g.Go(func() error {
		p, err := s.gw.LoadProfile(ctx, s.owner)
		if err == nil {
			profile = &p
		} else if !errors.Is(err, core.ErrNotFound) {
			s.logger.WarnContext(ctx, "Profile load failed", log.FieldError, err)
		}
		return nil
	})

	err := g.Wait()
	for _, fn := range apply {
		fn()
	}
	if profile != nil {
		s.profile = profile
	}
	return err
}

func startLoad[T any](ctx context.Context, s *Store, g *errgroup.Group, c *collection[T]) func() {
	var (
		items []T
		err   error
	)
	g.Go(func() error {
		items, err = c.load(ctx, s.owner)
		if err != nil {
			return fmt.Errorf("load %s: %w", c.name, err)
		}
		return nil
	})
	return func() {
		if s.observer != nil {
			s.observer.ObserveLoad(string(c.name), err)
		}
		if err != nil {
			c.loadErr = err
			s.logger.WarnContext(ctx, "Collection load failed", log.NewFields().
				WithCollection(s.owner, string(c.name)).
				WithOperation(log.OpLoad).
				With(log.FieldError, err).
				ToSlice()...)
			return
		}
		if c.dirty {
			// Unsaved local edits win over the stored snapshot.
			return
		}
		c.items = items
		c.loaded = true
		c.loadErr = nil
	}
}

// ready retries the load of a degraded collection. It must be called with s.mu held.
func ready[T any](ctx context.Context, s *Store, c *collection[T]) error {
	if c.loaded || c.dirty {
		return nil
	}
	items, err := c.load(ctx, s.owner)
	if s.observer != nil {
		s.observer.ObserveLoad(string(c.name), err)
	}
	if err != nil {
		c.loadErr = err
		return fmt.Errorf("%s: %w: %w", c.name, core.ErrUnavailable, err)
	}
	c.items = items
	c.loaded = true
	c.loadErr = nil
	return nil
}

// commit installs next as the collection contents and saves it. A failed save
// keeps next in memory, marks the collection dirty and hands it to the retrier.
// It must be called with s.mu held.
func commit[T any](ctx context.Context, s *Store, c *collection[T], next []T) {
	c.items = next
	err := c.save(ctx, s.owner, next)
	deferred := err != nil && s.retrier != nil
	if s.observer != nil {
		s.observer.ObserveSave(string(c.name), err, deferred)
	}
	if err != nil {
		c.dirty = true
		s.logger.WarnContext(ctx, "Save deferred",
			log.FieldCollection, c.name,
			log.FieldRecords, len(next),
			log.FieldError, err)
		if s.retrier != nil {
			s.retrier.Enqueue(s.owner+"/"+string(c.name), func(ctx context.Context) error {
				return flush(ctx, s, c)
			})
		}
		return
	}
	c.dirty = false
	s.saved(ctx, c.name, len(next))
}

func flush[T any](ctx context.Context, s *Store, c *collection[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flushLocked(ctx, s, c)
}

func flushLocked[T any](ctx context.Context, s *Store, c *collection[T]) error {
	if !c.dirty {
		return nil
	}
	err := c.save(ctx, s.owner, c.items)
	if s.observer != nil {
		s.observer.ObserveSave(string(c.name), err, err != nil)
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", c.name, err)
	}
	c.dirty = false
	c.loaded = true
	s.saved(ctx, c.name, len(c.items))
	return nil
}

func (s *Store) saved(ctx context.Context, name core.Collection, records int) {
	s.logger.DebugContext(ctx, "Collection saved", log.NewFields().
		WithCollection(s.owner, string(name)).
		WithOperation(log.OpSave).
		With(log.FieldRecords, records).
		ToSlice()...)
	if s.notifier != nil {
		s.notifier.CollectionSaved(ctx, s.owner, name)
	}
}

// Flush saves every dirty collection now and reports what still failed.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(
		flushLocked(ctx, s, &s.transactions),
		flushLocked(ctx, s, &s.expenses),
		flushLocked(ctx, s, &s.interest),
		flushLocked(ctx, s, &s.earnings),
		flushLocked(ctx, s, &s.balances),
	)
}

// CollectionStatus describes one in-memory collection.
type CollectionStatus struct {
	Name      core.Collection `json:"name"`
	Records   int             `json:"records"`
	Degraded  bool            `json:"degraded"`
	Dirty     bool            `json:"dirty"`
	LoadError string          `json:"loadError,omitempty"`
}

// Status reports degraded (load failed) and dirty (save pending) collections.
type Status struct {
	OwnerID     string             `json:"ownerId"`
	Degraded    bool               `json:"degraded"`
	Dirty       bool               `json:"dirty"`
	Collections []CollectionStatus `json:"collections"`
}

func statusOf[T any](c *collection[T]) CollectionStatus {
	st := CollectionStatus{
		Name:     c.name,
		Records:  len(c.items),
		Degraded: !c.loaded && !c.dirty,
		Dirty:    c.dirty,
	}
	if c.loadErr != nil && st.Degraded {
		st.LoadError = c.loadErr.Error()
	}
	return st
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		OwnerID: s.owner,
		Collections: []CollectionStatus{
			statusOf(&s.transactions),
			statusOf(&s.expenses),
			statusOf(&s.interest),
			statusOf(&s.earnings),
			statusOf(&s.balances),
		},
	}
	for _, c := range st.Collections {
		st.Degraded = st.Degraded || c.Degraded
		st.Dirty = st.Dirty || c.Dirty
	}
	return st
}

// Dirty reports whether any collection has an unsaved change.
func (s *Store) Dirty() bool {
	return s.Status().Dirty
}

// Pending reports whether the named collection has an unsaved change.
func (s *Store) Pending(name core.Collection) bool {
	for _, c := range s.Status().Collections {
		if c.Name == name {
			return c.Dirty
		}
	}
	return false
}

// Snapshot is a consistent copy of every collection, for aggregation.
type Snapshot struct {
	Transactions  []core.LendingRecord
	Expenses      []core.Expense
	Interest      []core.InterestRecord
	Earnings      []core.EarningRecord
	OtherBalances []core.OtherBalance
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Transactions:  slices.Clone(s.transactions.items),
		Expenses:      slices.Clone(s.expenses.items),
		Interest:      slices.Clone(s.interest.items),
		Earnings:      slices.Clone(s.earnings.items),
		OtherBalances: cloneBalances(s.balances.items),
	}
}

func (s *Store) check(v any) error {
	return s.validate.Struct(v)
}

func indexOf[T core.Identified](items []T, id string) int {
	return slices.IndexFunc(items, func(r T) bool { return r.RecordID() == id })
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, core.ErrNotFound)
}

// checkParent enforces the two-level tree: parentID must name an existing root
// record other than id, and a record that already has children stays a root.
func checkParent[T core.Nestable](items []T, id, parentID string) error {
	if parentID == "" {
		return nil
	}
	if parentID == id {
		return parentError("a record cannot be its own parent")
	}
	i := indexOf(items, parentID)
	if i < 0 {
		return parentError(fmt.Sprintf("parent %s does not exist", parentID))
	}
	if items[i].ParentRef() != "" {
		return parentError(fmt.Sprintf("parent %s is itself a sub-record", parentID))
	}
	if id != "" && len(core.ChildrenOf(items, id)) > 0 {
		return parentError("a record with sub-records cannot become a sub-record")
	}
	return nil
}

func parentError(msg string) error {
	return fmt.Errorf("%w: %w", core.ErrInvalidParent, validation.Field("parentId", msg))
}

// removeTree drops id and its direct children.
func removeTree[T core.Nestable](items []T, id string) ([]T, int) {
	next := make([]T, 0, len(items))
	for _, r := range items {
		if r.RecordID() == id || r.ParentRef() == id {
			continue
		}
		next = append(next, r)
	}
	return next, len(items) - len(next)
}

func cloneBalances(in []core.OtherBalance) []core.OtherBalance {
	out := make([]core.OtherBalance, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
