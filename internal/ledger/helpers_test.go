package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

var errDown = errors.New("backend down")

// flakyGateway fails loads or saves of chosen collections.
type flakyGateway struct {
	*memory.Store

	mu        sync.Mutex
	failLoad  map[core.Collection]bool
	failSave  map[core.Collection]bool
	saveCalls map[core.Collection]int
}

func newFlakyGateway() *flakyGateway {
	return &flakyGateway{
		Store:     memory.NewStore(),
		failLoad:  make(map[core.Collection]bool),
		failSave:  make(map[core.Collection]bool),
		saveCalls: make(map[core.Collection]int),
	}
}

func (g *flakyGateway) setLoadFailure(c core.Collection, fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failLoad[c] = fail
}

func (g *flakyGateway) setSaveFailure(c core.Collection, fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failSave[c] = fail
}

func (g *flakyGateway) saves(c core.Collection) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saveCalls[c]
}

func (g *flakyGateway) loadErr(c core.Collection) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failLoad[c] {
		return errDown
	}
	return nil
}

func (g *flakyGateway) saveErr(c core.Collection) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveCalls[c]++
	if g.failSave[c] {
		return errDown
	}
	return nil
}

func (g *flakyGateway) LoadTransactions(ctx context.Context, owner string) ([]core.LendingRecord, error) {
	if err := g.loadErr(core.Transactions); err != nil {
		return nil, err
	}
	return g.Store.LoadTransactions(ctx, owner)
}

func (g *flakyGateway) SaveTransactions(ctx context.Context, owner string, records []core.LendingRecord) error {
	if err := g.saveErr(core.Transactions); err != nil {
		return err
	}
	return g.Store.SaveTransactions(ctx, owner, records)
}

func (g *flakyGateway) LoadOtherBalances(ctx context.Context, owner string) ([]core.OtherBalance, error) {
	if err := g.loadErr(core.OtherBalances); err != nil {
		return nil, err
	}
	return g.Store.LoadOtherBalances(ctx, owner)
}

func (g *flakyGateway) SaveOtherBalances(ctx context.Context, owner string, balances []core.OtherBalance) error {
	if err := g.saveErr(core.OtherBalances); err != nil {
		return err
	}
	return g.Store.SaveOtherBalances(ctx, owner, balances)
}

// recordingRetrier keeps queued flushes for the test to run.
type recordingRetrier struct {
	mu      sync.Mutex
	pending map[string]func(context.Context) error
}

func (r *recordingRetrier) Enqueue(key string, flush func(context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		r.pending = make(map[string]func(context.Context) error)
	}
	r.pending[key] = flush
}

func (r *recordingRetrier) run(t *testing.T, key string) error {
	t.Helper()
	r.mu.Lock()
	flush, ok := r.pending[key]
	r.mu.Unlock()
	if !ok {
		t.Fatalf("no flush queued for %s", key)
	}
	return flush(context.Background())
}

type recordingNotifier struct {
	mu    sync.Mutex
	saved []core.Collection
}

func (n *recordingNotifier) CollectionSaved(_ context.Context, _ string, c core.Collection) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.saved = append(n.saved, c)
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, gw *flakyGateway, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(log.Discard()),
	}, opts...)
	s := NewStore("alice", gw, opts...)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func money(units int64) core.Money { return core.NewMoney(units, 0) }
