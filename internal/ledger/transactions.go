package ledger

import (
	"context"
	"slices"
	"strings"

	"fintrack/internal/core"
)

// Transactions returns the lending and borrowing records in stored order.
func (s *Store) Transactions() []core.LendingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transactions.items)
}

// LendingTree groups sub-transactions under their root records.
func (s *Store) LendingTree() []core.LendingNode {
	return core.BuildTree(s.Transactions())
}

// CreateTransaction assigns an id and defaults, then appends the record.
func (s *Store) CreateTransaction(ctx context.Context, in core.LendingRecord) (core.LendingRecord, error) {
	rec := in
	rec.ID = core.NewID(core.PrefixTransaction)
	rec.PersonName = strings.TrimSpace(rec.PersonName)
	rec.Note = strings.TrimSpace(rec.Note)
	rec.ParentID = strings.TrimSpace(rec.ParentID)
	if rec.Status == "" {
		rec.Status = core.StatusPending
	}
	if rec.Date.IsZero() {
		rec.Date = core.Date{Time: s.now()}
	}
	if err := s.check(rec); err != nil {
		return core.LendingRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.transactions
	if err := ready(ctx, s, c); err != nil {
		return core.LendingRecord{}, err
	}
	if err := checkParent(c.items, rec.ID, rec.ParentID); err != nil {
		return core.LendingRecord{}, err
	}

	commit(ctx, s, c, append(slices.Clone(c.items), rec))
	return rec, nil
}

// UpdateTransaction merges patch into the record with id.
func (s *Store) UpdateTransaction(ctx context.Context, id string, patch core.LendingPatch) (core.LendingRecord, error) {
	if err := s.check(patch); err != nil {
		return core.LendingRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.transactions
	if err := ready(ctx, s, c); err != nil {
		return core.LendingRecord{}, err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return core.LendingRecord{}, notFound("transaction", id)
	}

	rec := patch.Apply(c.items[i])
	if err := s.check(rec); err != nil {
		return core.LendingRecord{}, err
	}
	if patch.ParentID != nil {
		if err := checkParent(c.items, id, rec.ParentID); err != nil {
			return core.LendingRecord{}, err
		}
	}

	next := slices.Clone(c.items)
	next[i] = rec
	commit(ctx, s, c, next)
	return rec, nil
}

// DeleteTransaction removes the record and its sub-transactions, returning
// how many records were removed.
func (s *Store) DeleteTransaction(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.transactions
	if err := ready(ctx, s, c); err != nil {
		return 0, err
	}
	if indexOf(c.items, id) < 0 {
		return 0, notFound("transaction", id)
	}

	next, removed := removeTree(c.items, id)
	commit(ctx, s, c, next)
	return removed, nil
}
