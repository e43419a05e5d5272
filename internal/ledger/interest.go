package ledger

import (
	"context"
	"slices"
	"strings"

	"fintrack/internal/core"
)

func (s *Store) Interest() []core.InterestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.interest.items)
}

// CreateInterest ignores any supplied total; it is always principal plus interest.
func (s *Store) CreateInterest(ctx context.Context, in core.InterestRecord) (core.InterestRecord, error) {
	r := in
	r.ID = core.NewID(core.PrefixInterest)
	r.PersonName = strings.TrimSpace(r.PersonName)
	r.Remarks = strings.TrimSpace(r.Remarks)
	if r.Date.IsZero() {
		r.Date = core.Date{Time: s.now()}
	}
	r.Derive()
	if err := s.check(r); err != nil {
		return core.InterestRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.interest
	if err := ready(ctx, s, c); err != nil {
		return core.InterestRecord{}, err
	}

	commit(ctx, s, c, append(slices.Clone(c.items), r))
	return r, nil
}

func (s *Store) UpdateInterest(ctx context.Context, id string, patch core.InterestPatch) (core.InterestRecord, error) {
	if err := s.check(patch); err != nil {
		return core.InterestRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.interest
	if err := ready(ctx, s, c); err != nil {
		return core.InterestRecord{}, err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return core.InterestRecord{}, notFound("interest record", id)
	}

	r := patch.Apply(c.items[i])
	if err := s.check(r); err != nil {
		return core.InterestRecord{}, err
	}

	next := slices.Clone(c.items)
	next[i] = r
	commit(ctx, s, c, next)
	return r, nil
}

func (s *Store) DeleteInterest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.interest
	if err := ready(ctx, s, c); err != nil {
		return err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return notFound("interest record", id)
	}

	commit(ctx, s, c, slices.Delete(slices.Clone(c.items), i, i+1))
	return nil
}
