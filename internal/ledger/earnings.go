package ledger

import (
	"context"
	"slices"
	"strings"

	"fintrack/internal/core"
)

func (s *Store) Earnings() []core.EarningRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.earnings.items)
}

func (s *Store) CreateEarning(ctx context.Context, in core.EarningRecord) (core.EarningRecord, error) {
	r := in
	r.ID = core.NewID(core.PrefixEarning)
	r.SourceName = strings.TrimSpace(r.SourceName)
	r.EarningName = strings.TrimSpace(r.EarningName)
	r.Remarks = strings.TrimSpace(r.Remarks)
	if r.Date.IsZero() {
		r.Date = core.Date{Time: s.now()}
	}
	if err := s.check(r); err != nil {
		return core.EarningRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.earnings
	if err := ready(ctx, s, c); err != nil {
		return core.EarningRecord{}, err
	}

	commit(ctx, s, c, append(slices.Clone(c.items), r))
	return r, nil
}

func (s *Store) UpdateEarning(ctx context.Context, id string, patch core.EarningPatch) (core.EarningRecord, error) {
	if err := s.check(patch); err != nil {
		return core.EarningRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.earnings
	if err := ready(ctx, s, c); err != nil {
		return core.EarningRecord{}, err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return core.EarningRecord{}, notFound("earning", id)
	}

	r := patch.Apply(c.items[i])
	if err := s.check(r); err != nil {
		return core.EarningRecord{}, err
	}

	next := slices.Clone(c.items)
	next[i] = r
	commit(ctx, s, c, next)
	return r, nil
}

func (s *Store) DeleteEarning(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.earnings
	if err := ready(ctx, s, c); err != nil {
		return err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return notFound("earning", id)
	}

	commit(ctx, s, c, slices.Delete(slices.Clone(c.items), i, i+1))
	return nil
}
