package ledger

import (
	"context"
	"slices"
	"strings"

	"fintrack/internal/core"
)

func (s *Store) OtherBalances() []core.OtherBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneBalances(s.balances.items)
}

// CreateBalance opens a balance whose sub-ledger starts with a single
// "Opening Balance" credit of the requested amount.
func (s *Store) CreateBalance(ctx context.Context, in core.OtherBalance) (core.OtherBalance, error) {
	now := s.now()
	b := core.OtherBalance{
		ID:     core.NewID(core.PrefixBalance),
		Type:   in.Type,
		Label:  strings.TrimSpace(in.Label),
		Amount: in.Amount,
	}
	if err := s.check(b); err != nil {
		return core.OtherBalance{}, err
	}
	b.Transactions = []core.SubTransaction{{
		ID:     core.NewID(core.PrefixSubTransaction),
		Type:   core.Credit,
		Note:   core.OpeningBalanceNote,
		Amount: in.Amount,
		Date:   core.Date{Time: now},
	}}
	b.Recompute(now)

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.balances
	if err := ready(ctx, s, c); err != nil {
		return core.OtherBalance{}, err
	}

	commit(ctx, s, c, append(cloneBalances(c.items), b))
	return b.Clone(), nil
}

// UpdateBalance changes type or label. The amount always follows the sub-ledger.
func (s *Store) UpdateBalance(ctx context.Context, id string, patch core.BalancePatch) (core.OtherBalance, error) {
	if err := s.check(patch); err != nil {
		return core.OtherBalance{}, err
	}
	return s.mutateBalance(ctx, id, func(b *core.OtherBalance) error {
		*b = patch.Apply(*b)
		// An overdrawn balance stays editable.
		return s.validate.StructExcept(*b, "Amount")
	})
}

func (s *Store) DeleteBalance(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.balances
	if err := ready(ctx, s, c); err != nil {
		return err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return notFound("balance", id)
	}

	commit(ctx, s, c, slices.Delete(cloneBalances(c.items), i, i+1))
	return nil
}

// AddSubTransaction appends a credit or debit to the balance's sub-ledger.
func (s *Store) AddSubTransaction(ctx context.Context, balanceID string, in core.SubTransaction) (core.OtherBalance, error) {
	t := in
	t.ID = core.NewID(core.PrefixSubTransaction)
	t.Note = strings.TrimSpace(t.Note)
	if t.Date.IsZero() {
		t.Date = core.Date{Time: s.now()}
	}
	if err := s.check(t); err != nil {
		return core.OtherBalance{}, err
	}
	return s.mutateBalance(ctx, balanceID, func(b *core.OtherBalance) error {
		b.Transactions = append(b.Transactions, t)
		return nil
	})
}

func (s *Store) UpdateSubTransaction(ctx context.Context, balanceID, txID string, patch core.SubTransactionPatch) (core.OtherBalance, error) {
	if err := s.check(patch); err != nil {
		return core.OtherBalance{}, err
	}
	return s.mutateBalance(ctx, balanceID, func(b *core.OtherBalance) error {
		i := indexOf(b.Transactions, txID)
		if i < 0 {
			return notFound("sub-transaction", txID)
		}
		t := patch.Apply(b.Transactions[i])
		if err := s.check(t); err != nil {
			return err
		}
		b.Transactions[i] = t
		return nil
	})
}

func (s *Store) DeleteSubTransaction(ctx context.Context, balanceID, txID string) (core.OtherBalance, error) {
	return s.mutateBalance(ctx, balanceID, func(b *core.OtherBalance) error {
		i := indexOf(b.Transactions, txID)
		if i < 0 {
			return notFound("sub-transaction", txID)
		}
		b.Transactions = slices.Delete(b.Transactions, i, i+1)
		return nil
	})
}

// mutateBalance applies fn to a copy of the balance, recomputes its amount
// from the sub-ledger and commits. Memory is untouched when fn fails.
func (s *Store) mutateBalance(ctx context.Context, id string, fn func(*core.OtherBalance) error) (core.OtherBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.balances
	if err := ready(ctx, s, c); err != nil {
		return core.OtherBalance{}, err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return core.OtherBalance{}, notFound("balance", id)
	}

	b := c.items[i].Clone()
	if err := fn(&b); err != nil {
		return core.OtherBalance{}, err
	}
	b.Recompute(s.now())

	next := cloneBalances(c.items)
	next[i] = b
	commit(ctx, s, c, next)
	return b.Clone(), nil
}
