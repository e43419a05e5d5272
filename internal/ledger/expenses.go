package ledger

import (
	"context"
	"slices"
	"strings"

	"fintrack/internal/core"
)

func (s *Store) Expenses() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.expenses.items)
}

func (s *Store) ExpenseTree() []core.ExpenseNode {
	return core.BuildTree(s.Expenses())
}

func (s *Store) CreateExpense(ctx context.Context, in core.Expense) (core.Expense, error) {
	e := in
	e.ID = core.NewID(core.PrefixExpense)
	e.Title = strings.TrimSpace(e.Title)
	e.Category = strings.TrimSpace(e.Category)
	e.Note = strings.TrimSpace(e.Note)
	e.PaymentMethod = strings.TrimSpace(e.PaymentMethod)
	e.ParentID = strings.TrimSpace(e.ParentID)
	if e.Date.IsZero() {
		e.Date = core.Date{Time: s.now()}
	}
	if err := s.check(e); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.expenses
	if err := ready(ctx, s, c); err != nil {
		return core.Expense{}, err
	}
	if err := checkParent(c.items, e.ID, e.ParentID); err != nil {
		return core.Expense{}, err
	}

	commit(ctx, s, c, append(slices.Clone(c.items), e))
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	if err := s.check(patch); err != nil {
		return core.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.expenses
	if err := ready(ctx, s, c); err != nil {
		return core.Expense{}, err
	}
	i := indexOf(c.items, id)
	if i < 0 {
		return core.Expense{}, notFound("expense", id)
	}

	e := patch.Apply(c.items[i])
	if err := s.check(e); err != nil {
		return core.Expense{}, err
	}
	if patch.ParentID != nil {
		if err := checkParent(c.items, id, e.ParentID); err != nil {
			return core.Expense{}, err
		}
	}

	next := slices.Clone(c.items)
	next[i] = e
	commit(ctx, s, c, next)
	return e, nil
}

// DeleteExpense removes the expense and its sub-expenses.
func (s *Store) DeleteExpense(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.expenses
	if err := ready(ctx, s, c); err != nil {
		return 0, err
	}
	if indexOf(c.items, id) < 0 {
		return 0, notFound("expense", id)
	}

	next, removed := removeTree(c.items, id)
	commit(ctx, s, c, next)
	return removed, nil
}
