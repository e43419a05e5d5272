package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/stats"
)

// newestFirst sorts in place by date, newest first, and never returns nil.
func newestFirst[T any](items []T, date func(T) time.Time) []T {
	if items == nil {
		return []T{}
	}
	stats.SortByDateDesc(items, date)
	return items
}

func lendingDate(r core.LendingRecord) time.Time { return r.Date.Time }

func (s *Server) listTransactions(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(newestFirst(st.Transactions(), lendingDate))
}

func (s *Server) transactionTree(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(st.LendingTree())
}

func (s *Server) recentTransactions(r *http.Request, st *ledger.Store) *ResponseBuilder {
	limit := queryInt(r, "limit", stats.DefaultRecentLimit)
	return OK(stats.Recent(st.Transactions(), limit))
}

func (s *Server) createTransaction(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.LendingRecord
	if err := decodeJSON(r, &in); err != nil {
		return FromError(err)
	}
	rec, err := st.CreateTransaction(r.Context(), in)
	if err != nil {
		return FromError(err)
	}
	return Created(rec).Deferred(st.Pending(core.Transactions))
}

func (s *Server) updateTransaction(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var patch core.LendingPatch
	if err := decodeJSON(r, &patch); err != nil {
		return FromError(err)
	}
	rec, err := st.UpdateTransaction(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		return FromError(err)
	}
	return OK(rec).Deferred(st.Pending(core.Transactions))
}

func (s *Server) deleteTransaction(r *http.Request, st *ledger.Store) *ResponseBuilder {
	removed, err := st.DeleteTransaction(r.Context(), pathID(r, "id"))
	if err != nil {
		return FromError(err)
	}
	return Deleted("Transaction deleted successfully", removed).Deferred(st.Pending(core.Transactions))
}
