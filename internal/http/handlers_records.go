package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (s *Server) listExpenses(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(newestFirst(st.Expenses(), func(e core.Expense) time.Time { return e.Date.Time }))
}

func (s *Server) expenseTree(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(st.ExpenseTree())
}

func (s *Server) createExpense(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.Expense
	if err := decodeJSON(r, &in); err != nil {
		return FromError(err)
	}
	e, err := st.CreateExpense(r.Context(), in)
	if err != nil {
		return FromError(err)
	}
	return Created(e).Deferred(st.Pending(core.Expenses))
}

func (s *Server) updateExpense(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var patch core.ExpensePatch
	if err := decodeJSON(r, &patch); err != nil {
		return FromError(err)
	}
	e, err := st.UpdateExpense(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		return FromError(err)
	}
	return OK(e).Deferred(st.Pending(core.Expenses))
}

func (s *Server) deleteExpense(r *http.Request, st *ledger.Store) *ResponseBuilder {
	removed, err := st.DeleteExpense(r.Context(), pathID(r, "id"))
	if err != nil {
		return FromError(err)
	}
	return Deleted("Expense deleted successfully", removed).Deferred(st.Pending(core.Expenses))
}

func (s *Server) listInterest(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(newestFirst(st.Interest(), func(i core.InterestRecord) time.Time { return i.Date.Time }))
}

func (s *Server) createInterest(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.InterestRecord
	if err := decodeJSON(r, &in); err != nil {
		return FromError(err)
	}
	rec, err := st.CreateInterest(r.Context(), in)
	if err != nil {
		return FromError(err)
	}
	return Created(rec).Deferred(st.Pending(core.Interest))
}

func (s *Server) updateInterest(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var patch core.InterestPatch
	if err := decodeJSON(r, &patch); err != nil {
		return FromError(err)
	}
	rec, err := st.UpdateInterest(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		return FromError(err)
	}
	return OK(rec).Deferred(st.Pending(core.Interest))
}

func (s *Server) deleteInterest(r *http.Request, st *ledger.Store) *ResponseBuilder {
	if err := st.DeleteInterest(r.Context(), pathID(r, "id")); err != nil {
		return FromError(err)
	}
	return Deleted("Interest transaction deleted successfully", 1).Deferred(st.Pending(core.Interest))
}

func (s *Server) listEarnings(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(newestFirst(st.Earnings(), func(e core.EarningRecord) time.Time { return e.Date.Time }))
}

func (s *Server) createEarning(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.EarningRecord
	if err := decodeJSON(r, &in); err != nil {
		return FromError(err)
	}
	rec, err := st.CreateEarning(r.Context(), in)
	if err != nil {
		return FromError(err)
	}
	return Created(rec).Deferred(st.Pending(core.Earnings))
}

func (s *Server) updateEarning(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var patch core.EarningPatch
	if err := decodeJSON(r, &patch); err != nil {
		return FromError(err)
	}
	rec, err := st.UpdateEarning(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		return FromError(err)
	}
	return OK(rec).Deferred(st.Pending(core.Earnings))
}

func (s *Server) deleteEarning(r *http.Request, st *ledger.Store) *ResponseBuilder {
	if err := st.DeleteEarning(r.Context(), pathID(r, "id")); err != nil {
		return FromError(err)
	}
	return Deleted("Earning deleted successfully", 1).Deferred(st.Pending(core.Earnings))
}
