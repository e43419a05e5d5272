package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func (s *Server) listBalances(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(newestFirst(st.OtherBalances(), func(b core.OtherBalance) time.Time { return b.UpdatedAt }))
}

func (s *Server) createBalance(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.OtherBalance
	if err := decodeJSON(r, &in); err != nil {
		return FromError(err)
	}
	b, err := st.CreateBalance(r.Context(), in)
	if err != nil {
		return FromError(err)
	}
	return Created(b).Deferred(st.Pending(core.OtherBalances))
}

func (s *Server) updateBalance(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var patch core.BalancePatch
	if err := decodeJSON(r, &patch); err != nil {
		return FromError(err)
	}
	b, err := st.UpdateBalance(r.Context(), pathID(r, "id"), patch)
	if err != nil {
		return FromError(err)
	}
	return OK(b).Deferred(st.Pending(core.OtherBalances))
}

func (s *Server) deleteBalance(r *http.Request, st *ledger.Store) *ResponseBuilder {
	if err := st.DeleteBalance(r.Context(), pathID(r, "id")); err != nil {
		return FromError(err)
	}
	return Deleted("Balance deleted successfully", 1).Deferred(st.Pending(core.OtherBalances))
}

// Sub-transaction routes answer with the whole balance so clients can
// refresh the recomputed amount.

func (s *Server) addSubTransaction(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var in core.SubTransaction
	if err := decodeJSON(r, &in); err != nil {
		return FromError(err)
	}
	b, err := st.AddSubTransaction(r.Context(), pathID(r, "id"), in)
	if err != nil {
		return FromError(err)
	}
	return Created(b).Deferred(st.Pending(core.OtherBalances))
}

func (s *Server) updateSubTransaction(r *http.Request, st *ledger.Store) *ResponseBuilder {
	var patch core.SubTransactionPatch
	if err := decodeJSON(r, &patch); err != nil {
		return FromError(err)
	}
	b, err := st.UpdateSubTransaction(r.Context(), pathID(r, "id"), pathID(r, "txId"), patch)
	if err != nil {
		return FromError(err)
	}
	return OK(b).Deferred(st.Pending(core.OtherBalances))
}

func (s *Server) deleteSubTransaction(r *http.Request, st *ledger.Store) *ResponseBuilder {
	b, err := st.DeleteSubTransaction(r.Context(), pathID(r, "id"), pathID(r, "txId"))
	if err != nil {
		return FromError(err)
	}
	return OK(b).Deferred(st.Pending(core.OtherBalances))
}
