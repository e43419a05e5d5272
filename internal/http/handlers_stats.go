package http

import (
	"net/http"
	"strings"

	"fintrack/internal/ledger"
	"fintrack/internal/stats"
	"fintrack/internal/validation"
)

func (s *Server) dashboardStats(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(stats.Dashboard(st.Transactions()))
}

func (s *Server) chartStats(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(stats.Chart(st.Transactions(), s.today()))
}

func (s *Server) expenseStats(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(stats.Expenses(st.Expenses(), s.today()))
}

func (s *Server) interestStats(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(stats.Interest(st.Interest()))
}

func (s *Server) earningStats(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(stats.Earnings(st.Earnings(), s.today()))
}

func (s *Server) balanceStats(r *http.Request, st *ledger.Store) *ResponseBuilder {
	return OK(stats.Balances(st.OtherBalances()))
}

// people groups lending records by person; ?type=lender switches to
// the people the owner borrowed from.
func (s *Server) people(r *http.Request, st *ledger.Store) *ResponseBuilder {
	view := stats.Borrowers
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		view = stats.View(v)
	}
	if !view.IsValid() {
		return FromError(validation.Field("type", "type must be one of borrower, lender"))
	}
	return OK(stats.People(st.Transactions(), view))
}
