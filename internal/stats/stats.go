// Package stats derives dashboard views from flat record collections. Every
// function is pure; date-dependent ones take now, whose Location defines the
// calendar day.
package stats

import (
	"cmp"
	"slices"
	"time"

	"fintrack/internal/core"
)

// ChartDays is the length of the daily chart series.
const ChartDays = 30

// DefaultRecentLimit applies when Recent is called with a non-positive limit.
const DefaultRecentLimit = 5

type DashboardStats struct {
	TotalLent         core.Money `json:"totalLent"`
	TotalBorrowed     core.Money `json:"totalBorrowed"`
	NetBalance        core.Money `json:"netBalance"`
	ActivePeopleCount int        `json:"activePeopleCount"`
}

// Dashboard sums what is still outstanding per direction and counts people
// with at least one unsettled record.
func Dashboard(records []core.LendingRecord) DashboardStats {
	var out DashboardStats
	active := make(map[string]struct{})
	for _, r := range records {
		switch r.Type {
		case core.Lending:
			out.TotalLent = out.TotalLent.Add(r.Remaining())
		case core.Borrowing:
			out.TotalBorrowed = out.TotalBorrowed.Add(r.Remaining())
		}
		if !r.Settled() {
			active[r.PersonName] = struct{}{}
		}
	}
	out.NetBalance = out.TotalLent.Sub(out.TotalBorrowed)
	out.ActivePeopleCount = len(active)
	return out
}

// View selects which side of the ledger People groups.
type View string

const (
	// Borrowers are people the owner lent to.
	Borrowers View = "borrower"
	// Lenders are people the owner borrowed from.
	Lenders View = "lender"
)

func (v View) IsValid() bool { return v == Borrowers || v == Lenders }

func (v View) recordType() core.TransactionType {
	if v == Lenders {
		return core.Borrowing
	}
	return core.Lending
}

type Person struct {
	PersonName       string               `json:"personName"`
	TotalAmount      core.Money           `json:"totalAmount"`
	AmountReturned   core.Money           `json:"amountReturned"`
	RemainingBalance core.Money           `json:"remainingBalance"`
	Transactions     []core.LendingRecord `json:"transactions"`
}

// People groups the records of the view's type by person, largest remaining
// balance first. Ties keep first-seen order.
func People(records []core.LendingRecord, view View) []Person {
	want := view.recordType()
	index := make(map[string]int)
	out := []Person{}
	for _, r := range records {
		if r.Type != want {
			continue
		}
		i, ok := index[r.PersonName]
		if !ok {
			i = len(out)
			index[r.PersonName] = i
			out = append(out, Person{PersonName: r.PersonName, Transactions: []core.LendingRecord{}})
		}
		p := &out[i]
		p.TotalAmount = p.TotalAmount.Add(r.Amount)
		p.AmountReturned = p.AmountReturned.Add(r.AmountReturned)
		p.Transactions = append(p.Transactions, r)
	}
	for i := range out {
		out[i].RemainingBalance = out[i].TotalAmount.Sub(out[i].AmountReturned)
	}
	slices.SortStableFunc(out, func(a, b Person) int {
		return cmp.Compare(b.RemainingBalance.Cents, a.RemainingBalance.Cents)
	})
	return out
}

type ChartPoint struct {
	Date      string     `json:"date"`
	Label     string     `json:"label"`
	Lending   core.Money `json:"lending"`
	Borrowing core.Money `json:"borrowing"`
}

// Chart returns exactly ChartDays daily buckets ending with now's day.
func Chart(records []core.LendingRecord, now time.Time) []ChartPoint {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	points := make([]ChartPoint, ChartDays)
	index := make(map[string]int, ChartDays)
	for i := range points {
		day := today.AddDate(0, 0, i-(ChartDays-1))
		key := day.Format(core.DayLayout)
		points[i] = ChartPoint{Date: key, Label: day.Format("Jan 2")}
		index[key] = i
	}

	for _, r := range records {
		i, ok := index[r.Date.DayKey(loc)]
		if !ok {
			continue
		}
		switch r.Type {
		case core.Lending:
			points[i].Lending = points[i].Lending.Add(r.Amount)
		case core.Borrowing:
			points[i].Borrowing = points[i].Borrowing.Add(r.Amount)
		}
	}
	return points
}

// Recent returns the newest records first.
func Recent(records []core.LendingRecord, limit int) []core.LendingRecord {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out := slices.Clone(records)
	SortByDateDesc(out, func(r core.LendingRecord) time.Time { return r.Date.Time })
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []core.LendingRecord{}
	}
	return out
}

// SortByDateDesc orders records newest first, keeping input order for equal dates.
func SortByDateDesc[T any](records []T, date func(T) time.Time) {
	slices.SortStableFunc(records, func(a, b T) int {
		return date(b).Compare(date(a))
	})
}

type CategoryTotal struct {
	Category string     `json:"category"`
	Amount   core.Money `json:"amount"`
}

type ExpenseStats struct {
	TotalExpenses     core.Money      `json:"totalExpenses"`
	CategoryBreakdown []CategoryTotal `json:"categoryBreakdown"`
	MonthlyTotal      core.Money      `json:"monthlyTotal"`
}

func Expenses(records []core.Expense, now time.Time) ExpenseStats {
	out := ExpenseStats{CategoryBreakdown: []CategoryTotal{}}
	index := make(map[string]int)
	for _, e := range records {
		out.TotalExpenses = out.TotalExpenses.Add(e.Amount)
		if e.Date.SameMonth(now) {
			out.MonthlyTotal = out.MonthlyTotal.Add(e.Amount)
		}
		i, ok := index[e.Category]
		if !ok {
			i = len(out.CategoryBreakdown)
			index[e.Category] = i
			out.CategoryBreakdown = append(out.CategoryBreakdown, CategoryTotal{Category: e.Category})
		}
		out.CategoryBreakdown[i].Amount = out.CategoryBreakdown[i].Amount.Add(e.Amount)
	}
	slices.SortStableFunc(out.CategoryBreakdown, func(a, b CategoryTotal) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
	return out
}

type InterestStats struct {
	TotalPrincipal      core.Money `json:"totalPrincipal"`
	TotalInterestEarned core.Money `json:"totalInterestEarned"`
	TotalTransactions   int        `json:"totalTransactions"`
}

func Interest(records []core.InterestRecord) InterestStats {
	var out InterestStats
	for _, r := range records {
		out.TotalPrincipal = out.TotalPrincipal.Add(r.Principal)
		out.TotalInterestEarned = out.TotalInterestEarned.Add(r.Interest)
	}
	out.TotalTransactions = len(records)
	return out
}

type EarningsStats struct {
	TotalEarned  core.Money `json:"totalEarned"`
	TotalSources int        `json:"totalSources"`
	MonthlyTotal core.Money `json:"monthlyTotal"`
}

func Earnings(records []core.EarningRecord, now time.Time) EarningsStats {
	var out EarningsStats
	sources := make(map[string]struct{})
	for _, r := range records {
		out.TotalEarned = out.TotalEarned.Add(r.Amount)
		sources[r.SourceName] = struct{}{}
		if r.Date.SameMonth(now) {
			out.MonthlyTotal = out.MonthlyTotal.Add(r.Amount)
		}
	}
	out.TotalSources = len(sources)
	return out
}

type BalanceStats struct {
	Cash    core.Money `json:"cash"`
	Bank    core.Money `json:"bank"`
	Overall core.Money `json:"overall"`
	Count   int        `json:"count"`
}

// Balances totals other balances by kind.
func Balances(balances []core.OtherBalance) BalanceStats {
	var out BalanceStats
	for _, b := range balances {
		switch b.Type {
		case core.Cash:
			out.Cash = out.Cash.Add(b.Amount)
		case core.Bank:
			out.Bank = out.Bank.Add(b.Amount)
		}
	}
	out.Overall = out.Cash.Add(out.Bank)
	out.Count = len(balances)
	return out
}
