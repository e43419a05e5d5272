package stats

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func at(t time.Time) core.Date { return core.Date{Time: t} }

func lending(person string, amount, returned int64, kind core.TransactionType, date time.Time) core.LendingRecord {
	return core.LendingRecord{
		ID:             core.NewID(core.PrefixTransaction),
		PersonName:     person,
		Amount:         core.NewMoney(amount, 0),
		AmountReturned: core.NewMoney(returned, 0),
		Type:           kind,
		Status:         core.StatusPending,
		Date:           at(date),
	}
}

var now = time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)

func TestDashboard(t *testing.T) {
	tests := []struct {
		name    string
		records []core.LendingRecord
		want    DashboardStats
	}{
		{
			name: "empty",
			want: DashboardStats{},
		},
		{
			name:    "single lending",
			records: []core.LendingRecord{lending("Alice", 1000, 0, core.Lending, now)},
			want:    DashboardStats{TotalLent: core.NewMoney(1000, 0), NetBalance: core.NewMoney(1000, 0), ActivePeopleCount: 1},
		},
		{
			name: "mixed with settled",
			records: []core.LendingRecord{
				lending("Alice", 1000, 400, core.Lending, now),
				lending("Bob", 300, 300, core.Lending, now),
				lending("Carol", 500, 100, core.Borrowing, now),
				lending("Alice", 50, 0, core.Borrowing, now),
			},
			want: DashboardStats{
				TotalLent:         core.NewMoney(600, 0),
				TotalBorrowed:     core.NewMoney(450, 0),
				NetBalance:        core.NewMoney(150, 0),
				ActivePeopleCount: 2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dashboard(tt.records); got != tt.want {
				t.Errorf("Dashboard() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPeopleGroupsCompletely(t *testing.T) {
	records := []core.LendingRecord{
		lending("Alice", 100, 0, core.Lending, now),
		lending("Bob", 500, 100, core.Lending, now),
		lending("Carol", 70, 0, core.Borrowing, now),
		lending("Alice", 300, 0, core.Lending, now),
		lending("Dan", 400, 0, core.Lending, now),
	}

	people := People(records, Borrowers)
	if len(people) != 3 {
		t.Fatalf("groups = %d, want 3", len(people))
	}

	var grouped, input int64
	seen := make(map[string]bool)
	for _, p := range people {
		grouped += p.TotalAmount.Cents
		for _, r := range p.Transactions {
			if seen[r.ID] {
				t.Fatalf("record %s duplicated", r.ID)
			}
			seen[r.ID] = true
			if r.PersonName != p.PersonName || r.Type != core.Lending {
				t.Errorf("record %s placed in wrong group", r.ID)
			}
		}
	}
	for _, r := range records {
		if r.Type == core.Lending {
			input += r.Amount.Cents
			if !seen[r.ID] {
				t.Errorf("record %s omitted", r.ID)
			}
		}
	}
	if grouped != input {
		t.Errorf("grouped total %d != input total %d", grouped, input)
	}

	// Alice 400, Bob 400 remaining, Dan 400: ties keep first-seen order.
	order := []string{people[0].PersonName, people[1].PersonName, people[2].PersonName}
	want := []string{"Alice", "Bob", "Dan"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	lenders := People(records, Lenders)
	if len(lenders) != 1 || lenders[0].PersonName != "Carol" || lenders[0].RemainingBalance.Cents != 7000 {
		t.Errorf("lenders = %+v", lenders)
	}
}

func TestPeopleSettledScenario(t *testing.T) {
	records := []core.LendingRecord{lending("Alice", 1000, 1000, core.Lending, now)}
	people := People(records, Borrowers)
	if len(people) != 1 || !people[0].RemainingBalance.IsZero() {
		t.Fatalf("people = %+v", people)
	}
	if got := Dashboard(records); got.ActivePeopleCount != 0 || !got.TotalLent.IsZero() {
		t.Errorf("settled record still active: %+v", got)
	}
}

func TestChartAlwaysHasThirtyDays(t *testing.T) {
	dense := make([]core.LendingRecord, 0, 90)
	for i := 0; i < 90; i++ {
		dense = append(dense, lending("P", 1, 0, core.Lending, now.AddDate(0, 0, -i)))
	}

	tests := []struct {
		name    string
		records []core.LendingRecord
	}{
		{"empty", nil},
		{"sparse", []core.LendingRecord{lending("A", 5, 0, core.Lending, now.AddDate(0, 0, -3))}},
		{"dense", dense},
		{"outside window", []core.LendingRecord{lending("A", 5, 0, core.Lending, now.AddDate(0, 0, -45))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := Chart(tt.records, now)
			if len(points) != ChartDays {
				t.Fatalf("len = %d, want %d", len(points), ChartDays)
			}
			if points[ChartDays-1].Date != "2025-06-15" {
				t.Errorf("last bucket = %s, want today", points[ChartDays-1].Date)
			}
			if points[0].Date != "2025-05-17" {
				t.Errorf("first bucket = %s, want 2025-05-17", points[0].Date)
			}
		})
	}
}

func TestChartBucketsByLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	localNow := time.Date(2025, 6, 15, 12, 0, 0, 0, loc)

	records := []core.LendingRecord{
		// 23:30 UTC on the 14th is already the 15th at UTC+2.
		lending("A", 10, 0, core.Lending, time.Date(2025, 6, 14, 23, 30, 0, 0, time.UTC)),
		lending("B", 4, 0, core.Borrowing, time.Date(2025, 6, 13, 9, 0, 0, 0, time.UTC)),
	}
	points := Chart(records, localNow)

	last := points[ChartDays-1]
	if last.Lending.Cents != 1000 || last.Label != "Jun 15" {
		t.Errorf("today bucket = %+v", last)
	}
	if points[ChartDays-3].Borrowing.Cents != 400 {
		t.Errorf("13th bucket = %+v", points[ChartDays-3])
	}
	if points[ChartDays-2].Lending.Cents != 0 || points[ChartDays-2].Borrowing.Cents != 0 {
		t.Errorf("empty day should be zero: %+v", points[ChartDays-2])
	}
}

func TestRecent(t *testing.T) {
	var records []core.LendingRecord
	for i := 0; i < 8; i++ {
		records = append(records, lending("P", int64(i+1), 0, core.Lending, now.AddDate(0, 0, -i*2)))
	}
	records[0], records[7] = records[7], records[0]

	got := Recent(records, 0)
	if len(got) != DefaultRecentLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultRecentLimit)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.After(got[i-1].Date.Time) {
			t.Fatalf("not sorted descending at %d", i)
		}
	}
	if got[0].Amount.Cents != 100 {
		t.Errorf("newest = %v, want the record dated today", got[0].Amount)
	}
	if n := len(Recent(records, 20)); n != 8 {
		t.Errorf("limit above length returned %d", n)
	}
	if got := Recent(nil, 3); got == nil || len(got) != 0 {
		t.Errorf("Recent(nil) = %#v", got)
	}
}

func TestExpenses(t *testing.T) {
	records := []core.Expense{
		{Title: "Rent", Amount: core.NewMoney(800, 0), Category: "Housing", Date: at(now)},
		{Title: "Lunch", Amount: core.NewMoney(12, 50), Category: "Food", Date: at(now.AddDate(0, -1, 0))},
		{Title: "Dinner", Amount: core.NewMoney(30, 0), Category: "Food", Date: at(now.AddDate(-1, 0, 0))},
		{Title: "Bus", Amount: core.NewMoney(2, 0), Category: "Transport", Date: at(now)},
	}

	got := Expenses(records, now)
	if got.TotalExpenses.Cents != 84450 {
		t.Errorf("total = %v", got.TotalExpenses)
	}
	if got.MonthlyTotal.Cents != 80200 {
		t.Errorf("monthly = %v, want 802.00", got.MonthlyTotal)
	}
	want := []CategoryTotal{
		{"Housing", core.NewMoney(800, 0)},
		{"Food", core.NewMoney(42, 50)},
		{"Transport", core.NewMoney(2, 0)},
	}
	if len(got.CategoryBreakdown) != len(want) {
		t.Fatalf("breakdown = %+v", got.CategoryBreakdown)
	}
	for i := range want {
		if got.CategoryBreakdown[i] != want[i] {
			t.Errorf("breakdown[%d] = %+v, want %+v", i, got.CategoryBreakdown[i], want[i])
		}
	}

	empty := Expenses(nil, now)
	if !empty.TotalExpenses.IsZero() || empty.CategoryBreakdown == nil {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestInterestAndEarnings(t *testing.T) {
	interest := Interest([]core.InterestRecord{
		{Principal: core.NewMoney(1000, 0), Interest: core.NewMoney(50, 0)},
		{Principal: core.NewMoney(200, 0), Interest: core.NewMoney(10, 25)},
	})
	if interest.TotalPrincipal.Cents != 120000 || interest.TotalInterestEarned.Cents != 6025 || interest.TotalTransactions != 2 {
		t.Errorf("interest = %+v", interest)
	}

	earnings := Earnings([]core.EarningRecord{
		{SourceName: "Acme", Amount: core.NewMoney(2000, 0), Date: at(now)},
		{SourceName: "Acme", Amount: core.NewMoney(500, 0), Date: at(now.AddDate(0, -2, 0))},
		{SourceName: "Freelance", Amount: core.NewMoney(300, 0), Date: at(now)},
	}, now)
	if earnings.TotalEarned.Cents != 280000 || earnings.TotalSources != 2 || earnings.MonthlyTotal.Cents != 230000 {
		t.Errorf("earnings = %+v", earnings)
	}

	if got := Earnings(nil, now); got != (EarningsStats{}) {
		t.Errorf("empty earnings = %+v", got)
	}
}

func TestBalances(t *testing.T) {
	got := Balances([]core.OtherBalance{
		{Type: core.Cash, Amount: core.NewMoney(50, 0)},
		{Type: core.Bank, Amount: core.NewMoney(1200, 0)},
		{Type: core.Cash, Amount: core.NewMoney(25, 50)},
	})
	want := BalanceStats{Cash: core.NewMoney(75, 50), Bank: core.NewMoney(1200, 0), Overall: core.NewMoney(1275, 50), Count: 3}
	if got != want {
		t.Errorf("Balances() = %+v, want %+v", got, want)
	}
}
