package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/stats"
	"fintrack/internal/storage/memory"
)

var errDown = errors.New("backend down")

// failingGateway fails expense saves or interest loads on demand.
type failingGateway struct {
	*memory.Store

	mu               sync.Mutex
	failExpenseSave  bool
	failInterestLoad bool
}

func (g *failingGateway) SaveExpenses(ctx context.Context, owner string, records []core.Expense) error {
	g.mu.Lock()
	fail := g.failExpenseSave
	g.mu.Unlock()
	if fail {
		return errDown
	}
	return g.Store.SaveExpenses(ctx, owner, records)
}

func (g *failingGateway) LoadInterest(ctx context.Context, owner string) ([]core.InterestRecord, error) {
	g.mu.Lock()
	fail := g.failInterestLoad
	g.mu.Unlock()
	if fail {
		return nil, errDown
	}
	return g.Store.LoadInterest(ctx, owner)
}

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, gw *failingGateway, mutate ...func(*Options)) *Server {
	t.Helper()
	sessions := ledger.NewSessions(gw, ledger.SessionsConfig{
		Size:   8,
		TTL:    time.Hour,
		Logger: log.Discard(),
	}, ledger.WithLogger(log.Discard()), ledger.WithClock(func() time.Time { return fixedNow }))

	opts := Options{
		Addr:        ":0",
		Sessions:    sessions,
		Pinger:      gw,
		CORSOrigins: []string{"http://localhost:5173"},
		Location:    time.UTC,
		Clock:       func() time.Time { return fixedNow },
		Logger:      log.Discard(),
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	srv := NewServer(opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func newGateway() *failingGateway {
	return &failingGateway{Store: memory.NewStore()}
}

// do sends a request as owner; an empty owner sends no identity.
func do(t *testing.T, srv *Server, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, newGateway())

	rr := do(t, srv, http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("/health status=%d", rr.Code)
	}
	body := decode[healthBody](t, rr)
	if body.Status != "OK" || body.Database != databaseConnected {
		t.Errorf("health body = %+v", body)
	}
	if !body.Timestamp.Equal(fixedNow) {
		t.Errorf("timestamp = %v, want %v", body.Timestamp, fixedNow)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("security headers missing, X-Content-Type-Options=%q", got)
	}
}

func TestAPIRequiresOwner(t *testing.T) {
	srv := newTestServer(t, newGateway())

	rr := do(t, srv, http.MethodGet, "/api/transactions", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Error == "" {
		t.Error("401 should carry an error message")
	}
}

func TestUnknownAPIRoute(t *testing.T) {
	srv := newTestServer(t, newGateway())
	rr := do(t, srv, http.MethodGet, "/api/nope", "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, newGateway())

	rr := do(t, srv, http.MethodPost, "/api/transactions", "alice",
		`{"personName":"Bob","amount":100,"type":"lending","date":"2026-03-01"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	parent := decode[core.LendingRecord](t, rr)
	if !strings.HasPrefix(parent.ID, core.PrefixTransaction) {
		t.Errorf("id %q lacks prefix", parent.ID)
	}
	if parent.Status != core.StatusPending {
		t.Errorf("status = %q, want pending", parent.Status)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions", "alice",
		`{"personName":"Bob","amount":"25.50","type":"lending","date":"2026-03-10","parentId":"`+parent.ID+`"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create child status=%d body=%s", rr.Code, rr.Body.String())
	}
	child := decode[core.LendingRecord](t, rr)

	list := decode[[]core.LendingRecord](t, do(t, srv, http.MethodGet, "/api/transactions", "alice", ""))
	if len(list) != 2 || list[0].ID != child.ID {
		t.Fatalf("list should be newest first, got %+v", list)
	}

	tree := decode[[]core.LendingNode](t, do(t, srv, http.MethodGet, "/api/transactions/tree", "alice", ""))
	if len(tree) != 1 || len(tree[0].Children) != 1 || tree[0].Children[0].ID != child.ID {
		t.Fatalf("tree = %+v", tree)
	}

	recent := decode[[]core.LendingRecord](t, do(t, srv, http.MethodGet, "/api/transactions/recent?limit=1", "alice", ""))
	if len(recent) != 1 || recent[0].ID != child.ID {
		t.Fatalf("recent = %+v", recent)
	}

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+parent.ID, "alice", `{"amountReturned":40,"status":"partial"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decode[core.LendingRecord](t, rr)
	if updated.AmountReturned.Cents != 4000 || updated.Status != core.StatusPartial || updated.PersonName != "Bob" {
		t.Errorf("update = %+v", updated)
	}

	// Other owners see nothing.
	other := decode[[]core.LendingRecord](t, do(t, srv, http.MethodGet, "/api/transactions", "carol", ""))
	if len(other) != 0 {
		t.Errorf("carol sees %d records", len(other))
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+parent.ID, "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if msg := decode[MessageBody](t, rr); msg.Removed != 2 || msg.Message == "" {
		t.Errorf("delete body = %+v, want cascade of 2", msg)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions", "alice", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty list should encode as [], got %s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+parent.ID, "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", rr.Code)
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, newGateway())

	tests := []struct {
		name      string
		path      string
		body      string
		wantCode  int
		wantField string
	}{
		{"malformed json", "/api/transactions", `{"personName":`, http.StatusBadRequest, ""},
		{"empty body", "/api/expenses", "", http.StatusBadRequest, ""},
		{"missing person", "/api/transactions", `{"amount":10,"type":"lending"}`, http.StatusUnprocessableEntity, "personName"},
		{"bad amount", "/api/transactions", `{"personName":"Bob","amount":"lots","type":"lending"}`, http.StatusUnprocessableEntity, ""},
		{"bad date", "/api/earnings", `{"sourceName":"Job","earningName":"Salary","amount":10,"date":"yesterday"}`, http.StatusUnprocessableEntity, ""},
		{"unknown parent", "/api/expenses", `{"title":"Lunch","amount":12,"category":"Food","parentId":"exp_missing"}`, http.StatusUnprocessableEntity, "parentId"},
		{"bad balance type", "/api/other-balances", `{"type":"crypto","label":"Wallet","amount":5}`, http.StatusUnprocessableEntity, "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, tt.path, "alice", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", rr.Code, tt.wantCode, rr.Body.String())
			}
			body := decode[ErrorBody](t, rr)
			if body.Error == "" {
				t.Error("error message missing")
			}
			if tt.wantField != "" {
				if _, ok := body.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want %q", body.Fields, tt.wantField)
				}
			}
		})
	}

	list := decode[[]core.LendingRecord](t, do(t, srv, http.MethodGet, "/api/transactions", "alice", ""))
	if len(list) != 0 {
		t.Errorf("rejected input must not be stored, got %d records", len(list))
	}
}

func TestInterestTotalIsDerived(t *testing.T) {
	srv := newTestServer(t, newGateway())

	rr := do(t, srv, http.MethodPost, "/api/interest", "alice",
		`{"personName":"Dan","principal":1000,"interest":50,"totalAmount":1}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	rec := decode[core.InterestRecord](t, rr)
	if rec.TotalAmount.Cents != 105000 {
		t.Fatalf("total = %s, want 1050", rec.TotalAmount)
	}

	rec = decode[core.InterestRecord](t, do(t, srv, http.MethodPut, "/api/interest/"+rec.ID, "alice", `{"interest":100}`))
	if rec.TotalAmount.Cents != 110000 {
		t.Errorf("total after update = %s, want 1100", rec.TotalAmount)
	}

	st := decode[stats.InterestStats](t, do(t, srv, http.MethodGet, "/api/stats/interest", "alice", ""))
	if st.TotalInterestEarned.Cents != 10000 {
		t.Errorf("interest stats = %+v", st)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/interest/"+rec.ID, "alice", ""); rr.Code != http.StatusOK {
		t.Errorf("delete status=%d", rr.Code)
	}
}

func TestBalanceSubTransactions(t *testing.T) {
	srv := newTestServer(t, newGateway())

	rr := do(t, srv, http.MethodPost, "/api/other-balances", "alice", `{"type":"cash","label":"Wallet","amount":100}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	bal := decode[core.OtherBalance](t, rr)
	if len(bal.Transactions) != 1 || bal.Transactions[0].Note != core.OpeningBalanceNote {
		t.Fatalf("opening entry missing: %+v", bal.Transactions)
	}

	base := "/api/other-balances/" + bal.ID + "/transactions"
	bal = decode[core.OtherBalance](t, do(t, srv, http.MethodPost, base, "alice", `{"type":"debit","amount":30,"note":"Groceries"}`))
	if bal.Amount.Cents != 7000 || len(bal.Transactions) != 2 {
		t.Fatalf("after debit amount=%s entries=%d", bal.Amount, len(bal.Transactions))
	}
	debit := bal.Transactions[1]

	bal = decode[core.OtherBalance](t, do(t, srv, http.MethodPut, base+"/"+debit.ID, "alice", `{"amount":50}`))
	if bal.Amount.Cents != 5000 {
		t.Errorf("after edit amount=%s, want 50", bal.Amount)
	}

	rr = do(t, srv, http.MethodDelete, base+"/"+debit.ID, "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete entry status=%d", rr.Code)
	}
	if bal = decode[core.OtherBalance](t, rr); bal.Amount.Cents != 10000 {
		t.Errorf("after delete amount=%s, want 100", bal.Amount)
	}

	if rr := do(t, srv, http.MethodDelete, base+"/sub_missing", "alice", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing entry status=%d, want 404", rr.Code)
	}

	bal = decode[core.OtherBalance](t, do(t, srv, http.MethodPut, "/api/other-balances/"+bal.ID, "alice", `{"label":"Pocket"}`))
	if bal.Label != "Pocket" || bal.Amount.Cents != 10000 {
		t.Errorf("rename = %+v", bal)
	}

	totals := decode[stats.BalanceStats](t, do(t, srv, http.MethodGet, "/api/stats/balances", "alice", ""))
	if totals.Cash.Cents != 10000 {
		t.Errorf("balance stats = %+v", totals)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/other-balances/"+bal.ID, "alice", ""); rr.Code != http.StatusOK {
		t.Errorf("delete balance status=%d", rr.Code)
	}
}

func TestDeferredSaveIsReported(t *testing.T) {
	gw := newGateway()
	srv := newTestServer(t, gw)

	gw.mu.Lock()
	gw.failExpenseSave = true
	gw.mu.Unlock()

	rr := do(t, srv, http.MethodPost, "/api/expenses", "alice", `{"title":"Lunch","amount":12,"category":"Food"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d, a deferred save is not an error", rr.Code)
	}
	if got := rr.Header().Get(HeaderWarning); got != warningSaveDeferred {
		t.Errorf("%s = %q", HeaderWarning, got)
	}

	status := decode[ledger.Status](t, do(t, srv, http.MethodGet, "/api/session", "alice", ""))
	if !status.Dirty {
		t.Error("session should report the pending save")
	}

	list := decode[[]core.Expense](t, do(t, srv, http.MethodGet, "/api/expenses", "alice", ""))
	if len(list) != 1 {
		t.Errorf("in-memory state should keep the expense, got %d", len(list))
	}
}

func TestDegradedSession(t *testing.T) {
	gw := newGateway()
	gw.failInterestLoad = true
	srv := newTestServer(t, gw)

	rr := do(t, srv, http.MethodGet, "/api/transactions", "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if rr.Header().Get(HeaderDegraded) != "true" {
		t.Error("degraded header missing")
	}

	rr = do(t, srv, http.MethodPost, "/api/interest", "alice", `{"personName":"Dan","principal":10,"interest":1}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("mutation on an unloaded collection: status=%d, want 503", rr.Code)
	}

	gw.mu.Lock()
	gw.failInterestLoad = false
	gw.mu.Unlock()

	rr = do(t, srv, http.MethodPost, "/api/interest", "alice", `{"personName":"Dan","principal":10,"interest":1}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("after recovery status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(HeaderDegraded) != "" {
		t.Error("degraded header should clear once the collection loads")
	}
}

func TestStatsAndPeople(t *testing.T) {
	srv := newTestServer(t, newGateway())

	for _, body := range []string{
		`{"personName":"Bob","amount":100,"type":"lending","date":"2026-03-14"}`,
		`{"personName":"Eve","amount":40,"type":"borrowing","date":"2026-03-15"}`,
	} {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", "alice", body); rr.Code != http.StatusCreated {
			t.Fatalf("seed status=%d body=%s", rr.Code, rr.Body.String())
		}
	}

	dash := decode[stats.DashboardStats](t, do(t, srv, http.MethodGet, "/api/stats/dashboard", "alice", ""))
	if dash.TotalLent.Cents != 10000 || dash.TotalBorrowed.Cents != 4000 || dash.ActivePeopleCount != 2 {
		t.Errorf("dashboard = %+v", dash)
	}
	if dash.NetBalance.Cents != 6000 {
		t.Errorf("net = %s, want 60", dash.NetBalance)
	}

	chart := decode[[]stats.ChartPoint](t, do(t, srv, http.MethodGet, "/api/stats/chart", "alice", ""))
	if len(chart) != stats.ChartDays {
		t.Errorf("chart has %d points", len(chart))
	}

	tests := []struct {
		query string
		code  int
		want  string
	}{
		{"", http.StatusOK, "Bob"},
		{"?type=borrower", http.StatusOK, "Bob"},
		{"?type=lender", http.StatusOK, "Eve"},
		{"?type=friend", http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run("people"+tt.query, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/api/people"+tt.query, "alice", "")
			if rr.Code != tt.code {
				t.Fatalf("status=%d, want %d", rr.Code, tt.code)
			}
			if tt.want == "" {
				return
			}
			people := decode[[]stats.Person](t, rr)
			if len(people) != 1 || people[0].PersonName != tt.want {
				t.Errorf("people = %+v", people)
			}
		})
	}

	for _, path := range []string{"/api/stats/expenses", "/api/stats/earnings"} {
		if rr := do(t, srv, http.MethodGet, path, "alice", ""); rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestProfile(t *testing.T) {
	srv := newTestServer(t, newGateway())

	if rr := do(t, srv, http.MethodGet, "/api/profile", "alice", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("missing profile status=%d, want 404", rr.Code)
	}

	rr := do(t, srv, http.MethodPost, "/api/profile", "alice", `{"displayName":"Alice","email":"alice@example.com"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("upsert status=%d body=%s", rr.Code, rr.Body.String())
	}
	p := decode[core.Profile](t, rr)
	if p.UserID != "alice" || p.DisplayName != "Alice" || p.CreatedAt.IsZero() {
		t.Errorf("profile = %+v", p)
	}

	got := decode[core.Profile](t, do(t, srv, http.MethodGet, "/api/profile", "alice", ""))
	if got.Email != "alice@example.com" {
		t.Errorf("stored profile = %+v", got)
	}

	if rr := do(t, srv, http.MethodPost, "/api/profile", "alice", `{"email":"not-an-email"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad email status=%d, want 422", rr.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	srv := newTestServer(t, newGateway(), func(o *Options) { o.RateLimitPerMinute = 2 })

	body := `{"title":"Lunch","amount":12,"category":"Food"}`
	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/expenses", "alice", body); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/expenses", "alice", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}

	if rr := do(t, srv, http.MethodGet, "/api/expenses", "alice", ""); rr.Code != http.StatusOK {
		t.Errorf("reads are not limited, status=%d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, newGateway())

	req := httptest.NewRequest(http.MethodOptions, "/api/expenses", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, newGateway())
	ctx := context.Background()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
