package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// Pinger reports whether the persistence backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options wires the server dependencies.
type Options struct {
	Addr     string
	Sessions *ledger.Sessions
	Pinger   Pinger
	// Verifier checks bearer tokens; nil enables the X-Owner-ID dev mode.
	Verifier *auth.Verifier
	Metrics  *metrics.Metrics

	CORSOrigins        []string
	RateLimitPerMinute int
	SessionCleanup     time.Duration

	// Location is the calendar used for "today" in aggregations.
	Location *time.Location
	Clock    func() time.Time
	Logger   *log.Logger
}

type Server struct {
	http.Server
	sessions *ledger.Sessions
	pinger   Pinger
	location *time.Location
	now      func() time.Time
	logger   *log.Logger

	limiter  *ratelimit.Limiter
	caches   *cache.Manager
	detector *security.Detector

	shutdownOnce sync.Once
}

// apiHandler serves one owner-scoped request against the owner's store.
type apiHandler func(r *http.Request, st *ledger.Store) *ResponseBuilder

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default(log.ComponentHTTP)
	}
	if opts.SessionCleanup <= 0 {
		opts.SessionCleanup = 5 * time.Minute
	}

	s := &Server{
		sessions: opts.Sessions,
		pinger:   opts.Pinger,
		location: opts.Location,
		now:      opts.Clock,
		logger:   opts.Logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute, CleanupInterval: 5 * time.Minute}),
		caches:   cache.NewManager(),
		detector: security.NewDetector(opts.Metrics),
	}

	s.caches.Register(opts.Sessions)
	s.caches.StartCleanup(opts.SessionCleanup)

	api := http.NewServeMux()
	s.registerAPI(api)

	authMW := auth.NewMiddleware(opts.Verifier, func(w http.ResponseWriter, r *http.Request, err error) {
		FromError(err).Write(w)
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", authMW.Handler(api))
	s.handle(mux, "GET /health", s.handleHealth)
	s.handle(mux, "GET /healthz", handleLiveness)
	s.handle(mux, "GET /readyz", s.handleReady)
	if opts.Metrics != nil {
		s.handle(mux, "GET /metrics", opts.Metrics.Handler().ServeHTTP)
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	cors := security.NewCORS(opts.CORSOrigins)
	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, opts.Metrics, log.Default(log.ComponentTrace))
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})

	var h http.Handler = mux
	h = limit(h)
	h = s.detector.Middleware(h)
	h = cors.Middleware(h)
	h = headers.Middleware(h)
	h = tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	s.route(mux, "GET /api/transactions", s.listTransactions)
	s.route(mux, "POST /api/transactions", s.createTransaction)
	s.route(mux, "GET /api/transactions/tree", s.transactionTree)
	s.route(mux, "GET /api/transactions/recent", s.recentTransactions)
	s.route(mux, "PUT /api/transactions/{id}", s.updateTransaction)
	s.route(mux, "DELETE /api/transactions/{id}", s.deleteTransaction)

	s.route(mux, "GET /api/expenses", s.listExpenses)
	s.route(mux, "POST /api/expenses", s.createExpense)
	s.route(mux, "GET /api/expenses/tree", s.expenseTree)
	s.route(mux, "PUT /api/expenses/{id}", s.updateExpense)
	s.route(mux, "DELETE /api/expenses/{id}", s.deleteExpense)

	s.route(mux, "GET /api/interest", s.listInterest)
	s.route(mux, "POST /api/interest", s.createInterest)
	s.route(mux, "PUT /api/interest/{id}", s.updateInterest)
	s.route(mux, "DELETE /api/interest/{id}", s.deleteInterest)

	s.route(mux, "GET /api/earnings", s.listEarnings)
	s.route(mux, "POST /api/earnings", s.createEarning)
	s.route(mux, "PUT /api/earnings/{id}", s.updateEarning)
	s.route(mux, "DELETE /api/earnings/{id}", s.deleteEarning)

	s.route(mux, "GET /api/other-balances", s.listBalances)
	s.route(mux, "POST /api/other-balances", s.createBalance)
	s.route(mux, "PUT /api/other-balances/{id}", s.updateBalance)
	s.route(mux, "DELETE /api/other-balances/{id}", s.deleteBalance)
	s.route(mux, "POST /api/other-balances/{id}/transactions", s.addSubTransaction)
	s.route(mux, "PUT /api/other-balances/{id}/transactions/{txId}", s.updateSubTransaction)
	s.route(mux, "DELETE /api/other-balances/{id}/transactions/{txId}", s.deleteSubTransaction)

	s.route(mux, "GET /api/stats/dashboard", s.dashboardStats)
	s.route(mux, "GET /api/stats/chart", s.chartStats)
	s.route(mux, "GET /api/stats/expenses", s.expenseStats)
	s.route(mux, "GET /api/stats/interest", s.interestStats)
	s.route(mux, "GET /api/stats/earnings", s.earningStats)
	s.route(mux, "GET /api/stats/balances", s.balanceStats)
	s.route(mux, "GET /api/people", s.people)

	s.route(mux, "GET /api/session", s.session)
	s.route(mux, "GET /api/profile", s.getProfile)
	s.route(mux, "POST /api/profile", s.upsertProfile)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "route not found").Write(w)
	})
}

// handle registers a plain handler and records its pattern for metrics.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		trace.SetRoute(r.Context(), r.Pattern)
		h(w, r)
	})
}

// route registers an owner-scoped handler. The owner's store is resolved
// before the handler runs; session headers are added after.
func (s *Server) route(mux *http.ServeMux, pattern string, h apiHandler) {
	s.handle(mux, pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := auth.OwnerFromContext(ctx)
		if !ok {
			s.write(w, r, FromError(auth.ErrMissingToken))
			return
		}
		st, err := s.sessions.Get(ctx, owner)
		if err != nil {
			s.write(w, r, FromError(fmt.Errorf("%w: %w", core.ErrUnavailable, err)))
			return
		}

		resp := h(r, st)
		if st.Status().Degraded {
			resp.Header(HeaderDegraded, "true")
		}
		s.write(w, r, resp)
	})
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, resp *ResponseBuilder) {
	if cause := resp.Cause(); cause != nil && resp.StatusCode() >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, resp.StatusCode(),
			log.FieldError, cause)
	}
	resp.Write(w)
}

// today returns the clock reading in the configured calendar.
func (s *Server) today() time.Time {
	return s.now().In(s.location)
}

// Shutdown stops background routines, flushes pending saves and then
// shuts down the HTTP server. It runs only once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()

		httpErr := s.Server.Shutdown(ctx)
		flushErr := s.sessions.FlushAll(ctx)
		if flushErr != nil {
			s.logger.ErrorContext(ctx, "Pending saves lost at shutdown", log.FieldError, flushErr)
		}
		shutdownErr = errors.Join(httpErr, flushErr)
	})

	return shutdownErr
}
