package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/log"
)

// SaveRetrierConfig holds configuration for the save retrier
type SaveRetrierConfig struct {
	// PollInterval is how often due saves are attempted (default: 1s)
	PollInterval time.Duration

	// BaseBackoff is the wait after the first failure (default: 5s)
	BaseBackoff time.Duration

	// MaxBackoff caps the doubling backoff (default: 5m)
	MaxBackoff time.Duration

	// AttemptTimeout bounds a single save attempt (default: 10s)
	AttemptTimeout time.Duration
}

// DefaultSaveRetrierConfig returns sensible defaults
func DefaultSaveRetrierConfig() SaveRetrierConfig {
	return SaveRetrierConfig{
		PollInterval:   1 * time.Second,
		BaseBackoff:    5 * time.Second,
		MaxBackoff:     5 * time.Minute,
		AttemptTimeout: 10 * time.Second,
	}
}

// PendingGauge receives the number of queued saves.
type PendingGauge interface {
	SetPendingSaves(n int)
}

type pendingSave struct {
	flush    func(ctx context.Context) error
	attempts int
	due      time.Time
	// gen changes whenever Enqueue replaces flush.
	gen uint64
}

type dueSave struct {
	key   string
	entry *pendingSave
	flush func(ctx context.Context) error
	gen   uint64
}

// SaveRetrier re-runs deferred collection saves with exponential backoff
// until they succeed. Saves are keyed so a collection is queued at most once.
type SaveRetrier struct {
	config SaveRetrierConfig
	gauge  PendingGauge
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingSave
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSaveRetrier(config SaveRetrierConfig, gauge PendingGauge) *SaveRetrier {
	def := DefaultSaveRetrierConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = def.BaseBackoff
	}
	if config.MaxBackoff < config.BaseBackoff {
		config.MaxBackoff = config.BaseBackoff
	}
	if config.AttemptTimeout <= 0 {
		config.AttemptTimeout = def.AttemptTimeout
	}
	return &SaveRetrier{
		config:  config,
		gauge:   gauge,
		logger:  log.Default(log.ComponentRetry),
		now:     time.Now,
		pending: make(map[string]*pendingSave),
	}
}

// Enqueue schedules flush after the base backoff. Re-enqueueing a key keeps
// its attempt count and replaces the flush.
func (r *SaveRetrier) Enqueue(key string, flush func(ctx context.Context) error) {
	r.mu.Lock()
	if p, ok := r.pending[key]; ok {
		p.flush = flush
		p.gen++
		r.mu.Unlock()
		return
	}
	r.pending[key] = &pendingSave{flush: flush, due: r.now().Add(r.config.BaseBackoff)}
	n := len(r.pending)
	r.mu.Unlock()

	r.report(n)
	r.logger.Info("Save queued for retry", "key", key, "pending", n)
}

// Pending returns the number of queued saves.
func (r *SaveRetrier) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Start begins the retry loop. Returns an error if already running.
func (r *SaveRetrier) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("save retrier is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	r.logger.InfoContext(ctx, "Save retrier started",
		"poll_interval", r.config.PollInterval,
		"max_backoff", r.config.MaxBackoff)
	return nil
}

// Stop gracefully stops the retrier and waits for the loop to exit.
func (r *SaveRetrier) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	close(r.stopCh)

	select {
	case <-r.doneCh:
		r.logger.InfoContext(ctx, "Save retrier stopped gracefully")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Save retrier stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

// IsRunning returns whether the retrier is currently running
func (r *SaveRetrier) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *SaveRetrier) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunDue(ctx)
		}
	}
}

// RunDue attempts every save whose backoff has elapsed and returns how many
// succeeded. A save re-enqueued while its flush runs stays queued.
func (r *SaveRetrier) RunDue(ctx context.Context) int {
	now := r.now()

	r.mu.Lock()
	var due []dueSave
	for key, p := range r.pending {
		if !p.due.After(now) {
			due = append(due, dueSave{key: key, entry: p, flush: p.flush, gen: p.gen})
		}
	}
	r.mu.Unlock()

	succeeded := 0
	for _, d := range due {
		attemptCtx, cancel := context.WithTimeout(ctx, r.config.AttemptTimeout)
		err := d.flush(attemptCtx)
		cancel()

		p := d.entry
		r.mu.Lock()
		current := r.pending[d.key] == p
		requeued := current && p.gen != d.gen
		switch {
		case err == nil && current && !requeued:
			delete(r.pending, d.key)
		case err != nil && current:
			p.attempts++
			p.due = r.now().Add(r.backoff(p.attempts))
		}
		if err == nil {
			succeeded++
		}
		attempts, next := p.attempts, p.due
		n := len(r.pending)
		r.mu.Unlock()
		r.report(n)

		if err != nil {
			r.logger.WarnContext(ctx, "Deferred save failed",
				"key", d.key,
				log.FieldAttempt, attempts,
				"next_attempt", next,
				log.FieldError, err)
			continue
		}
		if requeued {
			r.logger.InfoContext(ctx, "Deferred save completed, newer save still queued", "key", d.key)
			continue
		}
		r.logger.InfoContext(ctx, "Deferred save completed", "key", d.key)
	}
	return succeeded
}

// backoff is BaseBackoff doubled per failed attempt, capped at MaxBackoff.
func (r *SaveRetrier) backoff(attempts int) time.Duration {
	d := r.config.BaseBackoff
	for i := 0; i < attempts && d < r.config.MaxBackoff; i++ {
		d *= 2
	}
	if d > r.config.MaxBackoff {
		d = r.config.MaxBackoff
	}
	return d
}

func (r *SaveRetrier) report(n int) {
	if r.gauge != nil {
		r.gauge.SetPendingSaves(n)
	}
}
