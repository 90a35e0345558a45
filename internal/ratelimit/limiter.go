// ABOUTME: Fixed-window per-client request limiter with bounded memory
// ABOUTME: Windows reset at a hard boundary; expired entries are swept on demand and on a timer

package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultWindow          = 60 * time.Second
	DefaultLimit           = 100
	DefaultMaxEntries      = 10_000
	DefaultCleanupInterval = 60 * time.Second
)

// Config holds limiter tuning parameters.
type Config struct {
	Window          time.Duration // window length W
	Limit           int           // ceiling N per window
	MaxEntries      int           // table size that forces a synchronous sweep
	CleanupInterval time.Duration // background sweep period
	Logger          *slog.Logger
}

type entry struct {
	count         int
	windowResetAt time.Time
}

// Limiter counts requests per client in fixed windows. The window resets at a
// hard boundary rather than sliding; bursts straddling a boundary can see up
// to 2N requests admitted, which is the intended cost/simplicity tradeoff.
type Limiter struct {
	mu              sync.Mutex
	entries         map[string]*entry
	window          time.Duration
	limit           int
	maxEntries      int
	cleanupInterval time.Duration
	logger          *slog.Logger

	now func() time.Time // injectable clock for tests
}

// New creates a limiter with defaults filled in for zero config fields.
func New(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Limiter{
		entries:         make(map[string]*entry),
		window:          cfg.Window,
		limit:           cfg.Limit,
		maxEntries:      cfg.MaxEntries,
		cleanupInterval: cfg.CleanupInterval,
		logger:          cfg.Logger,
		now:             time.Now,
	}
}

// Admit records a request for clientID and reports whether it is allowed.
// A rejected request does not mutate the entry.
func (l *Limiter) Admit(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// Bounded memory: force a sweep of expired entries before growing the table.
	if len(l.entries) >= l.maxEntries {
		l.sweepLocked(now)
	}

	e, ok := l.entries[clientID]
	if !ok || now.After(e.windowResetAt) {
		l.entries[clientID] = &entry{count: 1, windowResetAt: now.Add(l.window)}
		return true
	}
	if e.count >= l.limit {
		return false
	}
	e.count++
	return true
}

// Info is a read-only snapshot of a client's current window.
type Info struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Info returns the client's window state without mutating it. Unknown or
// expired clients report the full limit as remaining.
func (l *Limiter) Info(clientID string) Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[clientID]
	if !ok || now.After(e.windowResetAt) {
		return Info{Limit: l.limit, Remaining: l.limit, Reset: now.Add(l.window)}
	}
	remaining := l.limit - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Info{Limit: l.limit, Remaining: remaining, Reset: e.windowResetAt}
}

// Len returns the current table size.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Start launches the background sweep goroutine. It stops when ctx is
// cancelled and never keeps the process alive on its own.
func (l *Limiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(l.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.mu.Lock()
				before := len(l.entries)
				l.sweepLocked(l.now())
				after := len(l.entries)
				l.mu.Unlock()
				if before != after {
					l.logger.Debug("rate limit sweep", "evicted", before-after, "remaining", after)
				}
			}
		}
	}()
}

// sweepLocked deletes all entries whose window has expired. Caller holds mu.
func (l *Limiter) sweepLocked(now time.Time) {
	for id, e := range l.entries {
		if now.After(e.windowResetAt) {
			delete(l.entries, id)
		}
	}
}
