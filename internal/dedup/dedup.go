// Package dedup suppresses near-duplicate syslog records within a
// sliding time window, keyed on the exact (source, priority, message)
// tuple. A recurring background job sweeps entries that have aged out
// of the window so the map does not grow without bound.
package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"syslogcollector/internal/logging"
)

// DefaultWindow is the suppression window used when Config.Window is zero.
const DefaultWindow = 10 * time.Minute

// reapInterval is how often the background reaper sweeps stale entries.
const reapInterval = 60 * time.Second

// key is the composite (source, priority, message) tuple. Exact
// byte-for-byte equality, case-sensitive, whitespace-significant.
type key struct {
	source   string
	priority int
	message  string
}

// Config configures a Deduplicator.
type Config struct {
	// Window is the sliding suppression interval. Zero means DefaultWindow.
	Window time.Duration

	Logger *slog.Logger

	// now is overridable for tests; nil means time.Now.
	now func() time.Time
}

// Deduplicator filters (source, priority, message) repeats within a
// sliding time window. Safe for concurrent use.
type Deduplicator struct {
	window time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	seen map[key]time.Time

	scheduler gocron.Scheduler
}

// New creates a Deduplicator and starts its background reaper.
// Callers must call Close to stop the reaper.
func New(cfg Config) (*Deduplicator, error) {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	now := cfg.now
	if now == nil {
		now = time.Now
	}

	d := &Deduplicator{
		window: window,
		now:    now,
		logger: logging.Default(cfg.Logger).With("component", "dedup"),
		seen:   make(map[key]time.Time),
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(reapInterval),
		gocron.NewTask(d.cleanup),
		gocron.WithName("dedup-reaper"),
	); err != nil {
		return nil, err
	}
	d.scheduler = sched
	sched.Start()

	return d, nil
}

// ShouldWrite returns true on "keep" (first sighting, or the last
// sighting is older than the window) and false on "drop" (duplicate
// within window). On true it records now() against the key; on false it
// leaves the stored timestamp unchanged.
//
// The read-and-insert happens under a single lock so that exactly one
// caller observes "first sighting" for a given key within a window.
func (d *Deduplicator) ShouldWrite(source string, priority int, message string) bool {
	k := key{source: source, priority: priority, message: message}
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[k]; ok && now.Sub(last) < d.window {
		d.logger.Debug("duplicate message suppressed", "source", source, "priority", priority)
		return false
	}
	d.seen[k] = now
	return true
}

// cleanup removes every entry whose stored timestamp is older than
// now - window. It is invoked by the reaper job and may also be called
// directly from tests.
func (d *Deduplicator) cleanup() {
	cutoff := d.now().Add(-d.window)

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for k, ts := range d.seen {
		if ts.Before(cutoff) {
			delete(d.seen, k)
			removed++
		}
	}
	if removed > 0 {
		d.logger.Debug("cleaned up stale dedup entries", "count", removed)
	}
}

// Cleanup exposes cleanup for callers that want to force an out-of-band
// sweep (tests, or an operator-triggered GC).
func (d *Deduplicator) Cleanup() {
	d.cleanup()
}

// Close stops the background reaper. The map itself is simply dropped
// with the Deduplicator; there is no persistence across restarts.
func (d *Deduplicator) Close(ctx context.Context) error {
	if d.scheduler == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- d.scheduler.Shutdown() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
