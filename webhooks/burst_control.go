package webhooks

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	defaultCoalesceWindow  = 2 * time.Second
	defaultCoalesceEntries = 4096
)

type BurstDecision struct {
	Allow    bool
	Metadata map[string]any
}

// BurstController decides whether a delivery for key should run the pipeline.
// Forget drops key after a failed run so a redelivery is not suppressed.
type BurstController interface {
	Allow(ctx context.Context, key string) (BurstDecision, error)
	Forget(ctx context.Context, key string)
}

type BurstOptions struct {
	Window     time.Duration
	MaxEntries int
	Now        func() time.Time
}

// Coalescer suppresses a delivery when the same key was let through less
// than Window ago. Suppressed deliveries do not extend the window.
type Coalescer struct {
	window     time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	allowed map[string]time.Time
}

func NewCoalescer(opts BurstOptions) *Coalescer {
	c := &Coalescer{
		window:     opts.Window,
		maxEntries: opts.MaxEntries,
		now:        opts.Now,
		allowed:    map[string]time.Time{},
	}
	if c.window <= 0 {
		c.window = defaultCoalesceWindow
	}
	if c.maxEntries <= 0 {
		c.maxEntries = defaultCoalesceEntries
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Coalescer) Allow(_ context.Context, key string) (BurstDecision, error) {
	key = strings.TrimSpace(key)
	if c == nil || key == "" {
		return BurstDecision{Allow: true}, nil
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if last, seen := c.allowed[key]; seen && now.Sub(last) < c.window {
		return BurstDecision{Metadata: map[string]any{
			"burst_key":       key,
			"burst_window_ms": c.window.Milliseconds(),
			"coalesced_for":   c.window - now.Sub(last),
		}}, nil
	}
	c.allowed[key] = now
	if len(c.allowed) > c.maxEntries {
		c.evict(now)
	}
	return BurstDecision{Allow: true}, nil
}

func (c *Coalescer) Forget(_ context.Context, key string) {
	key = strings.TrimSpace(key)
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.allowed, key)
}

// Len reports how many keys are currently tracked.
func (c *Coalescer) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.allowed)
}

// evict drops expired keys, then the oldest ones until the map fits.
func (c *Coalescer) evict(now time.Time) {
	for key, at := range c.allowed {
		if now.Sub(at) >= c.window {
			delete(c.allowed, key)
		}
	}
	for len(c.allowed) > c.maxEntries {
		oldestKey, oldestAt := "", now
		for key, at := range c.allowed {
			if oldestKey == "" || at.Before(oldestAt) {
				oldestKey, oldestAt = key, at
			}
		}
		delete(c.allowed, oldestKey)
	}
}

// deliveryKey identifies one record change for coalescing.
func deliveryKey(eventType string, recordID string) string {
	return strings.ToLower(strings.TrimSpace(eventType)) + ":" + normalizeID(recordID)
}

var _ BurstController = (*Coalescer)(nil)
