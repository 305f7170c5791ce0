package api

import (
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/terraincognita07/cycleapp/internal/services"
)

// attemptLimiter counts failed verification attempts per key inside a sliding window.
type attemptLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	clock    clockwork.Clock
	failures map[string][]time.Time
}

func newAttemptLimiter(limit int, window time.Duration, clock clockwork.Clock) *attemptLimiter {
	return &attemptLimiter{
		limit:    limit,
		window:   window,
		clock:    clock,
		failures: make(map[string][]time.Time),
	}
}

// retryAfter is zero while key may still attempt; otherwise it is the time until
// the oldest counted failure leaves the window.
func (limiter *attemptLimiter) retryAfter(key string) time.Duration {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.clock.Now()
	recent := limiter.recentLocked(key, now)
	if len(recent) < limiter.limit {
		return 0
	}
	wait := recent[len(recent)-limiter.limit].Add(limiter.window).Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

func (limiter *attemptLimiter) recordFailure(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := limiter.clock.Now()
	limiter.failures[key] = append(limiter.recentLocked(key, now), now)
}

func (limiter *attemptLimiter) clear(key string) {
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	delete(limiter.failures, key)
}

func (limiter *attemptLimiter) recentLocked(key string, now time.Time) []time.Time {
	threshold := now.Add(-limiter.window)
	kept := limiter.failures[key][:0]
	for _, failedAt := range limiter.failures[key] {
		if failedAt.After(threshold) {
			kept = append(kept, failedAt)
		}
	}
	if len(kept) == 0 {
		delete(limiter.failures, key)
		return nil
	}
	limiter.failures[key] = kept
	return kept
}

// verifyLimiterKey scopes attempts to the client address and the normalized email.
func verifyLimiterKey(c *fiber.Ctx, email string) string {
	address := strings.TrimSpace(c.IP())
	if address == "" {
		address = "unknown"
	}
	return address + "|" + services.NormalizeAuthEmail(email)
}
