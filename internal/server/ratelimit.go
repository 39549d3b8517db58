package server

import (
	"fmt"
	"sync"
	"time"
)

// Limits bounds how many events one client may send per window. A zero
// field disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// RateLimiter counts events per client in fixed minute and hour windows and
// a calendar-day quota.
type RateLimiter struct {
	mu sync.RWMutex

	// unit names the counted events in quota errors: "requests" or "frames".
	unit   string
	limits Limits

	clients map[string]*UserUsage

	now func() time.Time
}

// window is a fixed counting window that opens with the first event after
// the previous one has expired.
type window struct {
	start time.Time
	count int
}

func (w *window) roll(now time.Time, period time.Duration) {
	if w.start.IsZero() || now.Sub(w.start) >= period {
		w.start = now
		w.count = 0
	}
}

// remaining is the time until the window closes.
func (w *window) remaining(now time.Time, period time.Duration) time.Duration {
	return period - now.Sub(w.start)
}

// UserUsage tracks usage for a specific client.
type UserUsage struct {
	minute window
	hour   window

	today    int
	dayStart time.Time
}

// NewRateLimiter creates a limiter for events named unit.
func NewRateLimiter(unit string, limits Limits) *RateLimiter {
	return &RateLimiter{
		unit:    unit,
		limits:  limits,
		clients: make(map[string]*UserUsage),
		now:     time.Now,
	}
}

// CheckRateLimit records one event for clientID, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(clientID string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage := rl.getOrCreateUserUsage(clientID)

	rl.resetCountersIfNeeded(usage, now)

	if err := rl.checkRateLimits(usage, now); err != nil {
		return err
	}
	if err := rl.checkDailyQuota(usage, now); err != nil {
		return err
	}

	usage.minute.count++
	usage.hour.count++
	usage.today++
	return nil
}

// resetCountersIfNeeded opens new windows once the current ones have expired.
func (rl *RateLimiter) resetCountersIfNeeded(usage *UserUsage, now time.Time) {
	if y, m, d := now.Date(); y != usage.dayStart.Year() || m != usage.dayStart.Month() || d != usage.dayStart.Day() {
		usage.today = 0
		usage.dayStart = now
	}
	usage.minute.roll(now, time.Minute)
	usage.hour.roll(now, time.Hour)
}

// checkRateLimits checks the minute and hour windows.
func (rl *RateLimiter) checkRateLimits(usage *UserUsage, now time.Time) error {
	if rl.limits.PerMinute > 0 && usage.minute.count >= rl.limits.PerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.limits.PerMinute,
			RetryAfter: usage.minute.remaining(now, time.Minute),
		}
	}

	if rl.limits.PerHour > 0 && usage.hour.count >= rl.limits.PerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.limits.PerHour,
			RetryAfter: usage.hour.remaining(now, time.Hour),
		}
	}

	return nil
}

// checkDailyQuota checks the per-day event quota.
func (rl *RateLimiter) checkDailyQuota(usage *UserUsage, now time.Time) error {
	if rl.limits.PerDay > 0 && usage.today >= rl.limits.PerDay {
		return &QuotaExceededError{
			Type:   rl.unit,
			Limit:  int64(rl.limits.PerDay),
			Used:   int64(usage.today),
			Resets: time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()),
		}
	}
	return nil
}

func (rl *RateLimiter) getOrCreateUserUsage(clientID string) *UserUsage {
	usage, exists := rl.clients[clientID]
	if !exists {
		usage = &UserUsage{}
		rl.clients[clientID] = usage
	}
	return usage
}

// GetUsage returns a copy of the usage counters for a client.
func (rl *RateLimiter) GetUsage(clientID string) *UserUsage {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	if usage, exists := rl.clients[clientID]; exists {
		u := *usage
		return &u
	}
	return &UserUsage{}
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "frames"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
