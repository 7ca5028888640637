/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import "time"

const (
	DefaultMaxMessages = 10
	DefaultWindow      = time.Minute
)

// Limit is the number of messages allowed inside a rolling window.
type Limit struct {
	MaxMessages int
	Window      time.Duration
}

// DefaultLimit allows 10 messages per minute.
func DefaultLimit() Limit {
	return Limit{MaxMessages: DefaultMaxMessages, Window: DefaultWindow}
}

func (l Limit) orDefault() Limit {
	if l.MaxMessages <= 0 {
		l.MaxMessages = DefaultMaxMessages
	}
	if l.Window <= 0 {
		l.Window = DefaultWindow
	}
	return l
}

// RateLimiter is a sliding-window limiter for a single sender.
//
// It does no locking. Callers must serialize CanSend and RemainingTime, or
// two sends could both observe a free slot and both be recorded.
type RateLimiter struct {
	limit  Limit
	now    func() time.Time
	stamps []time.Time // oldest first
}

func NewRateLimiter(limit Limit) *RateLimiter {
	return newRateLimiter(limit, time.Now)
}

func newRateLimiter(limit Limit, now func() time.Time) *RateLimiter {
	limit = limit.orDefault()

	return &RateLimiter{
		limit:  limit,
		now:    now,
		stamps: make([]time.Time, 0, limit.MaxMessages),
	}
}

func (l *RateLimiter) Limit() Limit {
	return l.limit
}

// CanSend evicts timestamps that have left the window, then records a send
// and returns true if fewer than MaxMessages remain. A rejected call records
// nothing.
func (l *RateLimiter) CanSend() bool {
	now := l.now()

	live := l.stamps[:0]
	for _, ts := range l.stamps {
		if now.Sub(ts) < l.limit.Window {
			live = append(live, ts)
		}
	}
	l.stamps = live

	if len(l.stamps) >= l.limit.MaxMessages {
		return false
	}

	l.stamps = append(l.stamps, now)

	return true
}

// RemainingTime is how long until the next send would be admitted, or zero if
// one would be admitted now.
func (l *RateLimiter) RemainingTime() time.Duration {
	now := l.now()

	var oldest time.Time
	count := 0
	for _, ts := range l.stamps {
		if now.Sub(ts) >= l.limit.Window {
			continue
		}
		if count == 0 {
			oldest = ts
		}
		count++
	}

	if count < l.limit.MaxMessages {
		return 0
	}

	return max(0, l.limit.Window-now.Sub(oldest))
}
