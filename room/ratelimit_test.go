package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestRateLimiterWindow(t *testing.T) {
	clock := newFakeClock()
	l := newRateLimiter(Limit{MaxMessages: 2, Window: time.Second}, clock.Now)

	assert.True(t, l.CanSend())
	clock.Advance(100 * time.Millisecond)
	assert.True(t, l.CanSend())
	clock.Advance(100 * time.Millisecond)
	assert.False(t, l.CanSend())

	clock.Advance(time.Second)
	assert.True(t, l.CanSend())
}

func TestRateLimiterSlides(t *testing.T) {
	clock := newFakeClock()
	l := newRateLimiter(Limit{MaxMessages: 2, Window: time.Second}, clock.Now)

	assert.True(t, l.CanSend())
	clock.Advance(600 * time.Millisecond)
	assert.True(t, l.CanSend())
	clock.Advance(300 * time.Millisecond)
	assert.False(t, l.CanSend())

	// The first send leaves the window at exactly one second.
	clock.Advance(100 * time.Millisecond)
	assert.True(t, l.CanSend())
	assert.False(t, l.CanSend())
}

func TestRateLimiterRejectionDoesNotRecord(t *testing.T) {
	clock := newFakeClock()
	l := newRateLimiter(Limit{MaxMessages: 1, Window: time.Second}, clock.Now)

	assert.True(t, l.CanSend())
	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		assert.False(t, l.CanSend())
	}
	assert.Len(t, l.stamps, 1)

	// Only the accepted send counts, so the window opens one second after it.
	clock.Advance(500 * time.Millisecond)
	assert.True(t, l.CanSend())
}

func TestRateLimiterRemainingTime(t *testing.T) {
	clock := newFakeClock()
	l := newRateLimiter(Limit{MaxMessages: 2, Window: time.Second}, clock.Now)

	assert.Zero(t, l.RemainingTime())

	assert.True(t, l.CanSend())
	assert.Zero(t, l.RemainingTime())

	clock.Advance(250 * time.Millisecond)
	assert.True(t, l.CanSend())
	assert.False(t, l.CanSend())

	remaining := l.RemainingTime()
	assert.Equal(t, 750*time.Millisecond, remaining)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, time.Second)

	clock.Advance(750 * time.Millisecond)
	assert.Zero(t, l.RemainingTime())
}

func TestRateLimiterNeverExceedsMax(t *testing.T) {
	clock := newFakeClock()
	l := newRateLimiter(Limit{MaxMessages: 3, Window: time.Second}, clock.Now)

	accepted := 0
	for i := 0; i < 100; i++ {
		if l.CanSend() {
			accepted++
		}
		assert.LessOrEqual(t, len(l.stamps), 3)
		clock.Advance(10 * time.Millisecond)
	}

	// 100 calls over one second: three per window.
	assert.Equal(t, 3, accepted)
}

func TestRateLimiterDefaults(t *testing.T) {
	l := NewRateLimiter(Limit{})
	assert.Equal(t, DefaultLimit(), l.Limit())

	for i := 0; i < DefaultMaxMessages; i++ {
		assert.True(t, l.CanSend())
	}
	assert.False(t, l.CanSend())
	assert.Greater(t, l.RemainingTime(), time.Duration(0))
}

func TestRateLimiterRealClock(t *testing.T) {
	l := NewRateLimiter(Limit{MaxMessages: 2, Window: 50 * time.Millisecond})

	assert.True(t, l.CanSend())
	assert.True(t, l.CanSend())
	assert.False(t, l.CanSend())

	time.Sleep(60 * time.Millisecond)
	assert.True(t, l.CanSend())
}
