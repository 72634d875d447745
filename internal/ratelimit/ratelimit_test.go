package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLimiter_BurstThenDeny(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := newLimiter(10, 3, clock.now)

	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.True(t, l.Allow())
	require.False(t, l.Allow())
}

func TestLimiter_Refills(t *testing.T) {
	req := require.New(t)
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := newLimiter(10, 2, clock.now)
	req.True(l.AllowN(2))
	req.False(l.Allow())

	clock.advance(100 * time.Millisecond)
	req.True(l.Allow())
	req.False(l.Allow())

	// Never above burst
	clock.advance(time.Hour)
	req.False(l.AllowN(3))
	req.True(l.AllowN(2))
}

func TestLimiter_AllowNLeavesTokensOnDeny(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	l := newLimiter(1, 5, clock.now)

	require.False(t, l.AllowN(6))
	require.True(t, l.AllowN(5))
}

func TestLimiter_RealClock(t *testing.T) {
	l := NewLimiter(1000, 1)
	require.True(t, l.Allow())
	require.Eventually(t, l.Allow, time.Second, time.Millisecond)
}
