package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	l := New(2, time.Minute)

	require.True(t, l.Allow("k"))
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	// Other keys are independent.
	require.True(t, l.Allow("other"))
}

func TestLimiter_WindowExpiry(t *testing.T) {
	l := New(1, 20*time.Millisecond)

	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	time.Sleep(30 * time.Millisecond)
	require.True(t, l.Allow("k"))
}

func TestLimiter_WindowDoesNotSlide(t *testing.T) {
	l := New(2, 200*time.Millisecond)

	// Window opens with the first event at t=0; the second event at ~t=100ms
	// must not push the reset out to ~t=300ms.
	require.True(t, l.Allow("k"))
	time.Sleep(100 * time.Millisecond)
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	time.Sleep(150 * time.Millisecond)
	require.True(t, l.Allow("k"))
}

func TestLimiter_ConcurrentSendsRespectLimit(t *testing.T) {
	l := New(5, time.Minute)

	var allowed int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				atomic.AddInt64(&allowed, 1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 5, allowed)
}
