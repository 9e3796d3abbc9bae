package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/featureboard/internal/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_CountsDownThenDenies(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, DefaultMaxAttempts, DefaultWindow)

	for _, want := range []int{4, 3, 2, 1, 0} {
		d := l.Check("x")
		require.True(t, d.Allowed)
		require.NotNil(t, d.Remaining)
		assert.Equal(t, want, *d.Remaining)
		assert.Equal(t, clock.Now().Add(DefaultWindow), d.ResetAt)
	}

	d := l.Check("x")
	assert.False(t, d.Allowed)
	assert.Nil(t, d.Remaining)
	assert.Equal(t, "Too many login attempts. Please try again in 15 minutes.", d.Message)
}

func TestReset_StartsFresh(t *testing.T) {
	l := New(clockwork.NewFakeClock(), 5, 15*time.Minute)
	for i := 0; i < 6; i++ {
		l.Check("x")
	}

	l.Reset("x")

	d := l.Check("x")
	require.True(t, d.Allowed)
	assert.Equal(t, 4, *d.Remaining)
}

func TestCheck_WindowExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, 5, 15*time.Minute)
	for i := 0; i < 6; i++ {
		l.Check("x")
	}

	clock.Advance(14 * time.Minute)
	d := l.Check("x")
	assert.False(t, d.Allowed)
	assert.Equal(t, "Too many login attempts. Please try again in 1 minute.", d.Message)

	clock.Advance(time.Minute)
	d = l.Check("x")
	require.True(t, d.Allowed)
	assert.Equal(t, 4, *d.Remaining)
	assert.Equal(t, clock.Now().Add(15*time.Minute), d.ResetAt)
}

func TestCheck_IdentifiersAreIndependent(t *testing.T) {
	l := New(clockwork.NewFakeClock(), 2, time.Minute)
	l.Check("a")
	l.Check("a")
	assert.False(t, l.Check("a").Allowed)
	assert.True(t, l.Check("b").Allowed)
}

func TestNew_Defaults(t *testing.T) {
	l := New(nil, 0, 0)
	assert.Equal(t, DefaultMaxAttempts, l.maxAttempts)
	assert.Equal(t, DefaultWindow, l.window)
	assert.NotNil(t, l.clock)
}

func TestCheck_ConcurrentAttemptsAreNotLost(t *testing.T) {
	const workers = 50
	l := New(clockwork.NewFakeClock(), workers, time.Hour)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			l.Check("shared")
		}()
	}
	wg.Wait()

	assert.False(t, l.Check("shared").Allowed)
}

func TestSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(clock, 5, time.Minute)
	l.Check("old")
	clock.Advance(30 * time.Second)
	l.Check("new")
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	assert.Len(t, l.windows, 1)
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		email, addr, want string
	}{
		{"Alice@Example.com ", "10.0.0.1", "alice@example.com"},
		{"", "10.0.0.1", "10.0.0.1"},
		{" ", "", UnknownIdentifier},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q/%q", tt.email, tt.addr), func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.email, tt.addr))
		})
	}
}

func TestError_UnwrapsToRateLimited(t *testing.T) {
	var err error = &Error{Decision: Decision{Message: "slow down"}}
	assert.True(t, errors.Is(err, common.ErrRateLimited))
	assert.Equal(t, "slow down", err.Error())
}
