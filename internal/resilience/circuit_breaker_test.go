// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockClock struct {
	now time.Time
}

func (m *mockClock) Now() time.Time { return m.now }

var errUpstream = errors.New("upstream 503")

func TestCircuitBreaker_TripsAfterThreshold(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 3, 10*time.Second, WithClock(clock))

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	}
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.ErrorIs(t, cb.Check(context.Background()), ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("test", 2, time.Second)
	_ = cb.Execute(func() error { return errUpstream })
	require.NoError(t, cb.Execute(func() error { return nil }))
	_ = cb.Execute(func() error { return errUpstream })
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 10*time.Second, WithClock(clock))

	_ = cb.Execute(func() error { return errUpstream })
	require.Equal(t, StateOpen, cb.State())

	clock.now = clock.now.Add(11 * time.Second)
	_ = cb.Execute(func() error { return errUpstream })
	assert.Equal(t, StateOpen, cb.State(), "failed probe reopens")

	clock.now = clock.now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CheckReopensAfterReset(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, 30*time.Second, WithClock(clock))
	ctx := context.Background()

	require.NoError(t, cb.Check(ctx))
	_ = cb.Execute(func() error { return errUpstream })
	assert.ErrorIs(t, cb.Check(ctx), ErrCircuitOpen)

	clock.now = clock.now.Add(10 * time.Minute)
	for range 3 {
		assert.NoError(t, cb.Check(ctx), "callers gating on Check must reach the probe")
	}
	assert.Equal(t, StateOpen, cb.State(), "Check does not change state")

	// the gated call runs as the probe and fails: open again, Check blocks again
	_ = cb.Execute(func() error { return errUpstream })
	assert.ErrorIs(t, cb.Check(ctx), ErrCircuitOpen)

	clock.now = clock.now.Add(31 * time.Second)
	require.NoError(t, cb.Check(ctx))
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Check(ctx))
}

func TestCircuitBreaker_SingleProbeInHalfOpen(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	cb := NewCircuitBreaker("test", 1, time.Second, WithClock(clock))
	_ = cb.Execute(func() error { return errUpstream })
	clock.now = clock.now.Add(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = cb.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, cb.Execute(func() error { return nil }), ErrCircuitOpen)
	close(release)
	wg.Wait()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_FailurePredicate(t *testing.T) {
	errBadRequest := errors.New("400")
	cb := NewCircuitBreaker("test", 1, time.Second, WithFailurePredicate(func(err error) bool {
		return !errors.Is(err, errBadRequest)
	}))

	_ = cb.Execute(func() error { return errBadRequest })
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(func() error { return context.Canceled })
	assert.Equal(t, StateOpen, cb.State(), "custom predicate replaces the default")
}
