package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StepFollowsClock(t *testing.T) {
	clock := NewFakeClock(t0)
	e, rec := newTestEngine(t, testConfig())
	s := NewSession(e, clock, 50*time.Millisecond)

	require.NoError(t, s.Do(func(e *Engine) error {
		e.state.Upgrades["organelle"].Count = 2
		return nil
	}))

	clock.Advance(60 * time.Millisecond)
	assert.False(t, s.Step())
	clock.Advance(60 * time.Millisecond)
	assert.True(t, s.Step())

	snap := s.Snapshot()
	assert.InDelta(t, 0.24, snap.Resources[0].Amount, 1e-9)
	assert.Equal(t, t0.Add(120*time.Millisecond), snap.LastAdvance)
	assert.Equal(t, uint64(1), snap.Ticks)
	assert.Equal(t, 1, rec.count(ReasonTick))
}

func TestSession_SerializesConcurrentActions(t *testing.T) {
	clock := NewFakeClock(t0)
	cfg := testConfig()
	cfg.Resources[0].Capacity = 1e6
	e, err := NewEngine(cfg, t0)
	require.NoError(t, err)
	s := NewSession(e, clock, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = s.Do(func(e *Engine) error { return e.PerformClick("rna", 1) })
			}
		}()
	}
	wg.Wait()

	var got float64
	require.NoError(t, s.Do(func(e *Engine) error {
		v, err := e.ResourceView("rna")
		got = v.Amount
		return err
	}))
	assert.Equal(t, 1000.0, got)
}

func TestSession_RunStopsWithContext(t *testing.T) {
	e, _ := newTestEngine(t, testConfig())
	s := NewSession(e, NewFakeClock(t0), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewSession_FallbackIntervalHasFloor(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.MinTickInterval = time.Nanosecond
	e, err := NewEngine(cfg, t0)
	require.NoError(t, err)

	s := NewSession(e, NewFakeClock(t0), 0)
	assert.Equal(t, time.Millisecond, s.interval)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { s.Run(ctx) })
}
