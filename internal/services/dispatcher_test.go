package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joshua-takyi/gigboard/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsAndDrains(t *testing.T) {
	d := NewDispatcher(testLogger(), nil, 3, 16, time.Second)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.True(t, d.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	require.NoError(t, d.Shutdown(context.Background()))
	assert.Equal(t, int32(10), ran.Load())

	assert.False(t, d.Submit("late", func(context.Context) error { return nil }))
	// a second shutdown is harmless
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestDispatcherSurvivesFailures(t *testing.T) {
	m := metrics.New()
	d := NewDispatcher(testLogger(), m, 1, 4, time.Second)

	var after atomic.Bool
	d.Submit("boom", func(context.Context) error { panic("boom") })
	d.Submit("fail", func(context.Context) error { return errors.New("nope") })
	d.Submit("ok", func(context.Context) error {
		after.Store(true)
		return nil
	})
	require.NoError(t, d.Shutdown(context.Background()))

	assert.True(t, after.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FanoutFailures))
}

func TestDispatcherTaskTimeout(t *testing.T) {
	d := NewDispatcher(testLogger(), nil, 1, 1, 20*time.Millisecond)

	var deadline atomic.Bool
	d.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})
	require.NoError(t, d.Shutdown(context.Background()))
	assert.True(t, deadline.Load())
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(testLogger(), nil, 1, 1, time.Second)
	release := make(chan struct{})
	started := make(chan struct{})

	d.Submit("blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started
	require.True(t, d.Submit("queued", func(context.Context) error { return nil }))
	assert.False(t, d.Submit("dropped", func(context.Context) error { return nil }))

	close(release)
	require.NoError(t, d.Shutdown(context.Background()))
}
