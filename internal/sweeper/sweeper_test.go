package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTarget struct {
	cleans atomic.Int32
	checks atomic.Int32
}

func (c *countingTarget) CleanExpiredCSRFTokens(context.Context) {
	c.cleans.Add(1)
}

func (c *countingTarget) IsAuthenticated(context.Context) bool {
	c.checks.Add(1)
	return false
}

func TestRunOnce(t *testing.T) {
	target := &countingTarget{}
	logger, _ := test.NewNullLogger()
	s := New(Config{Logger: logger}, target)

	s.RunOnce(context.Background())
	assert.Equal(t, int32(1), target.cleans.Load())
	assert.Equal(t, int32(1), target.checks.Load())
}

func TestSweepsOnInterval(t *testing.T) {
	target := &countingTarget{}
	logger, hook := test.NewNullLogger()
	s := New(Config{Interval: 5 * time.Millisecond, Logger: logger}, target)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	assert.Eventually(t, func() bool {
		return target.cleans.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	s.Shutdown()
	stopped := target.cleans.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, target.cleans.Load(), "no sweeps after shutdown")
	assert.Equal(t, "sweeper stopped", hook.LastEntry().Message)
}

func TestStopsWithParentContext(t *testing.T) {
	target := &countingTarget{}
	logger, _ := test.NewNullLogger()
	s := New(Config{Interval: time.Millisecond, Logger: logger}, target)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return")
	}
}

func TestDefaultInterval(t *testing.T) {
	s := New(Config{}, &countingTarget{}).(*sweeper)
	assert.Equal(t, DefaultInterval, s.cfg.Interval)
}
