package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type passFunc func(ctx context.Context) error

func (f passFunc) RunPass(ctx context.Context) error { return f(ctx) }

func TestNewDefaults(t *testing.T) {
	s := New(passFunc(func(context.Context) error { return nil }), 0, 0, nil)
	assert.Equal(t, time.Minute, s.interval)
	assert.Equal(t, time.Minute, s.timeout)
	assert.Nil(t, s.cleanup)
}

func TestRunDrivesPassAndCleanup(t *testing.T) {
	var passes, cleanups atomic.Int32
	ticked := make(chan struct{}, 16)

	p := passFunc(func(context.Context) error {
		passes.Add(1)
		ticked <- struct{}{}
		return nil
	})
	cleanup := func(context.Context) error {
		cleanups.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(p, 5*time.Millisecond, 0, cleanup).Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-ticked:
		case <-time.After(time.Second):
			t.Fatal("pass never ran")
		}
	}
	cancel()

	// Cleanup follows each pass in the same tick, so after two passes at
	// least the first tick's cleanup has finished.
	assert.GreaterOrEqual(t, passes.Load(), int32(2))
	assert.GreaterOrEqual(t, cleanups.Load(), int32(1))
}

func TestRunSurvivesFailures(t *testing.T) {
	var passes atomic.Int32
	ticked := make(chan struct{}, 16)

	p := passFunc(func(context.Context) error {
		passes.Add(1)
		ticked <- struct{}{}
		return errors.New("boom")
	})
	cleanup := func(context.Context) error { return errors.New("boom too") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(p, 5*time.Millisecond, 0, cleanup).Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-ticked:
		case <-time.After(time.Second):
			t.Fatal("loop stopped after a failed pass")
		}
	}
	cancel()
	assert.GreaterOrEqual(t, passes.Load(), int32(2))
}
