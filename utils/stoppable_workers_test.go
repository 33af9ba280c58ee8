package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var stopped atomic.Int32
	waitForStop := func(ctx context.Context) {
		<-ctx.Done()
		stopped.Add(1)
	}

	sw := NewStoppableWorkersWithContext(context.Background(), waitForStop, waitForStop)
	sw.AddWorkers(waitForStop)
	test.That(t, sw.Context().Err(), test.ShouldBeNil)

	sw.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(3))
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// workers added after Stop never run
	sw.AddWorkers(waitForStop)
	sw.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, int32(3))
}

func TestStoppableWorkersParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sw := NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	sw.Stop()
}
