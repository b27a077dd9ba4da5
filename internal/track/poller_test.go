package track

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerStopsOnErrDone(t *testing.T) {
	var ticks int32
	p := NewPoller(time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt32(&ticks, 1) >= 3 {
			return ErrDone
		}
		return nil
	})
	go p.Run(context.Background())

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on ErrDone")
	}
	if got := atomic.LoadInt32(&ticks); got != 3 {
		t.Fatalf("expected 3 ticks, got %d", got)
	}
}

func TestPollerContinuesAfterTickError(t *testing.T) {
	var ticks int32
	p := NewPoller(time.Millisecond, func(ctx context.Context) error {
		n := atomic.AddInt32(&ticks, 1)
		if n == 1 {
			return errors.New("transient fetch failure")
		}
		if n >= 4 {
			return ErrDone
		}
		return nil
	})
	go p.Run(context.Background())

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not survive a failing tick")
	}
	if got := atomic.LoadInt32(&ticks); got != 4 {
		t.Fatalf("expected 4 ticks, got %d", got)
	}
}

func TestPollerStopIdempotent(t *testing.T) {
	p := NewPoller(time.Millisecond, func(ctx context.Context) error { return nil })
	go p.Run(context.Background())

	p.Stop()
	p.Stop()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	// Stopping again after Run returned must not panic either.
	p.Stop()
}

func TestPollerNoTickAfterStop(t *testing.T) {
	var ticks int32
	first := make(chan struct{}, 1)
	p := NewPoller(time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		select {
		case first <- struct{}{}:
		default:
		}
		return nil
	})
	go p.Run(context.Background())

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick before stop")
	}
	p.Stop()
	<-p.Done()

	seen := atomic.LoadInt32(&ticks)
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&ticks); got != seen {
		t.Fatalf("tick fired after stop: %d -> %d", seen, got)
	}
}

func TestPollerSerializedTicks(t *testing.T) {
	var inFlight, maxInFlight, ticks int32
	p := NewPoller(time.Millisecond, func(ctx context.Context) error {
		cur := atomic.AddInt32(&inFlight, 1)
		if cur > atomic.LoadInt32(&maxInFlight) {
			atomic.StoreInt32(&maxInFlight, cur)
		}
		time.Sleep(5 * time.Millisecond) // slower than the interval
		atomic.AddInt32(&inFlight, -1)
		if atomic.AddInt32(&ticks, 1) >= 5 {
			return ErrDone
		}
		return nil
	})
	go p.Run(context.Background())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not finish")
	}
	if got := atomic.LoadInt32(&maxInFlight); got != 1 {
		t.Fatalf("expected serialized ticks, saw %d in flight", got)
	}
}

func TestPollerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(time.Millisecond, func(ctx context.Context) error { return nil })
	go p.Run(ctx)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}
