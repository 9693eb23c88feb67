package application

import (
	"context"
	"testing"
	"time"
)

// waitPool só libera vaga quando ctx encerra (nunca há vaga).
type waitPool struct{ calls int }

func (p *waitPool) Acquire(ctx context.Context) (func(), bool) {
	p.calls++
	<-ctx.Done()
	return nil, false
}

type freePool struct{ acquired, released int }

func (p *freePool) Acquire(context.Context) (func(), bool) {
	p.acquired++
	return func() { p.released++ }, true
}

func TestConcurrencyService_NoPoolAlwaysAcquires(t *testing.T) {
	release, ok := ConcurrencyService{}.Acquire(context.Background())
	if !ok || release == nil {
		t.Fatalf("expected a no-op release")
	}
	release()
}

func TestConcurrencyService_GivesUpAfterTimeout(t *testing.T) {
	pool := &waitPool{}
	svc := ConcurrencyService{Pool: pool, AcquireTimeout: 10 * time.Millisecond}

	start := time.Now()
	if _, ok := svc.Acquire(context.Background()); ok {
		t.Fatalf("expected ok=false")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("timeout was not applied")
	}
}

func TestConcurrencyService_ZeroTimeoutFollowsRequestContext(t *testing.T) {
	pool := &waitPool{}
	svc := ConcurrencyService{Pool: pool}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := svc.Acquire(ctx); ok {
		t.Fatalf("expected ok=false for cancelled request")
	}
	if pool.calls != 1 {
		t.Fatalf("expected one Acquire call, got %d", pool.calls)
	}
}

func TestConcurrencyService_ReleaseReturnsSlot(t *testing.T) {
	pool := &freePool{}
	release, ok := ConcurrencyService{Pool: pool, AcquireTimeout: time.Second}.Acquire(context.Background())
	if !ok {
		t.Fatalf("expected ok")
	}
	release()
	if pool.acquired != 1 || pool.released != 1 {
		t.Fatalf("unexpected pool state %+v", pool)
	}
}

func TestConcurrencyService_BusyHookAndSingleRelease(t *testing.T) {
	busy := 0
	svc := ConcurrencyService{Pool: &waitPool{}, AcquireTimeout: time.Millisecond, OnBusy: func() { busy++ }}
	if _, ok := svc.Acquire(context.Background()); ok {
		t.Fatalf("expected ok=false")
	}
	if busy != 1 {
		t.Fatalf("expected OnBusy once, got %d", busy)
	}

	pool := &freePool{}
	release, _ := ConcurrencyService{Pool: pool}.Acquire(context.Background())
	release()
	release()
	if pool.released != 1 {
		t.Fatalf("expected a single release, got %d", pool.released)
	}
}
