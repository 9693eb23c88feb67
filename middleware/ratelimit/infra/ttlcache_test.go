package infra

import (
	"testing"
	"time"
)

func (c *TTLCache) entryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func TestTTLCache_MarkIfAbsentSuppressesUntilExpiry(t *testing.T) {
	clock := newTestClock()
	c := NewTTLCache(WithCacheClock(clock.now))

	if !c.MarkIfAbsent("ip", 15*time.Minute) {
		t.Fatalf("first mark should succeed")
	}
	if c.MarkIfAbsent("ip", 15*time.Minute) {
		t.Fatalf("second mark within ttl should fail")
	}

	clock.t = clock.t.Add(14 * time.Minute)
	if c.MarkIfAbsent("ip", 15*time.Minute) {
		t.Fatalf("expected key still suppressed at 14m")
	}

	clock.t = clock.t.Add(time.Minute)
	if !c.MarkIfAbsent("ip", 15*time.Minute) {
		t.Fatalf("mark after expiry should succeed")
	}
}

func TestTTLCache_ForgetClearsMark(t *testing.T) {
	c := NewTTLCache(WithCacheClock(newTestClock().now))

	c.MarkIfAbsent("ip", time.Hour)
	c.Forget("ip")
	c.Forget("never-marked")

	if !c.MarkIfAbsent("ip", time.Hour) {
		t.Fatalf("expected mark to succeed after Forget")
	}
}

func TestTTLCache_Cleanup(t *testing.T) {
	clock := newTestClock()
	c := NewTTLCache(WithCacheClock(clock.now))

	c.MarkIfAbsent("a", time.Minute)
	c.MarkIfAbsent("b", time.Hour)
	clock.t = clock.t.Add(time.Minute)
	c.Cleanup()

	if c.entryCount() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.entryCount())
	}
}
