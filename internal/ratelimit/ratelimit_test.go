package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestBuckets_AllowsThenBlocks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	b := NewBuckets(clock, 60, 2)

	for i := 0; i < 2; i++ {
		if !b.Allow("1.2.3.4") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if b.Allow("1.2.3.4") {
		t.Fatalf("third request should be limited")
	}
	if !b.Allow("5.6.7.8") {
		t.Fatalf("other keys have their own bucket")
	}

	clock.Advance(1100 * time.Millisecond)
	if !b.Allow("1.2.3.4") {
		t.Fatalf("want pass after refill")
	}
}

func TestWindow_FixedWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	w := NewWindow(clock, 2, 30*time.Second)

	for i := 0; i < 2; i++ {
		if ok, _ := w.Allow("sais"); !ok {
			t.Fatalf("event %d should pass", i)
		}
	}

	clock.Advance(10 * time.Second)
	ok, wait := w.Allow("sais")
	if ok {
		t.Fatalf("third event inside the window should be rejected")
	}
	if wait != 20*time.Second {
		t.Fatalf("retry after = %v, want 20s", wait)
	}

	clock.Advance(20 * time.Second)
	if ok, _ := w.Allow("sais"); !ok {
		t.Fatalf("want pass once the window closed")
	}
}

func TestWindow_ZeroLengthDisables(t *testing.T) {
	w := NewWindow(clockwork.NewFakeClock(), 1, 0)
	for i := 0; i < 5; i++ {
		if ok, _ := w.Allow("k"); !ok {
			t.Fatalf("disabled window must admit everything")
		}
	}
}
