package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// tokenBucket: max tokens = burst, refill rate per second.
type tokenBucket struct {
	tokens float64
	last   time.Time
}

// Buckets is a per-key token bucket limiter.
type Buckets struct {
	rate  float64 // tokens per second
	burst float64
	clock clockwork.Clock
	mu    sync.Mutex
	m     map[string]*tokenBucket
}

func NewBuckets(clock clockwork.Clock, reqPerMin, burst int) *Buckets {
	if burst < 1 {
		burst = 1
	}
	return &Buckets{
		rate:  float64(reqPerMin) / 60.0,
		burst: float64(burst),
		clock: clock,
		m:     make(map[string]*tokenBucket),
	}
}

func (b *Buckets) Allow(key string) bool {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	tb := b.m[key]
	if tb == nil {
		tb = &tokenBucket{tokens: b.burst, last: now}
		b.m[key] = tb
	}
	elapsed := now.Sub(tb.last).Seconds()
	tb.tokens = min(b.burst, tb.tokens+elapsed*b.rate)
	tb.last = now

	if tb.tokens < 1.0 {
		return false
	}
	tb.tokens -= 1.0
	return true
}

type window struct {
	start time.Time
	count int
}

// Window admits at most limit events per key in each fixed window. The
// window for a key opens with its first admitted event.
type Window struct {
	limit  int
	length time.Duration
	clock  clockwork.Clock
	mu     sync.Mutex
	m      map[string]*window
}

func NewWindow(clock clockwork.Clock, limit int, length time.Duration) *Window {
	if limit < 1 {
		limit = 1
	}
	return &Window{limit: limit, length: length, clock: clock, m: make(map[string]*window)}
}

// Allow reports whether the event is admitted and, if not, how long until
// the current window closes.
func (w *Window) Allow(key string) (bool, time.Duration) {
	if w.length <= 0 {
		return true, 0
	}
	now := w.clock.Now()
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := w.m[key]
	if cur == nil || now.Sub(cur.start) >= w.length {
		w.m[key] = &window{start: now, count: 1}
		return true, 0
	}
	if cur.count >= w.limit {
		return false, cur.start.Add(w.length).Sub(now)
	}
	cur.count++
	return true, 0
}
