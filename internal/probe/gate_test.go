package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sessionPortal hands out a fresh cookie per GET and records the order of
// requests along with the cookie each login carried.
type sessionPortal struct {
	mu     sync.Mutex
	n      int
	events []string
}

func (p *sessionPortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	switch r.Method {
	case http.MethodGet:
		p.n++
		sid := fmt.Sprintf("sid=%d", p.n)
		p.events = append(p.events, "GET "+sid)
		p.mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		w.Header().Add("Set-Cookie", sid)
		_, _ = w.Write([]byte("login page"))
	case http.MethodPost:
		p.events = append(p.events, "POST "+r.Header.Get("Cookie"))
		p.mu.Unlock()
		_, _ = w.Write([]byte("LOGIN_OK"))
	default:
		p.mu.Unlock()
	}
}

func TestGate_SerializesCycles(t *testing.T) {
	p := &sessionPortal{}
	ts := httptest.NewServer(p)
	defer ts.Close()

	gate := NewGate(newTestClient(ts.URL, 2*time.Second))

	const n = 4
	var wg sync.WaitGroup
	outcomes := make([]Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := gate.Probe(context.Background())
			assert.NoError(t, err)
			outcomes[i] = res.Outcome
		}(i)
	}
	wg.Wait()

	for _, o := range outcomes {
		assert.Equal(t, ServiceUpLoginSucceeded, o)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Len(t, p.events, 2*n)
	for i := 0; i < len(p.events); i += 2 {
		var sid string
		_, err := fmt.Sscanf(p.events[i], "GET %s", &sid)
		require.NoError(t, err, p.events[i])
		assert.Equal(t, "POST ;"+sid, p.events[i+1], "cycle %d interleaved: %v", i/2, p.events)
	}
}

type blockingProber struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingProber) Probe(ctx context.Context) (Result, error) {
	b.started <- struct{}{}
	<-b.release
	return Result{Outcome: ServiceUpLoginSucceeded}, ctx.Err()
}

func TestGate_WaiterGivesUpOnContext(t *testing.T) {
	bp := &blockingProber{started: make(chan struct{}, 1), release: make(chan struct{})}
	gate := NewGate(bp)

	done := make(chan error, 1)
	go func() {
		_, err := gate.Probe(context.Background())
		done <- err
	}()
	<-bp.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := gate.Probe(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(bp.release)
	require.NoError(t, <-done)
}

func TestGate_RunningCycleIgnoresCancel(t *testing.T) {
	bp := &blockingProber{started: make(chan struct{}, 1), release: make(chan struct{})}
	gate := NewGate(bp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := gate.Probe(ctx)
		done <- err
	}()
	<-bp.started
	cancel()
	close(bp.release)

	assert.NoError(t, <-done)
}
