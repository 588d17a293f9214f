package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type portal struct {
	getStatus  int
	getCookies []string
	getDelay   atomic.Int64
	postBody   string

	gets  atomic.Int32
	posts atomic.Int32

	mu       sync.Mutex
	lastPost *http.Request
}

func (p *portal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p.gets.Add(1)
		if d := time.Duration(p.getDelay.Load()); d > 0 {
			time.Sleep(d)
		}
		for _, c := range p.getCookies {
			w.Header().Add("Set-Cookie", c)
		}
		status := p.getStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("<html><title>Sign In</title></html>"))
	case http.MethodPost:
		p.posts.Add(1)
		_ = r.ParseForm()
		p.mu.Lock()
		p.lastPost = r
		p.mu.Unlock()
		_, _ = w.Write([]byte(p.postBody))
	}
}

func (p *portal) post() *http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPost
}

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(zap.NewNop(), Options{
		LoginURL:  url,
		Markers:   Markers{Success: "LOGIN_OK", Invalid: "Your User ID and/or Password are invalid."},
		UserAgent: "Is UP SAIS down?/1.0",
		Timeout:   timeout,
		Credentials: Credentials{
			TimezoneOffset: -480,
			UserID:         "201912345",
			Password:       "hunter2",
			RequestID:      42,
		},
	})
}

func TestClient_LoginSucceeded_SendsSessionCookie(t *testing.T) {
	p := &portal{getCookies: []string{"sid=abc"}, postBody: "<p>...LOGIN_OK...</p>"}
	ts := httptest.NewServer(p)
	defer ts.Close()

	c := newTestClient(ts.URL, 2*time.Second)
	res, err := c.Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ServiceUpLoginSucceeded, res.Outcome)
	assert.Equal(t, VerdictSucceeded, res.Verdict)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, ";sid=abc", c.Cookies())

	require.EqualValues(t, 1, p.posts.Load())
	post := p.post()
	assert.Equal(t, ";sid=abc", post.Header.Get("Cookie"))
	assert.Equal(t, "Is UP SAIS down?/1.0", post.Header.Get("User-Agent"))
	assert.Contains(t, post.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
	assert.Equal(t, "-480", post.PostForm.Get("timezoneOffset"))
	assert.Equal(t, "201912345", post.PostForm.Get("userid"))
	assert.Equal(t, "hunter2", post.PostForm.Get("pwd"))
	assert.Equal(t, "42", post.PostForm.Get("request_id"))
}

func TestClient_ConcatenatesCookiesInHeaderOrder(t *testing.T) {
	p := &portal{getCookies: []string{"a=1", "b=2"}, postBody: "LOGIN_OK"}
	ts := httptest.NewServer(p)
	defer ts.Close()

	c := newTestClient(ts.URL, 2*time.Second)
	_, err := c.Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ";a=1;b=2", c.Cookies())
	assert.Equal(t, ";a=1;b=2", p.post().Header.Get("Cookie"))
}

func TestClient_CookiesResetEachCycle(t *testing.T) {
	p := &portal{getCookies: []string{"sid=abc"}, postBody: "LOGIN_OK"}
	ts := httptest.NewServer(p)
	defer ts.Close()

	c := newTestClient(ts.URL, 2*time.Second)
	for i := 0; i < 3; i++ {
		_, err := c.Probe(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, ";sid=abc", c.Cookies())
}

func TestClient_NonSuccessStatusIsServiceDown(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusNotFound} {
		p := &portal{getStatus: status, getCookies: []string{"sid=x"}}
		ts := httptest.NewServer(p)

		c := newTestClient(ts.URL, 2*time.Second)
		res, err := c.Probe(context.Background())
		ts.Close()

		require.NoError(t, err)
		assert.Equal(t, ServiceDown, res.Outcome, "status %d", status)
		assert.Equal(t, status, res.StatusCode)
		assert.EqualValues(t, 0, p.posts.Load(), "no login attempt on status %d", status)
	}
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	p := &portal{getCookies: []string{"sid=abc"}, postBody: "LOGIN_OK"}
	ts := httptest.NewServer(p)
	defer ts.Close()

	c := newTestClient(ts.URL, 50*time.Millisecond)
	_, err := c.Probe(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, c.Cookies())

	p.getDelay.Store(int64(200 * time.Millisecond))
	res, err := c.Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, NetworkError, res.Outcome)
	assert.Error(t, res.Err)
	assert.Equal(t, 0, res.StatusCode)
	assert.Empty(t, c.Cookies())
	assert.EqualValues(t, 1, p.posts.Load(), "timed out cycle must not log in")
}

func TestClient_UnreachableIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := newTestClient(url, time.Second)
	res, err := c.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NetworkError, res.Outcome)
	assert.Error(t, res.Err)
	assert.Empty(t, c.Cookies())
}

func TestClient_LoginTransportFailureIsDistinctError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Add("Set-Cookie", "sid=abc")
			w.WriteHeader(http.StatusOK)
			return
		}
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("hijack: %v", err)
			return
		}
		_ = conn.Close()
	}))
	defer ts.Close()

	c := newTestClient(ts.URL, 2*time.Second)
	res, err := c.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLoginIncomplete))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Nil(t, res.Err)
}

func TestClient_LoginFailureVerdicts(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		outcome Outcome
		verdict Verdict
	}{
		{"invalid credentials", "<p>Your User ID and/or Password are invalid.</p>", ServiceUpLoginFailed, VerdictRejected},
		{"neither marker", "<html><title>Maintenance</title></html>", ServiceUpLoginFailed, VerdictIndeterminate},
		{"both markers", "LOGIN_OK Your User ID and/or Password are invalid.", ServiceUpLoginSucceeded, VerdictSucceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(&portal{postBody: tc.body})
			defer ts.Close()

			res, err := newTestClient(ts.URL, 2*time.Second).Probe(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, tc.verdict, res.Verdict)
		})
	}
}
