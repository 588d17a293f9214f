package probe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrLoginIncomplete is returned when the portal answered the GET but the
// login POST failed in transport.
var ErrLoginIncomplete = errors.New("portal reachable, login attempt failed to complete")

type Credentials struct {
	TimezoneOffset int
	UserID         string
	Password       string
	RequestID      uint64
}

type Options struct {
	LoginURL    string
	Markers     Markers
	UserAgent   string
	Timeout     time.Duration
	Credentials Credentials
}

// Client runs the two-step login probe. It keeps a single session cookie
// slot, so a Client must not run two cycles at once; wrap it in a Gate when
// it is shared.
type Client struct {
	http    *resty.Client
	opts    Options
	log     *zap.Logger
	cookies string
}

func NewClient(log *zap.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := resty.New()
	hc.SetTimeout(opts.Timeout)
	// cookies travel only through the explicit Cookie header
	hc.SetCookieJar(nil)
	hc.SetLogger(log.Sugar())
	return &Client{http: hc, opts: opts, log: log}
}

// Cookies returns the session cookie string of the last cycle.
func (c *Client) Cookies() string { return c.cookies }

func (c *Client) Probe(ctx context.Context) (Result, error) {
	start := time.Now()
	elapsed := func() float64 { return time.Since(start).Seconds() * 1000 }

	c.cookies = ""
	res, err := c.http.R().SetContext(ctx).Get(c.opts.LoginURL)
	if err != nil {
		c.log.Warn("probe_network_error", zap.String("url", c.opts.LoginURL), zap.Error(err))
		return Result{Outcome: NetworkError, Err: err, LatencyMS: elapsed()}, nil
	}
	c.saveCookies(res.Header())

	if !res.IsSuccess() {
		c.log.Info("probe_service_down", zap.Int("status", res.StatusCode()))
		return Result{Outcome: ServiceDown, StatusCode: res.StatusCode(), LatencyMS: elapsed()}, nil
	}

	login, err := c.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", c.opts.UserAgent).
		SetHeader("Cookie", c.cookies).
		SetFormData(c.form()).
		Post(c.opts.LoginURL)
	if err != nil {
		c.log.Error("probe_login_incomplete", zap.Error(err))
		return Result{StatusCode: res.StatusCode(), LatencyMS: elapsed()}, fmt.Errorf("%w: %w", ErrLoginIncomplete, err)
	}

	body := login.String()
	outcome, verdict := classify(body, c.opts.Markers)
	switch verdict {
	case VerdictRejected:
		c.log.Info("login_rejected", zap.Int("status", login.StatusCode()))
	case VerdictIndeterminate:
		c.log.Warn("login_indeterminate",
			zap.Int("status", login.StatusCode()),
			zap.String("title", pageTitle(body)),
			zap.Int("body_bytes", len(body)),
		)
	}
	return Result{
		Outcome:    outcome,
		StatusCode: login.StatusCode(),
		Verdict:    verdict,
		LatencyMS:  elapsed(),
	}, nil
}

func (c *Client) saveCookies(h http.Header) {
	for _, v := range h.Values("Set-Cookie") {
		c.cookies = c.cookies + ";" + v
	}
}

func (c *Client) form() map[string]string {
	cr := c.opts.Credentials
	return map[string]string{
		"timezoneOffset": strconv.Itoa(cr.TimezoneOffset),
		"userid":         cr.UserID,
		"pwd":            cr.Password,
		"request_id":     strconv.FormatUint(cr.RequestID, 10),
	}
}
