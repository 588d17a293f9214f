package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/hamed0406/saischeck/internal/domain"
	"github.com/hamed0406/saischeck/internal/emoji"
	"github.com/hamed0406/saischeck/internal/metrics"
	"github.com/hamed0406/saischeck/internal/notify"
	"github.com/hamed0406/saischeck/internal/probe"
	"github.com/hamed0406/saischeck/internal/ratelimit"
)

// ErrCooldown is wrapped by *CooldownError.
var ErrCooldown = errors.New("command on cooldown")

type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%v, retry in %s", ErrCooldown, e.RetryAfter)
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// Replies are timestamped in Philippine time regardless of host zone.
var replyZone = time.FixedZone("UTC+8", 8*60*60)

const cooldownKey = "sais"

type Options struct {
	LoginURL      string // for DNS diagnosis after a network error
	Cooldown      time.Duration
	CooldownLimit int
}

type Handler struct {
	logger   *zap.Logger
	prober   probe.Prober
	clock    clockwork.Clock
	emoji    emoji.Lookup
	notifier notify.Notifier
	metrics  *metrics.Metrics
	resolver probe.Resolver
	cooldown *ratelimit.Window
	opts     Options
}

type Option func(*Handler)

func WithNotifier(n notify.Notifier) Option { return func(h *Handler) { h.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(h *Handler) { h.metrics = m } }

func WithResolver(r probe.Resolver) Option { return func(h *Handler) { h.resolver = r } }

// NewHandler expects prober to already be serialized (a *probe.Gate).
func NewHandler(
	logger *zap.Logger,
	prober probe.Prober,
	clock clockwork.Clock,
	lookup emoji.Lookup,
	opts Options,
	options ...Option,
) *Handler {
	h := &Handler{
		logger:   logger,
		prober:   prober,
		clock:    clock,
		emoji:    lookup,
		cooldown: ratelimit.NewWindow(clock, opts.CooldownLimit, opts.Cooldown),
		opts:     opts,
	}
	for _, o := range options {
		o(h)
	}
	return h
}

// Status runs one probe and renders the reply. The report is filled in
// whenever the probe ran; a non-nil error alongside it wraps
// probe.ErrLoginIncomplete. A cooldown rejection returns *CooldownError and
// an empty report.
func (h *Handler) Status(ctx context.Context, surface string) (domain.Report, error) {
	if h.metrics != nil {
		h.metrics.CommandInvocations.WithLabelValues(surface).Inc()
	}
	if ok, wait := h.cooldown.Allow(cooldownKey); !ok {
		if h.metrics != nil {
			h.metrics.CooldownRejections.Inc()
		}
		h.logger.Info("command_cooldown", zap.String("surface", surface), zap.Duration("retry_after", wait))
		return domain.Report{}, &CooldownError{RetryAfter: wait}
	}

	h.logger.Info("command_probe_start", zap.String("surface", surface), zap.String("url", h.opts.LoginURL))
	at := h.clock.Now()
	res, err := h.prober.Probe(ctx)
	if err != nil && !errors.Is(err, probe.ErrLoginIncomplete) {
		// gate wait abandoned; nothing was probed
		return domain.Report{}, err
	}

	report := h.render(at, res, err)
	h.observe(ctx, res, err)

	if h.notifier != nil {
		if nerr := h.notifier.Send(ctx, "UP SAIS status", report.Text); nerr != nil {
			h.logger.Warn("notify_error", zap.Error(nerr))
		}
	}
	return report, err
}

func (h *Handler) render(at time.Time, res probe.Result, err error) domain.Report {
	var tag, text string
	outcome := res.Outcome.String()
	switch {
	case err != nil:
		outcome = "login_incomplete"
		tag, text = domain.TagResponseFail, "UP SAIS is reachable, but the login attempt failed to complete."
	case res.Outcome == probe.ServiceUpLoginSucceeded:
		tag, text = domain.TagLoginOK, "UP SAIS is up!"
	case res.Outcome == probe.ServiceUpLoginFailed:
		tag, text = domain.TagLoginFail, "UP SAIS is up, but could not log in."
	case res.Outcome == probe.ServiceDown:
		tag, text = domain.TagStatusCodeFail, "UP SAIS is down..."
	default:
		tag, text = domain.TagResponseFail, "could not reach UP SAIS."
	}

	reply := fmt.Sprintf("As of %s, %s", at.In(replyZone).Format("15:04:05"), text)
	if h.emoji != nil {
		if deco := h.emoji.Lookup(tag); deco != "" {
			reply = strings.TrimSpace(reply + " " + deco)
		}
	}
	return domain.Report{
		Outcome:    outcome,
		Tag:        tag,
		Text:       reply,
		HTTPStatus: res.StatusCode,
		LatencyMS:  res.LatencyMS,
		CheckedAt:  at.UTC(),
	}
}

func (h *Handler) observe(ctx context.Context, res probe.Result, err error) {
	if h.metrics != nil {
		h.metrics.ProbeDuration.Observe(res.LatencyMS / 1000)
		if err != nil {
			h.metrics.ProbeLoginErrors.Inc()
		} else {
			h.metrics.ProbeOutcomes.WithLabelValues(res.Outcome.String()).Inc()
		}
	}

	fields := []zap.Field{
		zap.String("outcome", res.Outcome.String()),
		zap.Int("status", res.StatusCode),
		zap.String("verdict", string(res.Verdict)),
		zap.Float64("latency_ms", res.LatencyMS),
	}
	switch {
	case err != nil:
		h.logger.Error("command_login_incomplete", append(fields, zap.Error(err))...)
	case res.Outcome == probe.NetworkError:
		d := probe.Diagnose(ctx, h.resolver, h.opts.LoginURL)
		h.logger.Warn("command_network_error", append(fields,
			zap.NamedError("cause", res.Err),
			zap.String("dns_class", d.Class),
			zap.Strings("addrs", d.Addrs),
			zap.Strings("nameservers", d.Nameservers),
			zap.String("resolver_error", d.ResolverError),
		)...)
	default:
		h.logger.Info("command_probe_done", fields...)
	}
}
