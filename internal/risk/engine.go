package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/richxcame/geoippro/pkg/errtrack"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/richxcame/geoippro/internal/risk"

// Timeouts bound each external call.
type Timeouts struct {
	Geo        time.Duration
	Reputation time.Duration
	Geocode    time.Duration
	Port       time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Geo:        2 * time.Second,
		Reputation: 5 * time.Second,
		Geocode:    5 * time.Second,
		Port:       time.Second,
	}
}

// Engine runs the signal checks in order and stops at the first flag.
// A nil capability makes the checks depending on it produce no evidence.
type Engine struct {
	geo        GeoResolver
	reputation ReputationClient
	ports      PortProbe
	geocoder   BillingGeocoder
	timeouts   Timeouts
	tracer     trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimeouts overrides the per-capability timeouts. Zero fields keep the default.
func WithTimeouts(t Timeouts) EngineOption {
	return func(e *Engine) {
		if t.Geo > 0 {
			e.timeouts.Geo = t.Geo
		}
		if t.Reputation > 0 {
			e.timeouts.Reputation = t.Reputation
		}
		if t.Geocode > 0 {
			e.timeouts.Geocode = t.Geocode
		}
		if t.Port > 0 {
			e.timeouts.Port = t.Port
		}
	}
}

// WithTracer sets the tracer used for evaluation spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// NewEngine creates an engine over the given capabilities.
func NewEngine(geo GeoResolver, reputation ReputationClient, ports PortProbe, geocoder BillingGeocoder, opts ...EngineOption) *Engine {
	e := &Engine{
		geo:        geo,
		reputation: reputation,
		ports:      ports,
		geocoder:   geocoder,
		timeouts:   DefaultTimeouts(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the enabled checks against req and returns the verdict.
// It never fails: capability errors count as no evidence and a panic yields
// a clear verdict.
func (e *Engine) Evaluate(ctx context.Context, req RequestContext, cfg Configuration) (verdict Verdict) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "risk.Evaluate", trace.WithAttributes(attribute.String("risk.ip", req.IP)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			evaluationPanicsTotal.Inc()
			logger.WithContext(ctx).Error("risk evaluation panicked",
				zap.Any("panic", r),
				zap.String("ip", req.IP),
			)
			errtrack.CaptureRecovered(ctx, r)
			span.SetStatus(codes.Error, "panic")
			verdict = ClearVerdict()
		}
		evaluationsTotal.WithLabelValues(verdictLabel(verdict)).Inc()
		evaluationDuration.Observe(time.Since(start).Seconds())
		span.SetAttributes(attribute.Bool("risk.is_fraud", verdict.IsFraud))
	}()

	run := &evaluation{engine: e, req: req, cfg: cfg}
	for i, kind := range checkOrder {
		if !run.active(kind) {
			checkOutcomesTotal.WithLabelValues(string(kind), outcomeSkipped).Inc()
			continue
		}
		sig := e.runCheck(ctx, run, kind)
		if sig.IsFlagged() {
			for _, rest := range checkOrder[i+1:] {
				checkOutcomesTotal.WithLabelValues(string(rest), outcomeSkipped).Inc()
			}
			return verdictFrom(sig)
		}
	}
	return ClearVerdict()
}

func (e *Engine) runCheck(ctx context.Context, run *evaluation, kind CheckKind) Signal {
	ctx, span := e.tracer.Start(ctx, "risk.check."+string(kind))
	defer span.End()

	start := time.Now()
	sig, err := run.check(ctx, kind)
	checkDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		checkErrorsTotal.WithLabelValues(string(kind)).Inc()
		checkOutcomesTotal.WithLabelValues(string(kind), outcomeError).Inc()
		span.RecordError(err)
		logger.WithContext(ctx).Warn("risk check unavailable, treating as no evidence",
			zap.String("check", string(kind)),
			zap.String("ip", run.req.IP),
			zap.Error(err),
		)
		return Clear()
	}

	outcome := outcomeClear
	if sig.IsFlagged() {
		outcome = outcomeFlagged
	}
	checkOutcomesTotal.WithLabelValues(string(kind), outcome).Inc()
	span.SetAttributes(attribute.Bool("risk.flagged", sig.IsFlagged()))
	return sig
}

// evaluation carries per-request state, including the memoized geo lookup.
type evaluation struct {
	engine *Engine
	req    RequestContext
	cfg    Configuration
	geo    *GeoInfo
}

func (r *evaluation) active(kind CheckKind) bool {
	if kind == KindReputation {
		return r.cfg.ReputationActive()
	}
	return r.cfg.Enabled(kind)
}

func (r *evaluation) check(ctx context.Context, kind CheckKind) (Signal, error) {
	switch kind {
	case KindReputation:
		return r.reputation(ctx)
	case KindCountryList:
		geo, err := r.geoInfo(ctx)
		if err != nil {
			return Clear(), err
		}
		return CheckCountryList(geo.CountryCode, r.cfg), nil
	case KindMismatch:
		geo, err := r.geoInfo(ctx)
		if err != nil {
			return Clear(), err
		}
		return CheckMismatch(geo.CountryCode, r.req.BillingCountry), nil
	case KindDistance:
		return r.distance(ctx)
	case KindPort:
		port, err := r.engine.firstOpenPort(ctx, r.req.IP)
		if err != nil {
			return Clear(), err
		}
		return CheckOpenPort(r.req.IP, port), nil
	case KindNetworkType:
		geo, err := r.geoInfo(ctx)
		if err != nil {
			return Clear(), err
		}
		return CheckNetworkType(geo.ASNOrganization), nil
	}
	return Clear(), fmt.Errorf("unknown check %q", kind)
}

// geoInfo resolves the request IP once. Failures are not cached so a later
// check may still succeed.
func (r *evaluation) geoInfo(ctx context.Context) (*GeoInfo, error) {
	if r.geo != nil {
		return r.geo, nil
	}
	if r.engine.geo == nil {
		return nil, fmt.Errorf("geo resolver not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.engine.timeouts.Geo)
	defer cancel()

	info, err := r.engine.geo.Resolve(ctx, r.req.IP)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", r.req.IP, err)
	}
	if info == nil {
		info = &GeoInfo{}
	}
	r.geo = info
	return info, nil
}

func (r *evaluation) reputation(ctx context.Context) (Signal, error) {
	if r.engine.reputation == nil {
		return Clear(), fmt.Errorf("reputation client not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.engine.timeouts.Reputation)
	defer cancel()

	report, err := r.engine.reputation.Lookup(ctx, ReputationQuery{
		APIKey: r.cfg.reputationAPIKey,
		Email:  r.req.Email,
		IP:     r.req.IP,
		Name:   r.req.FullName,
		Phone:  r.req.Phone,
	})
	if err != nil {
		return Clear(), fmt.Errorf("reputation lookup: %w", err)
	}
	if report == nil {
		return Clear(), nil
	}
	return CheckReputation(*report, r.cfg.ReputationScoreThreshold()), nil
}

func (r *evaluation) distance(ctx context.Context) (Signal, error) {
	geo, err := r.geoInfo(ctx)
	if err != nil {
		return Clear(), err
	}
	if geo.Location == nil || r.req.BillingAddress.IsZero() {
		return Clear(), nil
	}
	if r.engine.geocoder == nil {
		return Clear(), fmt.Errorf("billing geocoder not configured")
	}

	gctx, cancel := context.WithTimeout(ctx, r.engine.timeouts.Geocode)
	defer cancel()

	billing, err := r.engine.geocoder.Geocode(gctx, r.req.BillingAddress)
	if err != nil {
		return Clear(), fmt.Errorf("geocode billing address: %w", err)
	}

	miles := geo.Location.Distance(billing)
	logger.WithContext(ctx).Debug("distance between IP and billing address",
		zap.String("ip", r.req.IP),
		zap.Float64("miles", miles),
	)
	return CheckDistance(miles, r.cfg.MaxDistanceMiles()), nil
}

// firstOpenPort probes the proxy ports concurrently and returns the
// lowest-indexed open port, or 0.
func (e *Engine) firstOpenPort(ctx context.Context, ip string) (int, error) {
	if e.ports == nil {
		return 0, fmt.Errorf("port probe not configured")
	}
	if ip == "" {
		return 0, nil
	}

	open := make([]bool, len(proxyPorts))
	var g errgroup.Group
	for i, port := range proxyPorts {
		i, port := i, port
		g.Go(func() error {
			open[i] = e.ports.TryConnect(ctx, ip, port, e.timeouts.Port)
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range open {
		if ok {
			return proxyPorts[i], nil
		}
	}
	return 0, nil
}
