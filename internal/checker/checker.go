// Package checker decides whether a domain is available by querying the
// registrar through a session.
//
// A check is a bounded state machine:
//
//	attempting(n) -> backoff -> attempting(n+1) -> ... -> fallback
//	fallback -> attempting(1) of the next strategy
//	attempting -> circuit wait -> attempting(n)
//	attempting -> resolved | failed
//
// Each strategy gets at most MaxAttempts attempts with linear backoff.
// Transient failures retry; anything else moves straight to the next
// strategy. When every strategy is exhausted the result is domain.StatusError.
//
// A per-strategy circuit breaker is optional. When one is configured and
// open, the check waits for it to let a trial call through instead of
// skipping the strategy. Those waits do not use up attempts, but a strategy
// gives up after MaxAttempts of them in a row.
package checker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/circuitbreaker"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/retry"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/session"
)

var (
	// ErrTransient marks a lookup failure worth retrying.
	ErrTransient = errors.New("transient lookup failure")
	// ErrRejected marks a lookup failure that retrying the same strategy will not fix.
	ErrRejected = errors.New("lookup rejected")
	// ErrNoStrategies is returned by New when no strategy is configured.
	ErrNoStrategies = errors.New("no lookup strategies configured")
)

// Lookup attempt outcomes, used as metric labels.
const (
	outcomeResolved    = "resolved"
	outcomeTransient   = "transient"
	outcomeRejected    = "rejected"
	outcomeBreakerOpen = "breaker_open"
)

// Checker is shared by all workers and safe for concurrent use.
type Checker struct {
	strategies  []Strategy
	maxAttempts int
	backoff     retry.Backoff
	extractor   *Extractor
	breakers    *circuitbreaker.Group // nil when the breaker is disabled
	log         logger.Logger
	metrics     *metrics.Metrics
}

// Option configures a Checker.
type Option func(*Checker)

// WithMetrics records lookup and check metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) { c.metrics = m }
}

// New creates a Checker from cfg.
func New(cfg config.CheckerConfig, log logger.Logger, opts ...Option) (*Checker, error) {
	if len(cfg.Strategies) == 0 {
		return nil, ErrNoStrategies
	}
	for _, s := range cfg.Strategies {
		if !strings.Contains(s.URL, config.DomainPlaceholder) {
			return nil, fmt.Errorf("strategy %q: url must contain %s", s.Name, config.DomainPlaceholder)
		}
	}

	c := &Checker{
		strategies:  strategiesFromConfig(cfg.Strategies),
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     retry.Linear(cfg.BaseDelay),
		extractor:   NewExtractor(cfg),
		log:         log,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Breaker.FailureThreshold > 0 {
		breakerCfg := cfg.Breaker
		breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
			c.metrics.SetBreakerState(name, int(to))
			c.log.Warn("Strategy circuit changed state",
				logger.String("strategy", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		}
		c.breakers = circuitbreaker.NewGroup(breakerCfg)
	}

	return c, nil
}

// Breaker returns the shared circuit breaker for a strategy, or nil when
// the breaker is disabled.
func (c *Checker) Breaker(strategy string) *circuitbreaker.Breaker {
	if c.breakers == nil {
		return nil
	}
	return c.breakers.Get(strategy)
}

type state int

const (
	stateAttempting state = iota
	stateBackoff
	stateCircuitWait
	stateFallback
	stateResolved
	stateFailed
)

// check is the per-call machine state.
type check struct {
	c       *Checker
	sess    session.Session
	domain  string
	log     logger.Logger
	index   int
	attempt int
	waits   int
	status  domain.Status
	lastErr error
}

// Check returns the availability of name. It never returns an error;
// exhausted or cancelled checks yield domain.StatusError.
func (c *Checker) Check(ctx context.Context, sess session.Session, name string) domain.Status {
	start := time.Now()
	m := &check{
		c:       c,
		sess:    sess,
		domain:  name,
		log:     c.log.With(logger.String("domain", name), logger.String("session_id", sess.ID())),
		attempt: 1,
		status:  domain.StatusError,
	}

	st := stateAttempting
	for st != stateResolved && st != stateFailed {
		switch st {
		case stateAttempting:
			st = m.try(ctx)
		case stateBackoff:
			st = m.wait(ctx)
		case stateCircuitWait:
			st = m.waitForCircuit(ctx)
		case stateFallback:
			st = m.fallback()
		}
	}

	if st == stateFailed {
		m.status = domain.StatusError
		m.log.Warn("Check failed", logger.Error(m.lastErr))
	}
	c.metrics.RecordCheck(m.status, time.Since(start))
	return m.status
}

func (m *check) strategy() Strategy { return m.c.strategies[m.index] }

func (m *check) try(ctx context.Context) state {
	strat := m.strategy()
	breaker := m.c.Breaker(strat.Name)
	if breaker != nil {
		if err := breaker.Allow(); err != nil {
			m.lastErr = err
			m.c.metrics.RecordLookupAttempt(strat.Name, outcomeBreakerOpen)
			if m.waits >= m.c.maxAttempts {
				m.log.Debug("Strategy circuit stayed open, falling back", logger.String("strategy", strat.Name))
				return stateFallback
			}
			return stateCircuitWait
		}
	}
	m.waits = 0

	st, err := m.load(ctx, strat)
	if ctx.Err() != nil {
		m.lastErr = fmt.Errorf("check cancelled: %w", ctx.Err())
		return stateFailed
	}
	if errors.Is(err, session.ErrSessionClosed) {
		m.lastErr = err
		return stateFailed
	}

	switch {
	case err == nil:
		record(breaker, true)
		m.status = st
		m.c.metrics.RecordLookupAttempt(strat.Name, outcomeResolved)
		m.log.Debug("Domain resolved",
			logger.String("strategy", strat.Name),
			logger.Int("attempt", m.attempt),
			logger.String("status", st.String()))
		return stateResolved

	case errors.Is(err, ErrTransient):
		record(breaker, false)
		m.lastErr = err
		m.c.metrics.RecordLookupAttempt(strat.Name, outcomeTransient)
		m.log.Debug("Transient lookup failure",
			logger.String("strategy", strat.Name),
			logger.Int("attempt", m.attempt),
			logger.Error(err))
		if m.attempt < m.c.maxAttempts {
			return stateBackoff
		}
		return stateFallback

	default:
		record(breaker, true)
		m.lastErr = err
		m.c.metrics.RecordLookupAttempt(strat.Name, outcomeRejected)
		m.log.Debug("Lookup rejected", logger.String("strategy", strat.Name), logger.Error(err))
		return stateFallback
	}
}

// load fetches and extracts one page, classifying failures as ErrTransient or ErrRejected.
func (m *check) load(ctx context.Context, strat Strategy) (domain.Status, error) {
	page, err := m.sess.Fetch(ctx, strat.URL(m.domain))
	if err != nil {
		if errors.Is(err, session.ErrSessionClosed) || errors.Is(err, session.ErrTooManyRedirects) {
			return domain.StatusError, fmt.Errorf("%w: %w", ErrRejected, err)
		}
		return domain.StatusError, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	switch {
	case isTransientStatus(page.StatusCode):
		return domain.StatusError, fmt.Errorf("%w: status %d", ErrTransient, page.StatusCode)
	case page.StatusCode >= http.StatusBadRequest:
		return domain.StatusError, fmt.Errorf("%w: status %d", ErrRejected, page.StatusCode)
	}

	st, err := m.c.extractor.Extract(page.Body)
	if err != nil {
		return domain.StatusError, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return st, nil
}

func record(b *circuitbreaker.Breaker, ok bool) {
	switch {
	case b == nil:
	case ok:
		b.Success()
	default:
		b.Failure()
	}
}

// waitForCircuit sleeps until the strategy's open circuit admits a trial call.
func (m *check) waitForCircuit(ctx context.Context) state {
	strat := m.strategy()
	delay := m.c.Breaker(strat.Name).RetryAfter()
	m.log.Debug("Strategy circuit open, waiting",
		logger.String("strategy", strat.Name),
		logger.Duration("delay", delay))
	if err := retry.Sleep(ctx, delay); err != nil {
		m.lastErr = fmt.Errorf("circuit wait interrupted: %w", err)
		return stateFailed
	}
	m.waits++
	return stateAttempting
}

func (m *check) wait(ctx context.Context) state {
	delay := m.c.backoff(m.attempt)
	if err := retry.Sleep(ctx, delay); err != nil {
		m.lastErr = fmt.Errorf("backoff interrupted: %w", err)
		return stateFailed
	}
	m.attempt++
	return stateAttempting
}

func (m *check) fallback() state {
	if m.index+1 >= len(m.c.strategies) {
		return stateFailed
	}
	m.index++
	m.attempt = 1
	m.waits = 0
	m.c.metrics.RecordFallback()
	m.log.Debug("Falling back", logger.String("strategy", m.strategy().Name))
	return stateAttempting
}
