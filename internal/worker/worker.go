// Package worker processes one partition of domains through one session.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/coordination"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/session"
)

const defaultTeardownTimeout = 10 * time.Second

// State represents the current state of a worker.
type State int32

const (
	// StateIdle means Run has not started.
	StateIdle State = iota
	// StateBusy means the worker is processing its partition.
	StateBusy
	// StateStopped means Run returned.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome is what happened to one domain.
type Outcome int

const (
	// OutcomeCommitted means this worker persisted the record.
	OutcomeCommitted Outcome = iota
	// OutcomeSkipped means the domain was already in the store.
	OutcomeSkipped
	// OutcomeDiscarded means another writer persisted the domain during the check.
	OutcomeDiscarded
	// OutcomeClaimed means another process holds the claim.
	OutcomeClaimed
	// OutcomeFailed means an unexpected failure; an error record was attempted.
	OutcomeFailed
)

// Outcomes lists every outcome in display order.
func Outcomes() []Outcome {
	return []Outcome{OutcomeCommitted, OutcomeSkipped, OutcomeDiscarded, OutcomeClaimed, OutcomeFailed}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeClaimed:
		return "claimed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Checker resolves the availability of one domain.
type Checker interface {
	Check(ctx context.Context, sess session.Session, name string) domain.Status
}

// Deps are the collaborators a worker needs.
type Deps struct {
	Provider session.Provider
	Checker  Checker
	Ledger   resultstore.Ledger
	// Claimer is optional; nil disables the claim step.
	Claimer coordination.Claimer
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Worker owns a single session for its lifetime.
type Worker struct {
	id              int
	provider        session.Provider
	checker         Checker
	ledger          resultstore.Ledger
	claimer         coordination.Claimer
	log             logger.Logger
	metrics         *metrics.Metrics
	teardownTimeout time.Duration

	state atomic.Int32

	processed atomic.Int64
	committed atomic.Int64
	skipped   atomic.Int64
	discarded atomic.Int64
	claimed   atomic.Int64
	failed    atomic.Int64
	current   atomic.Value
}

// New creates a worker. teardownTimeout bounds session Close.
func New(id int, deps Deps, teardownTimeout time.Duration) *Worker {
	if teardownTimeout <= 0 {
		teardownTimeout = defaultTeardownTimeout
	}
	claimer := deps.Claimer
	if claimer == nil {
		claimer = coordination.NopClaimer{}
	}
	w := &Worker{
		id:              id,
		provider:        deps.Provider,
		checker:         deps.Checker,
		ledger:          deps.Ledger,
		claimer:         claimer,
		log:             deps.Logger.With(logger.Int("worker_id", id)),
		metrics:         deps.Metrics,
		teardownTimeout: teardownTimeout,
	}
	w.state.Store(int32(StateIdle))
	return w
}

// ID returns the worker ID.
func (w *Worker) ID() int { return w.id }

// State returns the current worker state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Run acquires a session and processes partition in order. Per-domain
// failures are recorded and do not stop the run. The returned error is
// non-nil only when the session could not be acquired or ctx was cancelled.
func (w *Worker) Run(ctx context.Context, partition []string) error {
	w.state.Store(int32(StateBusy))
	defer w.state.Store(int32(StateStopped))

	sess, err := w.provider.Acquire(ctx)
	if err != nil {
		w.log.Error("Failed to acquire session", logger.Error(err))
		return fmt.Errorf("worker %d: acquire session: %w", w.id, err)
	}
	log := w.log.With(logger.String("session_id", sess.ID()))
	defer w.release(ctx, sess, log)

	log.Info("Worker started", logger.Int("domains", len(partition)))
	start := time.Now()

	for _, name := range partition {
		if err := ctx.Err(); err != nil {
			log.Warn("Worker interrupted", logger.Error(err))
			return fmt.Errorf("worker %d: %w", w.id, err)
		}

		w.current.Store(name)
		outcome := w.process(ctx, sess, log.With(logger.String("domain", name)), name)
		w.current.Store("")
		w.count(outcome)
	}

	stats := w.Stats()
	log.Info("Worker finished",
		logger.Int64("committed", stats.Committed),
		logger.Int64("skipped", stats.Skipped),
		logger.Int64("discarded", stats.Discarded),
		logger.Int64("claimed", stats.Claimed),
		logger.Int64("failed", stats.Failed),
		logger.Duration("duration", time.Since(start)))
	return nil
}

func (w *Worker) process(ctx context.Context, sess session.Session, log logger.Logger, name string) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic while checking domain",
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
			w.appendError(ctx, log, name)
			outcome = OutcomeFailed
		}
	}()

	if w.ledger.Contains(ctx, name) {
		log.Debug("Domain already recorded, skipping")
		return OutcomeSkipped
	}

	held, err := w.claimer.Claim(ctx, name)
	switch {
	case err != nil:
		log.Warn("Claim failed, continuing unclaimed", logger.Error(err))
	case !held:
		log.Debug("Domain claimed by another process")
		return OutcomeClaimed
	default:
		defer w.releaseClaim(ctx, log, name)
	}

	status := w.checker.Check(ctx, sess, name)

	appended, err := w.ledger.Append(ctx, domain.Record{Domain: name, Status: status})
	if err != nil {
		log.Error("Failed to persist result", logger.String("status", status.String()), logger.Error(err))
		w.appendError(ctx, log, name)
		return OutcomeFailed
	}
	if !appended {
		log.Info("Domain recorded by another worker during check, discarding result",
			logger.String("status", status.String()))
		return OutcomeDiscarded
	}

	log.Info("Domain checked", logger.String("status", status.String()))
	return OutcomeCommitted
}

// appendError makes a best-effort attempt to record name as an error.
func (w *Worker) appendError(ctx context.Context, log logger.Logger, name string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while recording error result", logger.Any("panic", r))
		}
	}()
	if _, err := w.ledger.Append(ctx, domain.Record{Domain: name, Status: domain.StatusError}); err != nil {
		log.Warn("Failed to record error result", logger.Error(err))
	}
}

func (w *Worker) releaseClaim(ctx context.Context, log logger.Logger, name string) {
	if err := w.claimer.Release(context.WithoutCancel(ctx), name); err != nil {
		log.Debug("Failed to release claim", logger.Error(err))
	}
}

// release closes the session within the teardown timeout. Failures are logged only.
func (w *Worker) release(ctx context.Context, sess session.Session, log logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while closing session", logger.Any("panic", r))
		}
	}()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.teardownTimeout)
	defer cancel()

	if err := sess.Close(closeCtx); err != nil {
		log.Warn("Failed to close session", logger.Error(err))
		return
	}
	log.Debug("Session closed")
}

func (w *Worker) count(o Outcome) {
	w.processed.Add(1)
	switch o {
	case OutcomeCommitted:
		w.committed.Add(1)
	case OutcomeSkipped:
		w.skipped.Add(1)
	case OutcomeDiscarded:
		w.discarded.Add(1)
	case OutcomeClaimed:
		w.claimed.Add(1)
	case OutcomeFailed:
		w.failed.Add(1)
	}
	w.metrics.RecordWorkerOutcome(o.String())
}

// Stats holds counters for one worker.
type Stats struct {
	ID            int
	State         State
	Processed     int64
	Committed     int64
	Skipped       int64
	Discarded     int64
	Claimed       int64
	Failed        int64
	CurrentDomain string
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() Stats {
	current, _ := w.current.Load().(string)
	return Stats{
		ID:            w.id,
		State:         w.State(),
		Processed:     w.processed.Load(),
		Committed:     w.committed.Load(),
		Skipped:       w.skipped.Load(),
		Discarded:     w.discarded.Load(),
		Claimed:       w.claimed.Load(),
		Failed:        w.failed.Load(),
		CurrentDomain: current,
	}
}
