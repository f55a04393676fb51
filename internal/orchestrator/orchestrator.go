// Package orchestrator runs one complete availability pass over the input list.
package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/coordination"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/domain"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/partition"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/resultstore"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/session"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/worker"
)

// Summary describes a finished run.
type Summary struct {
	Input          int              `json:"input"           yaml:"input"`
	InvalidInput   int              `json:"invalid_input"   yaml:"invalid_input"`
	DuplicateInput int              `json:"duplicate_input" yaml:"duplicate_input"`
	Baseline       int              `json:"baseline"        yaml:"baseline"`
	DroppedErrors  int              `json:"dropped_errors"  yaml:"dropped_errors"`
	Unresolved     int              `json:"unresolved"      yaml:"unresolved"`
	Workers        int              `json:"workers"         yaml:"workers"`
	WorkerFailures int              `json:"worker_failures" yaml:"worker_failures"`
	Outcomes       map[string]int64 `json:"outcomes"        yaml:"outcomes"`
	Duration       time.Duration    `json:"duration"        yaml:"duration"`
}

// Deps are the collaborators shared by every worker of a run.
type Deps struct {
	Store    resultstore.Backend
	Provider session.Provider
	Checker  worker.Checker
	// Claimer is optional.
	Claimer coordination.Claimer
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Orchestrator wires the input list, the store and a pool of workers.
type Orchestrator struct {
	inputPath       string
	maxSessions     int
	storeMode       string
	teardownTimeout time.Duration
	deps            Deps
	log             logger.Logger
}

// New creates an orchestrator for cfg.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	return &Orchestrator{
		inputPath:       cfg.Input.Path,
		maxSessions:     cfg.Sessions.Max,
		storeMode:       cfg.Store.Mode,
		teardownTimeout: cfg.Sessions.TeardownTimeout,
		deps:            deps,
		log:             deps.Logger,
	}
}

// Run performs one pass. The only errors returned are fatal ones, such as
// an unreadable input list; per-domain and per-worker failures are counted
// in the summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	list, err := domain.LoadList(o.inputPath)
	if err != nil {
		return nil, fmt.Errorf("load input list: %w", err)
	}
	for _, bad := range list.Invalid {
		o.log.Warn("Skipping invalid domain", logger.String("input", bad))
	}

	summary := &Summary{
		Input:          len(list.Domains),
		InvalidInput:   len(list.Invalid),
		DuplicateInput: list.Duplicates,
		Outcomes:       map[string]int64{},
	}

	baseline := o.reconcile(ctx, summary)
	unresolved := domain.Unresolved(list.Domains, baseline)
	summary.Unresolved = len(unresolved)

	o.log.Info("Starting run",
		logger.Int("input", summary.Input),
		logger.Int("baseline", summary.Baseline),
		logger.Int("unresolved", summary.Unresolved))

	if len(unresolved) == 0 {
		summary.Duration = time.Since(start)
		o.log.Info("Nothing to check")
		return summary, nil
	}

	ledger, stop := o.ledger(ctx)
	defer stop()

	parts := partition.Split(unresolved, o.maxSessions)
	summary.Workers = len(parts)
	workers := make([]*worker.Worker, len(parts))
	errs := make([]error, len(parts))

	var wg sync.WaitGroup
	for i, part := range parts {
		workers[i] = worker.New(i+1, worker.Deps{
			Provider: o.deps.Provider,
			Checker:  o.deps.Checker,
			Ledger:   ledger,
			Claimer:  o.deps.Claimer,
			Logger:   o.log,
			Metrics:  o.deps.Metrics,
		}, o.teardownTimeout)

		wg.Add(1)
		go func(i int, part []string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("worker %d panicked: %v", i+1, r)
					o.log.Error("Worker panicked",
						logger.Int("worker_id", i+1),
						logger.Any("panic", r),
						logger.String("stack", string(debug.Stack())))
				}
			}()
			errs[i] = workers[i].Run(ctx, part)
		}(i, part)
	}
	wg.Wait()

	for i, w := range workers {
		if errs[i] != nil {
			summary.WorkerFailures++
			o.log.Error("Worker failed", logger.Int("worker_id", w.ID()), logger.Error(errs[i]))
		}
		stats := w.Stats()
		summary.Outcomes[worker.OutcomeCommitted.String()] += stats.Committed
		summary.Outcomes[worker.OutcomeSkipped.String()] += stats.Skipped
		summary.Outcomes[worker.OutcomeDiscarded.String()] += stats.Discarded
		summary.Outcomes[worker.OutcomeClaimed.String()] += stats.Claimed
		summary.Outcomes[worker.OutcomeFailed.String()] += stats.Failed
	}

	summary.Duration = time.Since(start)
	o.log.Info("Run finished",
		logger.Int("workers", summary.Workers),
		logger.Int("worker_failures", summary.WorkerFailures),
		logger.Any("outcomes", summary.Outcomes),
		logger.Duration("duration", summary.Duration))
	return summary, nil
}

// reconcile loads the store and removes error records so those domains are retried.
func (o *Orchestrator) reconcile(ctx context.Context, summary *Summary) domain.Records {
	records := o.deps.Store.Load(ctx)
	filtered := records.WithoutStatus(domain.StatusError)
	summary.DroppedErrors = len(records) - len(filtered)
	summary.Baseline = len(filtered)

	if summary.DroppedErrors > 0 {
		o.log.Info("Retrying domains that previously errored", logger.Int("count", summary.DroppedErrors))
		if err := o.deps.Store.Save(ctx, filtered); err != nil {
			o.log.Error("Failed to save filtered store, continuing with in-memory view", logger.Error(err))
		}
	}
	return filtered
}

func (o *Orchestrator) ledger(ctx context.Context) (resultstore.Ledger, func()) {
	if o.storeMode == config.StoreModeSingleWriter {
		w := resultstore.NewWriter(o.deps.Store, o.log)
		w.Start(ctx)
		return w, w.Close
	}
	return resultstore.NewOptimisticLedger(o.deps.Store), func() {}
}
