// Package schedule runs a job on a cron schedule until the context ends.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
)

// ErrEmptySpec is returned when no cron expression is given.
var ErrEmptySpec = errors.New("empty cron spec")

// Job is one scheduled run.
type Job func(ctx context.Context)

// Runner wraps a cron instance with a single entry. Ticks that fire while the
// previous run is still going are skipped.
type Runner struct {
	spec string
	cron *cron.Cron
	job  Job
	log  logger.Logger
	ctx  context.Context
}

// Parser accepts standard five-field expressions and descriptors such as "@every 1h".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates spec and prepares a Runner for job.
func New(spec string, job Job, log logger.Logger) (*Runner, error) {
	if spec == "" {
		return nil, ErrEmptySpec
	}
	if _, err := Parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	cl := cronLogger{log: log}
	r := &Runner{
		spec: spec,
		job:  job,
		log:  log,
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	return r, nil
}

// Run blocks until ctx is done, then waits for an in-flight job to finish.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	if _, err := r.cron.AddFunc(r.spec, r.tick); err != nil {
		return fmt.Errorf("schedule %q: %w", r.spec, err)
	}

	r.cron.Start()
	r.log.Info("Scheduler started",
		logger.String("spec", r.spec),
		logger.Any("next_run", r.Next()))

	<-ctx.Done()

	r.log.Info("Stopping scheduler")
	<-r.cron.Stop().Done()
	return nil
}

// Next returns the time of the next scheduled run. It is zero before Run.
func (r *Runner) Next() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (r *Runner) tick() {
	if r.ctx.Err() != nil {
		return
	}
	r.job(r.ctx)
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(toFields(keysAndValues), logger.Error(err))...)
}

func toFields(kv []any) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, logger.Any(key, kv[i+1]))
	}
	return fields
}
