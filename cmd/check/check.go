// Package check implements the check command, which runs the orchestrator.
package check

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/domain-checker/cmd/common"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/checker"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/config"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/coordination"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/logger"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/metrics"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/schedule"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/session"
	"github.com/jonesrussell/north-cloud/domain-checker/internal/worker"
)

const pushTimeout = 10 * time.Second

type options struct {
	input     string
	output    string
	sessions  int
	storeMode string
	schedule  string
}

// Command returns the check command.
func Command() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check every unresolved domain in the input list",
		Long: `Check reads the input list, skips domains already recorded in the result
store, and checks the rest across concurrent sessions. Domains recorded
as "error" are retried. With --schedule the run repeats on a cron schedule
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.NewCommandDeps(opts.apply(cmd))
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()
			return run(cmd.Context(), cmd.OutOrStdout(), deps)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input list of domains, one per line")
	flags.StringVarP(&opts.output, "output", "o", "", "result store JSON file")
	flags.IntVarP(&opts.sessions, "sessions", "s", 0, "maximum concurrent sessions")
	flags.StringVar(&opts.storeMode, "store-mode", "",
		fmt.Sprintf("store coordination: %s or %s", config.StoreModeOptimistic, config.StoreModeSingleWriter))
	flags.StringVar(&opts.schedule, "schedule", "", `cron spec for recurring runs, e.g. "0 */6 * * *"`)

	return cmd
}

// apply returns a config override for the flags that were set.
func (o *options) apply(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("input") {
			cfg.Input.Path = o.input
		}
		if flags.Changed("output") {
			cfg.Store.Path = o.output
		}
		if flags.Changed("sessions") {
			cfg.Sessions.Max = o.sessions
		}
		if flags.Changed("store-mode") {
			cfg.Store.Mode = o.storeMode
		}
		if flags.Changed("schedule") {
			cfg.Schedule.Cron = o.schedule
		}
	}
}

func run(ctx context.Context, out io.Writer, deps *common.CommandDeps) error {
	cfg := deps.Config
	log := deps.Logger

	orch, cleanup, err := newOrchestrator(ctx, deps)
	if err != nil {
		return err
	}
	defer cleanup()

	once := func(ctx context.Context) error {
		summary, runErr := orch.Run(ctx)
		pushMetrics(ctx, deps)
		if runErr != nil {
			return runErr
		}
		PrintSummary(out, summary)
		return nil
	}

	if cfg.Schedule.Cron == "" {
		return once(ctx)
	}

	runner, err := schedule.New(cfg.Schedule.Cron, func(ctx context.Context) {
		if runErr := once(ctx); runErr != nil {
			log.Error("Scheduled run failed", logger.Error(runErr))
		}
	}, log)
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}

// newOrchestrator builds the session provider, checker and optional claimer.
func newOrchestrator(ctx context.Context, deps *common.CommandDeps) (*orchestrator.Orchestrator, func(), error) {
	cfg := deps.Config
	log := deps.Logger
	cleanup := func() {}

	chk, err := checker.New(cfg.Checker, log, checker.WithMetrics(deps.Metrics))
	if err != nil {
		return nil, cleanup, fmt.Errorf("create checker: %w", err)
	}

	provider := session.NewHTTPProvider(cfg.Sessions, log, session.WithMetrics(deps.Metrics))

	var claimer coordination.Claimer = coordination.NopClaimer{}
	if cfg.Coordination.Enabled {
		client, clientErr := coordination.NewRedisClient(ctx, cfg.Coordination)
		if clientErr != nil {
			return nil, cleanup, fmt.Errorf("connect to redis: %w", clientErr)
		}
		cleanup = func() {
			if closeErr := client.Close(); closeErr != nil {
				log.Warn("Failed to close redis client", logger.Error(closeErr))
			}
		}
		claimer = coordination.NewRedisClaimer(client, cfg.Coordination)
		log.Info("Redis claims enabled", logger.String("addr", cfg.Coordination.RedisAddr))
	}

	orch := orchestrator.New(cfg, orchestrator.Deps{
		Store:    deps.Store,
		Provider: provider,
		Checker:  chk,
		Claimer:  claimer,
		Logger:   log,
		Metrics:  deps.Metrics,
	})
	return orch, cleanup, nil
}

func pushMetrics(ctx context.Context, deps *common.CommandDeps) {
	cfg := deps.Config.Metrics
	if deps.Registry == nil || cfg.PushgatewayURL == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := metrics.Push(pushCtx, cfg.PushgatewayURL, cfg.Job, deps.Registry); err != nil {
		deps.Logger.Warn("Failed to push metrics", logger.Error(err))
	}
}

// PrintSummary renders a run summary as a table.
func PrintSummary(w io.Writer, s *orchestrator.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run summary")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Input domains", s.Input},
		{"Invalid lines", s.InvalidInput},
		{"Duplicates", s.DuplicateInput},
		{"Already resolved", s.Baseline},
		{"Error records retried", s.DroppedErrors},
		{"Unresolved", s.Unresolved},
		{"Workers", s.Workers},
		{"Worker failures", s.WorkerFailures},
	})
	t.AppendSeparator()
	for _, outcome := range worker.Outcomes() {
		t.AppendRow(table.Row{outcome.String(), s.Outcomes[outcome.String()]})
	}
	t.AppendFooter(table.Row{"Duration", s.Duration.Round(time.Millisecond).String()})
	t.Render()
}
