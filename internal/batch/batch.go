// Package batch turns a runner configuration into a finished sweep: it
// validates the workspace, materializes run configurations, drives the
// scheduler and reports the outcome.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/me/gosweep/internal/analyzer"
	"github.com/me/gosweep/internal/config"
	"github.com/me/gosweep/internal/launcher"
	"github.com/me/gosweep/internal/publish"
	"github.com/me/gosweep/internal/report"
	"github.com/me/gosweep/internal/scheduler"
	"github.com/me/gosweep/internal/server"
	"github.com/me/gosweep/internal/store"
	"github.com/me/gosweep/internal/sweep"
	"github.com/me/gosweep/pkg/model"
	"github.com/me/gosweep/pkg/properties"
)

// NewID returns a new batch identifier.
func NewID() string {
	return "batch_" + uuid.New().String()
}

// Runner executes batches described by a RunnerConfig.
type Runner struct {
	cfg      config.RunnerConfig
	registry *analyzer.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a Runner. A nil registry uses analyzer.DefaultRegistry.
func NewRunner(cfg config.RunnerConfig, reg *analyzer.Registry, logger *slog.Logger) *Runner {
	if reg == nil {
		reg = analyzer.DefaultRegistry(logger)
	}
	return &Runner{
		cfg:      cfg,
		registry: reg,
		logger:   logger.With("component", "batch"),
		now:      time.Now,
	}
}

// Plan is an expanded, not yet executed batch.
type Plan struct {
	Params   sweep.Params
	Analyzer analyzer.Analyzer
	Specs    []*model.RunSpec
}

// Plan loads the template and params and expands them under dir. Nothing is
// written to disk.
func (r *Runner) Plan(dir string) (*Plan, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	p, template, err := r.load()
	if err != nil {
		return nil, err
	}
	p.Specs = BuildSpecs(dir, template, p.Params, p.Analyzer)
	return p, nil
}

func (r *Runner) load() (*Plan, *properties.Properties, error) {
	a, err := r.registry.Get(r.cfg.Analyzer)
	if err != nil {
		return nil, nil, err
	}
	template, err := properties.LoadFile(r.cfg.TemplatePath())
	if err != nil {
		return nil, nil, &model.SetupError{Field: "template", Message: "cannot read " + r.cfg.TemplatePath(), Err: err}
	}
	params, err := sweep.LoadParams(r.cfg.Params)
	if err != nil {
		return nil, nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	return &Plan{Params: params, Analyzer: a}, template, nil
}

// Run executes one batch. Setup problems are returned as *model.SetupError
// before any process starts; run failures are only counted in the Summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	workspace, err := filepath.Abs(r.cfg.Workspace)
	if err != nil {
		return nil, &model.SetupError{Field: "workspace", Message: "invalid path", Err: err}
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateWorkspace(workspace, r.cfg.Command, r.cfg.RequiredFiles, r.cfg.RequiredDirs); err != nil {
		return nil, err
	}

	plan, template, err := r.load()
	if err != nil {
		return nil, err
	}

	dir, err := CreateBatchDir(workspace, r.now())
	if err != nil {
		return nil, &model.SetupError{Field: "workspace", Message: "cannot create batch directory", Err: err}
	}
	plan.Specs = BuildSpecs(dir, template, plan.Params, plan.Analyzer)

	id := NewID()
	r.logger.Info("batch", "id", id, "dir", dir, "parallelism", r.cfg.Parallelism, "report", r.cfg.Report)
	if r.cfg.PrintParams {
		report.PrintParams(r.logger, plan.Params)
	}

	if err := Materialize(plan.Specs); err != nil {
		return nil, err
	}

	var opts []scheduler.Option
	var ledger store.Store
	b := &model.Batch{
		ID:          id,
		Dir:         dir,
		Workspace:   workspace,
		ReportPath:  r.cfg.Report,
		Analyzer:    r.cfg.Analyzer,
		Parallelism: r.cfg.Parallelism,
		State:       model.BatchStateRunning,
		Total:       len(plan.Specs),
		CreatedAt:   r.now().UTC(),
	}
	if r.cfg.Ledger != "" {
		ledger, err = openLedger(ctx, r.cfg.Ledger, r.logger)
		if err != nil {
			return nil, err
		}
		defer ledger.Close()
		if err := ledger.CreateBatch(ctx, b); err != nil {
			return nil, fmt.Errorf("record batch: %w", err)
		}
		opts = append(opts, scheduler.WithRecorder(store.NewRecorder(ledger, id)))
	}

	l := launcher.New(launcher.Config{
		Command: r.cfg.Command,
		Dir:     workspace,
		Timeout: r.cfg.RunTimeout,
	}, r.logger)
	agg := report.NewAggregator(r.cfg.Report, r.logger)
	sched, err := scheduler.New(scheduler.Config{
		Parallelism:       r.cfg.Parallelism,
		MinLaunchInterval: r.cfg.MinLaunchInterval,
	}, l, plan.Analyzer, agg, r.logger, opts...)
	if err != nil {
		return nil, err
	}

	if r.cfg.StatusAddr != "" {
		stop := r.serveStatus(sched, ledger, id)
		defer stop()
	}

	res := sched.Run(ctx, plan.Specs)

	if ledger != nil {
		r.finishLedger(ledger, b, res, ctx.Err() != nil)
	}

	sum := newSummary(id, dir, r.cfg.Report, res, plan.Analyzer)
	sum.Log(r.logger)
	if r.cfg.PrintBest {
		report.PrintBest(r.logger, sum.Best, sum.HasBest)
	}

	if r.cfg.Publish.Enabled() && agg.Rows() > 0 {
		r.publish(ctx, id)
	}
	return sum, nil
}

func openLedger(ctx context.Context, path string, logger *slog.Logger) (store.Store, error) {
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		return nil, &model.SetupError{Field: "ledger", Message: "cannot open " + path, Err: err}
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, &model.SetupError{Field: "ledger", Message: "migrate " + path, Err: err}
	}
	return st, nil
}

func (r *Runner) finishLedger(st store.Store, b *model.Batch, res *scheduler.Result, cancelled bool) {
	now := r.now().UTC()
	b.State = model.BatchStateCompleted
	if cancelled {
		b.State = model.BatchStateCancelled
	}
	b.Succeeded = res.Total - res.Failed
	b.Failed = res.Failed
	b.CompletedAt = &now
	if err := st.UpdateBatch(context.Background(), b); err != nil {
		r.logger.Warn("ledger update failed", "batch", b.ID, "error", err)
	}
}

// serveStatus starts the status API and returns a function that stops it.
func (r *Runner) serveStatus(sched *scheduler.Scheduler, ledger store.Store, id string) func() {
	opts := []server.Option{server.WithProgress(sched)}
	if ledger != nil {
		opts = append(opts, server.WithLedger(ledger, id))
	}
	srv := server.New(r.logger, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(ctx, r.cfg.StatusAddr); err != nil {
			r.logger.Warn("status server failed", "addr", r.cfg.StatusAddr, "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (r *Runner) publish(ctx context.Context, id string) {
	p, err := publish.New(r.cfg.Publish, r.logger)
	if err == nil {
		_, err = p.Publish(context.WithoutCancel(ctx), id, r.cfg.Report)
	}
	if err != nil {
		var se *model.SetupError
		if errors.As(err, &se) {
			r.logger.Warn("publish misconfigured", "error", err)
			return
		}
		r.logger.Warn("publish failed", "report", r.cfg.Report, "error", err)
	}
}
