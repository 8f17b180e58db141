// Package scheduler drives a batch of simulator runs with bounded
// parallelism, spaced launches and isolated failures.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/me/gosweep/internal/gate"
	"github.com/me/gosweep/internal/launcher"
	"github.com/me/gosweep/pkg/model"
)

// Config holds scheduler configuration.
type Config struct {
	// Parallelism bounds the number of live simulator processes.
	Parallelism int

	// MinLaunchInterval is the minimum spacing between two launches.
	MinLaunchInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Parallelism:       4,
		MinLaunchInterval: time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Parallelism < 1 {
		return model.NewSetupError("parallelism", "must be >= 1, got %d", c.Parallelism)
	}
	if c.MinLaunchInterval < 0 {
		return model.NewSetupError("min_launch_interval", "must not be negative, got %s", c.MinLaunchInterval)
	}
	return nil
}

// Launcher executes one run.
type Launcher interface {
	Launch(ctx context.Context, spec *model.RunSpec, sig launcher.Signals) (model.RunOutcome, error)
	ResolveOutput(location string) string
}

// Summarizer extracts the summary of a successful run.
type Summarizer interface {
	Summarize(outputDir string) (model.SummaryRecord, error)
}

// Appender persists one result.
type Appender interface {
	Append(res model.BundledResult) error
}

// Recorder persists run outcomes, e.g. to the run ledger.
type Recorder interface {
	RecordOutcome(ctx context.Context, spec *model.RunSpec, out model.RunOutcome) error
}

// Result is the outcome of a batch.
type Result struct {
	// Results holds one entry per successful run, in completion order.
	Results []model.BundledResult

	// Outcomes holds one entry per run, in spec order.
	Outcomes []model.RunOutcome

	Total   int
	Failed  int
	Elapsed time.Duration
}

// Progress is a point-in-time view of a running batch.
type Progress struct {
	Total     int                    `json:"total"`
	Finished  int                    `json:"finished"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Running   int                    `json:"running"`
	States    map[model.RunState]int `json:"states"`
}

// Scheduler runs batches. A Scheduler runs one batch at a time.
type Scheduler struct {
	cfg        Config
	launcher   Launcher
	summarizer Summarizer
	appender   Appender
	recorder   Recorder
	logger     *slog.Logger

	sem  *Semaphore
	gate *gate.Gate

	mu      sync.Mutex
	tracker *tracker

	// progressMu orders the "finished/total" log lines.
	progressMu sync.Mutex
	finished   int
	total      int

	// reportMu serializes header checks and row writes on the report.
	reportMu sync.Mutex
}

// Option configures optional Scheduler collaborators.
type Option func(*Scheduler)

// WithRecorder records every outcome through r.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// New creates a Scheduler.
func New(cfg Config, l Launcher, sum Summarizer, app Appender, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil || sum == nil || app == nil {
		return nil, errors.New("scheduler: launcher, summarizer and appender are required")
	}
	s := &Scheduler{
		cfg:        cfg,
		launcher:   l,
		summarizer: sum,
		appender:   app,
		logger:     logger.With("component", "scheduler"),
		sem:        NewSemaphore(cfg.Parallelism),
		gate:       gate.New(cfg.MinLaunchInterval),
		tracker:    newTracker(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes every spec exactly once and returns when all of them have
// finished. Run failures never abort the batch; they are counted in
// Result.Failed. Cancelling ctx stops admitting runs and kills live ones.
func (s *Scheduler) Run(ctx context.Context, specs []*model.RunSpec) *Result {
	start := time.Now()

	s.mu.Lock()
	s.tracker = newTracker(specs)
	s.mu.Unlock()
	s.progressMu.Lock()
	s.finished, s.total = 0, len(specs)
	s.progressMu.Unlock()

	s.logger.Info("execution start", "total", len(specs), "parallelism", s.cfg.Parallelism, "interval", s.cfg.MinLaunchInterval)

	outcomes := make([]model.RunOutcome, len(specs))
	var (
		resMu   sync.Mutex
		results []model.BundledResult
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			out, res := s.runOne(gctx, spec)
			outcomes[i] = out
			if res != nil {
				resMu.Lock()
				results = append(results, *res)
				resMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := len(specs) - len(results)
	if failed > 0 {
		s.logger.Warn("tasks failed", "failed", failed, "total", len(specs))
	}
	s.logger.Info("all tasks executed", "succeeded", len(results), "failed", failed)

	return &Result{
		Results:  results,
		Outcomes: outcomes,
		Total:    len(specs),
		Failed:   failed,
		Elapsed:  time.Since(start),
	}
}

// runOne drives one run through its lifecycle. The returned bundle is nil
// unless the run succeeded and was reported.
func (s *Scheduler) runOne(ctx context.Context, spec *model.RunSpec) (model.RunOutcome, *model.BundledResult) {
	t := s.currentTracker()
	cancelled := func(err error) (model.RunOutcome, *model.BundledResult) {
		out := model.RunOutcome{Index: spec.Index, ExitStatus: -1, FinishedAt: time.Now()}
		out.Fail(model.ReasonCancelled)
		s.logger.Error("task error", "run", spec.Index, "reason", out.Reason,
			"config", filepath.Base(spec.ConfigPath), "log", filepath.Base(spec.LogPath), "error", err)
		s.move(t, spec.Index, model.RunStateFailed)
		s.record(spec, out)
		runsTotal.WithLabelValues("failed").Inc()
		return out, nil
	}

	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	if err := s.sem.Acquire(ctx); err != nil {
		return cancelled(err)
	}
	defer s.sem.Release()
	s.move(t, spec.Index, model.RunStateAdmitted)

	s.move(t, spec.Index, model.RunStateWaitingGate)
	waitStart := time.Now()
	ticket, err := s.gate.Acquire(ctx)
	if err != nil {
		return cancelled(err)
	}
	gateWait.Observe(time.Since(waitStart).Seconds())
	s.move(t, spec.Index, model.RunStateLaunched)

	runsActive.Inc()
	out, runErr := s.launcher.Launch(ctx, spec, launcher.Signals{
		Discovered: func(string) {
			s.move(t, spec.Index, model.RunStateGateReleased)
		},
		Release: ticket.Release,
	})
	ticket.Release()
	runsActive.Dec()
	runDuration.Observe(out.Duration().Seconds())
	s.move(t, spec.Index, model.RunStateExited)

	s.progressMu.Lock()
	s.finished++
	s.logger.Info("task finished",
		"progress", fmt.Sprintf("%d/%d", s.finished, s.total),
		"run", spec.Index,
		"duration", out.Duration().Round(10*time.Millisecond),
	)
	s.progressMu.Unlock()

	res, runErr := s.resolve(spec, &out, runErr)
	if runErr != nil {
		s.move(t, spec.Index, model.RunStateFailed)
		runsTotal.WithLabelValues("failed").Inc()
	} else {
		s.move(t, spec.Index, model.RunStateSucceeded)
		runsTotal.WithLabelValues("succeeded").Inc()
	}
	s.record(spec, out)
	return out, res
}

// resolve summarizes and reports a successful run. Any error turns the
// outcome into a failure.
func (s *Scheduler) resolve(spec *model.RunSpec, out *model.RunOutcome, runErr error) (*model.BundledResult, error) {
	if runErr != nil || !out.Succeeded {
		if runErr == nil {
			runErr = fmt.Errorf("run %d failed (%s)", spec.Index, out.Reason)
		}
		return nil, runErr
	}

	fail := func(reason model.FailureReason, err error) (*model.BundledResult, error) {
		out.Fail(reason)
		rerr := &model.RunError{
			Index:      spec.Index,
			Reason:     reason,
			ConfigPath: filepath.Base(spec.ConfigPath),
			LogPath:    filepath.Base(spec.LogPath),
			Err:        err,
		}
		s.logger.Error("task error", "run", spec.Index, "reason", reason,
			"config", rerr.ConfigPath, "log", rerr.LogPath, "output", out.OutputLocation, "error", err)
		return nil, rerr
	}

	summary, err := s.summarizer.Summarize(s.launcher.ResolveOutput(out.OutputLocation))
	if err != nil {
		return fail(model.ReasonSummaryFailed, err)
	}

	res := model.BundledResult{
		Output:   filepath.Base(out.OutputLocation),
		Modified: spec.Modified,
		Summary:  summary,
	}.Clone()

	s.reportMu.Lock()
	err = s.appender.Append(res.Clone())
	s.reportMu.Unlock()
	if err != nil {
		return fail(model.ReasonReportFailed, err)
	}
	reportRowsTotal.Inc()
	return &res, nil
}

func (s *Scheduler) move(t *tracker, index int, next model.RunState) {
	if err := t.transition(index, next); err != nil {
		s.logger.Warn("run state", "run", index, "error", err)
	}
}

func (s *Scheduler) record(spec *model.RunSpec, out model.RunOutcome) {
	if s.recorder == nil {
		return
	}
	// Outcomes of cancelled batches are still recorded.
	if err := s.recorder.RecordOutcome(context.Background(), spec, out); err != nil {
		s.logger.Warn("record outcome", "run", spec.Index, "error", err)
	}
}

func (s *Scheduler) currentTracker() *tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker
}

// State returns the lifecycle state of run index in the current batch.
func (s *Scheduler) State(index int) model.RunState {
	return s.currentTracker().state(index)
}

// Progress returns a snapshot of the current batch.
func (s *Scheduler) Progress() Progress {
	counts := s.currentTracker().counts()
	s.progressMu.Lock()
	p := Progress{Total: s.total, Finished: s.finished}
	s.progressMu.Unlock()
	p.Succeeded = counts[model.RunStateSucceeded]
	p.Failed = counts[model.RunStateFailed]
	p.Running = counts[model.RunStateLaunched] + counts[model.RunStateGateReleased]
	p.States = counts
	return p
}
