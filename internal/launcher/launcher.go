// Package launcher runs one simulator process per run, mirrors its console
// output into a per-run log and detects the output directory it announces.
package launcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/me/gosweep/pkg/model"
)

// Signals are callbacks fired while a run executes. All fields are optional.
type Signals struct {
	// Started fires once the child process is running.
	Started func(pid int)

	// Discovered fires at most once, on the line announcing the output
	// location, before the process necessarily exits.
	Discovered func(location string)

	// Release frees the start gate. It fires on discovery or, failing
	// that, when the process exits or cannot be started. It must tolerate
	// being called more than once.
	Release func()
}

// Config configures a Launcher.
type Config struct {
	// Command is the executable followed by its fixed arguments; the run's
	// configuration path is appended as the final argument.
	Command []string

	// Dir is the working directory of the child process. Relative output
	// locations are resolved against it.
	Dir string

	// SectionHeader and OutputKey select the output announcement markers.
	SectionHeader string
	OutputKey     string

	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration
}

// Launcher starts simulator processes.
type Launcher struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Launcher.
func New(cfg Config, logger *slog.Logger) *Launcher {
	return &Launcher{
		cfg:    cfg,
		logger: logger.With("component", "launcher"),
	}
}

// Launch executes spec and returns its outcome. A failed run yields a
// non-nil *model.RunError alongside the outcome; it is never fatal to the
// caller's batch.
func (l *Launcher) Launch(ctx context.Context, spec *model.RunSpec, sig Signals) (model.RunOutcome, error) {
	outcome := model.RunOutcome{Index: spec.Index, ExitStatus: -1}
	release := sig.Release
	if release == nil {
		release = func() {}
	}
	defer release()

	fail := func(reason model.FailureReason, err error) (model.RunOutcome, error) {
		outcome.Fail(reason)
		if outcome.FinishedAt.IsZero() {
			outcome.FinishedAt = time.Now()
		}
		runErr := &model.RunError{
			Index:      spec.Index,
			Reason:     reason,
			ConfigPath: filepath.Base(spec.ConfigPath),
			LogPath:    filepath.Base(spec.LogPath),
			Err:        err,
		}
		l.logger.Error("task error",
			"run", spec.Index,
			"reason", reason,
			"config", runErr.ConfigPath,
			"log", runErr.LogPath,
			"exit_status", outcome.ExitStatus,
			"output", outcome.OutputLocation,
			"error", err,
		)
		return outcome, runErr
	}

	if len(l.cfg.Command) == 0 {
		return fail(model.ReasonStartFailed, errors.New("empty command"))
	}

	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	logFile, err := os.Create(spec.LogPath)
	if err != nil {
		return fail(model.ReasonStartFailed, fmt.Errorf("create log: %w", err))
	}
	defer logFile.Close()

	args := append(append([]string{}, l.cfg.Command[1:]...), spec.ConfigPath)
	cmd := exec.CommandContext(ctx, l.cfg.Command[0], args...)
	cmd.Dir = l.cfg.Dir
	// The simulator is often a wrapper script; kill its whole process group
	// so no descendant keeps the output pipe open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fail(model.ReasonStartFailed, fmt.Errorf("stdout pipe: %w", err))
	}
	cmd.Stderr = cmd.Stdout

	outcome.StartedAt = time.Now()
	if err := cmd.Start(); err != nil {
		return fail(model.ReasonStartFailed, fmt.Errorf("start: %w", err))
	}
	if sig.Started != nil {
		sig.Started(cmd.Process.Pid)
	}
	l.logger.Debug("process started", "run", spec.Index, "pid", cmd.Process.Pid, "config", spec.ConfigPath)

	scanner := NewOutputScanner(l.cfg.SectionHeader, l.cfg.OutputKey)
	readErr := l.mirror(stdout, logFile, func(line string) {
		if loc, ok := scanner.Feed(line); ok {
			outcome.OutputLocation = loc
			l.logger.Debug("output announced", "run", spec.Index, "output", loc)
			if sig.Discovered != nil {
				sig.Discovered(loc)
			}
			release()
		}
	})

	waitErr := cmd.Wait()
	outcome.FinishedAt = time.Now()
	outcome.ExitStatus = exitStatus(cmd.ProcessState)
	release()

	if readErr != nil {
		l.logger.Warn("reading process output", "run", spec.Index, "error", readErr)
	}

	if reason, err := l.classify(ctx.Err(), waitErr, outcome); reason != model.ReasonNone {
		return fail(reason, err)
	}

	outcome.Succeeded = true
	return outcome, nil
}

// mirror copies r to log line by line and hands every line to onLine.
// Each line reaches the file before the next one is read. The stream is
// drained to EOF even if the log becomes unwritable, so the child never
// blocks on a full pipe.
func (l *Launcher) mirror(r io.Reader, log io.Writer, onLine func(string)) error {
	br := bufio.NewReader(r)
	var logErr error
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimRight(line, "\r\n")
			if logErr == nil {
				if _, werr := io.WriteString(log, line+"\n"); werr != nil {
					logErr = fmt.Errorf("write log: %w", werr)
				}
			}
			onLine(line)
		}
		if err == io.EOF {
			return logErr
		}
		if err != nil {
			return errors.Join(logErr, err)
		}
	}
}

// ResolveOutput returns the announced location as an absolute-or-working-dir
// relative path.
func (l *Launcher) ResolveOutput(location string) string {
	if filepath.IsAbs(location) || l.cfg.Dir == "" {
		return location
	}
	return filepath.Join(l.cfg.Dir, location)
}

func (l *Launcher) isDir(location string) bool {
	info, err := os.Stat(l.ResolveOutput(location))
	return err == nil && info.IsDir()
}

// classify maps a finished process to a failure reason, or ReasonNone when
// the run succeeded. Cancellation only explains a process that did not exit
// cleanly.
func (l *Launcher) classify(ctxErr, waitErr error, outcome model.RunOutcome) (model.FailureReason, error) {
	switch {
	case outcome.ExitStatus != 0 && ctxErr != nil:
		return model.ReasonCancelled, ctxErr
	case outcome.ExitStatus != 0:
		return model.ReasonExitStatus, waitErr
	case outcome.OutputLocation == "":
		return model.ReasonNoOutput, nil
	case !l.isDir(outcome.OutputLocation):
		return model.ReasonOutputMissing, nil
	}
	return model.ReasonNone, nil
}

// exitStatus is -1 when the process never finished or died from a signal.
func exitStatus(state *os.ProcessState) int {
	if state == nil {
		return -1
	}
	return state.ExitCode()
}
