package gen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ybcg-build/ybcg/internal/msg"
)

const BuildDir = "build"

const (
	StepMkdir     = "mkdir"
	StepConfigure = "configure"
	StepBuild     = "build"
)

var (
	errCMakeNotFound = errors.New("cmake not found (install it or set $CMAKE)")
	errPriorFailure  = errors.New("skipped after an earlier step failed")
)

// Status is the outcome class of a single build step
type Status int

const (
	StatusSuccess Status = iota
	StatusExited         // ran and exited with a non-zero code
	StatusSignaled       // killed by a signal, including the kill sent when ctx is canceled mid-step
	StatusError          // could not be run at all, or ctx was already canceled before the step started
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusExited:
		return "exited"
	case StatusSignaled:
		return "signaled"
	case StatusError:
		return "error"
	case StatusSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type StepOutcome struct {
	Step     string
	Status   Status
	ExitCode int
	Signal   string
	Err      error
}

func (o StepOutcome) Failed() bool {
	return o.Status != StatusSuccess
}

func (o StepOutcome) String() string {
	switch o.Status {
	case StatusSuccess:
		return o.Step + ": ok"
	case StatusExited:
		return fmt.Sprintf("%s: exit code %d", o.Step, o.ExitCode)
	case StatusSignaled:
		return fmt.Sprintf("%s: %s", o.Step, o.Signal)
	default:
		return fmt.Sprintf("%s: %s: %v", o.Step, o.Status, o.Err)
	}
}

// Report collects the outcome of every step of one smoke build, in order
type Report struct {
	BuildDir string
	Steps    []StepOutcome
}

func (r Report) OK() bool {
	return r.FirstFailure() == nil
}

// FirstFailure returns the step that stopped the build, or nil
func (r Report) FirstFailure() *StepOutcome {
	for i := range r.Steps {
		if r.Steps[i].Failed() && r.Steps[i].Status != StatusSkipped {
			return &r.Steps[i]
		}
	}
	return nil
}

// BuildError is returned when a smoke build fails under FailurePolicyFail
type BuildError struct {
	Report Report
}

func (e *BuildError) Error() string {
	if f := e.Report.FirstFailure(); f != nil {
		return "smoke build failed: " + f.String()
	}
	return "smoke build failed"
}

func (e *BuildError) Unwrap() error {
	if f := e.Report.FirstFailure(); f != nil {
		return f.Err
	}
	return nil
}

// FailurePolicy decides what a failed smoke build means for the whole run
type FailurePolicy string

const (
	FailurePolicyFail   FailurePolicy = "fail"
	FailurePolicyWarn   FailurePolicy = "warn"
	FailurePolicyIgnore FailurePolicy = "ignore"
)

// Handle turns a report into the run's error under policy p
func (p FailurePolicy) Handle(r Report) error {
	if r.OK() {
		return nil
	}
	failure := r.FirstFailure()
	switch p {
	case FailurePolicyWarn:
		msg.Warn("smoke build failed (%s), continuing", failure)
		return nil
	case FailurePolicyIgnore:
		msg.Info("smoke build failed (%s), ignored", failure)
		return nil
	default:
		return &BuildError{Report: r}
	}
}

// CMakeTrigger runs `cmake ..` and `cmake --build .` inside <project>/build
type CMakeTrigger struct {
	CMake  string   // path to cmake, "" if it could not be found
	Env    []string // subprocess environment, nil inherits the process environment
	Stdout io.Writer
	Stderr io.Writer

	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Run performs the smoke build. Subprocesses get the build directory as
// their working directory; the process working directory is never changed.
func (t *CMakeTrigger) Run(ctx context.Context, projectDir string) Report {
	buildDir := filepath.Join(projectDir, BuildDir)
	report := Report{BuildDir: buildDir}

	steps := []struct {
		name string
		run  func() error
	}{
		{StepMkdir, func() error { return os.MkdirAll(buildDir, 0o755) }},
		{StepConfigure, func() error { return t.exec(ctx, buildDir, "..") }},
		{StepBuild, func() error { return t.exec(ctx, buildDir, "--build", ".") }},
	}

	failed := false
	for _, step := range steps {
		if failed {
			report.Steps = append(report.Steps, StepOutcome{Step: step.name, Status: StatusSkipped, Err: errPriorFailure})
			continue
		}
		msg.Step("Running", step.name)
		outcome := outcomeOf(step.name, step.run())
		failed = outcome.Failed()
		report.Steps = append(report.Steps, outcome)
	}

	return report
}

func (t *CMakeTrigger) exec(ctx context.Context, dir string, args ...string) error {
	if t.CMake == "" {
		return errCMakeNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	command := t.command
	if command == nil {
		command = exec.CommandContext
	}
	cmd := command(ctx, t.CMake, args...)
	cmd.Dir = dir
	if t.Env != nil {
		cmd.Env = t.Env
	}
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	return cmd.Run()
}

// outcomeOf classifies the error returned by a step
func outcomeOf(step string, err error) StepOutcome {
	if err == nil {
		return StepOutcome{Step: step, Status: StatusSuccess}
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return StepOutcome{Step: step, Status: StatusError, ExitCode: -1, Err: err}
	}

	// ExitCode is -1 when the process was terminated by a signal
	if code := exitErr.ExitCode(); code >= 0 {
		return StepOutcome{Step: step, Status: StatusExited, ExitCode: code, Err: err}
	}
	return StepOutcome{
		Step:     step,
		Status:   StatusSignaled,
		ExitCode: -1,
		Signal:   strings.TrimPrefix(exitErr.ProcessState.String(), "signal: "),
		Err:      err,
	}
}
