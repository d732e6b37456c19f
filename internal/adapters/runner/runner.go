// Package runner provides the external benchmark executor adapter.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Runner)(nil)

// Runner implements ports.Executor by shelling out to an external benchmark
// command for execute-workload units. The unit descriptor is passed through
// the environment; metrics and artifacts are read back from stdout lines of
// the form "metric.<name>=<float>" and "artifact.<name>=<path>".
//
// Resolve and persist units are satisfied locally: resolving a data unit
// verifies its source is materialized, the remaining kinds are bookkeeping
// stages that carry no external work.
type Runner struct {
	logger  ports.Logger
	command []string
}

// NewRunner creates a Runner invoking the given command.
func NewRunner(logger ports.Logger, command []string) *Runner {
	return &Runner{
		logger:  logger,
		command: command,
	}
}

// Run implements ports.Executor.
func (r *Runner) Run(ctx context.Context, unit *domain.Unit) (domain.Outcome, error) {
	switch unit.Kind {
	case domain.UnitExecuteWorkload:
		return r.runBenchmark(ctx, unit)
	case domain.UnitResolveData:
		return domain.Outcome{}, r.resolveData(unit)
	default:
		return domain.Outcome{}, nil
	}
}

func (r *Runner) resolveData(unit *domain.Unit) error {
	if unit.Source == "" {
		return nil
	}
	if strings.Contains(unit.Source, "://") {
		// Remote sources are fetched by the benchmark command itself.
		return nil
	}
	if _, err := os.Stat(unit.Source); err != nil {
		return zerr.With(zerr.Wrap(err, "data source not materialized"), "source", unit.Source)
	}
	return nil
}

func (r *Runner) runBenchmark(ctx context.Context, unit *domain.Unit) (domain.Outcome, error) {
	if len(r.command) == 0 {
		return domain.Outcome{}, zerr.New("no benchmark command configured")
	}

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...) //nolint:gosec // command is operator configured
	cmd.Env = append(os.Environ(), unitEnvironment(unit)...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &logWriter{logger: r.logger}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// The context kill surfaces as "signal: killed"; report the
			// cancellation itself so the run records Cancelled, not Failed.
			return domain.Outcome{}, zerr.Wrap(ctx.Err(), "benchmark command cancelled")
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return domain.Outcome{}, zerr.With(zerr.Wrap(err, "benchmark command failed"), "exit_code", exitCode)
	}

	return parseOutcome(&stdout), nil
}

// unitEnvironment flattens the unit descriptor into BENCH_* variables.
func unitEnvironment(unit *domain.Unit) []string {
	env := []string{
		"BENCH_UNIT=" + string(unit.Fingerprint),
		"BENCH_KIND=" + string(unit.Kind),
		"BENCH_WORKLOAD=" + unit.Workload.String(),
		"BENCH_OPERATION=" + unit.Operation,
		"BENCH_PLATFORM=" + unit.Platform.String(),
	}
	if unit.Requirement != nil {
		env = append(env, "BENCH_DEVICE_KIND="+string(unit.Requirement.Kind))
		env = append(env, "BENCH_DEVICE_SLOTS="+strconv.FormatInt(unit.Requirement.Slots, 10))
	}
	for k, v := range unit.Params {
		env = append(env, "BENCH_PARAM_"+strings.ToUpper(k)+"="+v)
	}
	return env
}

func parseOutcome(stdout *bytes.Buffer) domain.Outcome {
	outcome := domain.Outcome{
		Artifacts: make(map[string]string),
		Metrics:   make(map[string]float64),
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		switch {
		case strings.HasPrefix(key, "metric."):
			f, err := strconv.ParseFloat(value, 64)
			if err == nil {
				outcome.Metrics[strings.TrimPrefix(key, "metric.")] = f
			}
		case strings.HasPrefix(key, "artifact."):
			outcome.Artifacts[strings.TrimPrefix(key, "artifact.")] = value
		}
	}

	return outcome
}

type logWriter struct {
	logger ports.Logger
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSuffix(string(p), "\n")
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			w.logger.Warn(line)
		}
	}
	return len(p), nil
}
