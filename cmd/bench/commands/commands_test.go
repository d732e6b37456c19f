package commands_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bench/cmd/bench/commands"
	"go.trai.ch/bench/internal/adapters/telemetry"
	"go.trai.ch/bench/internal/app"
	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/core/ports"
	"go.trai.ch/bench/internal/core/ports/mocks"
	"go.trai.ch/bench/internal/engine/cache"
	"go.trai.ch/bench/internal/engine/planner"
	"go.trai.ch/bench/internal/engine/query"
	"go.trai.ch/bench/internal/engine/registry"
	"go.trai.ch/bench/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

func testEntities() []domain.Entity {
	return []domain.Entity{
		domain.Workload{
			ID:          domain.NewInternedString("matmul"),
			Operation:   "inference",
			DeviceKinds: []domain.DeviceKind{domain.DeviceGPU},
		},
		domain.Platform{
			ID:           domain.NewInternedString("torch"),
			Capabilities: []string{"inference"},
			Version:      "2.1.0",
		},
		domain.Device{
			ID:   domain.NewInternedString("gpu0"),
			Kind: domain.DeviceGPU,
		},
	}
}

func newTestComponents(t *testing.T, loader ports.EntityLoader, executor ports.Executor, store ports.ResultStore) *app.Components {
	t.Helper()

	entityStore := registry.NewStore()
	sched := scheduler.New(executor, cache.New(store), telemetry.NewNoOpTracer(), nopLogger{})
	a := app.New(entityStore, query.New(entityStore), planner.New(entityStore), sched, loader, nopLogger{})
	return app.NewComponents(a, nopLogger{}, store)
}

func TestRunCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLoader := mocks.NewMockEntityLoader(ctrl)
	mockExecutor := mocks.NewMockExecutor(ctrl)
	mockStore := mocks.NewMockResultStore(ctrl)

	mockLoader.EXPECT().Load("bench.yaml").Return(testEntities(), nil)
	// The pipeline is load-runtime -> execute -> persist for a workload with
	// no data or model inputs.
	mockStore.EXPECT().Get(gomock.Any()).Return(nil, nil).Times(3)
	mockExecutor.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.Outcome{}, nil).Times(3)
	mockStore.EXPECT().Put(gomock.Any()).Return(nil).Times(3)

	cli := commands.New(newTestComponents(t, mockLoader, mockExecutor, mockStore))

	var out bytes.Buffer
	cli.SetOutput(&out)
	cli.SetArgs([]string{"run", "--select", "workload=matmul"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "units: 3")
	assert.Contains(t, out.String(), "succeeded: 3")
}

func TestRunCommandManifestFlag(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLoader := mocks.NewMockEntityLoader(ctrl)
	mockExecutor := mocks.NewMockExecutor(ctrl)
	mockStore := mocks.NewMockResultStore(ctrl)

	// An empty manifest selects nothing; the run completes without dispatch.
	mockLoader.EXPECT().Load("other.yaml").Return(nil, nil)

	cli := commands.New(newTestComponents(t, mockLoader, mockExecutor, mockStore))

	var out bytes.Buffer
	cli.SetOutput(&out)
	cli.SetArgs([]string{"run", "--manifest", "other.yaml"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "units: 0")
}

func TestRunCommandFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLoader := mocks.NewMockEntityLoader(ctrl)
	mockExecutor := mocks.NewMockExecutor(ctrl)
	mockStore := mocks.NewMockResultStore(ctrl)

	mockLoader.EXPECT().Load("bench.yaml").Return(testEntities(), nil)
	mockStore.EXPECT().Get(gomock.Any()).Return(nil, nil).AnyTimes()
	mockStore.EXPECT().Put(gomock.Any()).Return(nil).AnyTimes()
	mockExecutor.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(domain.Outcome{}, errors.New("device wedged")).AnyTimes()

	cli := commands.New(newTestComponents(t, mockLoader, mockExecutor, mockStore))

	var out bytes.Buffer
	cli.SetOutput(&out)
	cli.SetArgs([]string{"run"})

	err := cli.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRunFailed)
	assert.Contains(t, out.String(), "failed:")
}

func TestResultsCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLoader := mocks.NewMockEntityLoader(ctrl)
	mockExecutor := mocks.NewMockExecutor(ctrl)
	mockStore := mocks.NewMockResultStore(ctrl)

	mockStore.EXPECT().List().Return([]domain.Result{
		{
			Fingerprint: "00000000000000aa",
			Unit:        "execute matmul@torch/gpu",
			Status:      domain.ResultSucceeded,
			Metrics:     map[string]float64{"latency_ms": 12.5},
		},
	}, nil)

	cli := commands.New(newTestComponents(t, mockLoader, mockExecutor, mockStore))

	var out bytes.Buffer
	cli.SetOutput(&out)
	cli.SetArgs([]string{"results"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "execute matmul@torch/gpu")
	assert.Contains(t, out.String(), "latency_ms=12.5")
}

func TestVersionCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cli := commands.New(newTestComponents(t,
		mocks.NewMockEntityLoader(ctrl),
		mocks.NewMockExecutor(ctrl),
		mocks.NewMockResultStore(ctrl),
	))

	var out bytes.Buffer
	cli.SetOutput(&out)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(out.String()))
}
