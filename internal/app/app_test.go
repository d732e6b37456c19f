package app_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bench/internal/adapters/cas"
	"go.trai.ch/bench/internal/adapters/telemetry"
	"go.trai.ch/bench/internal/app"
	"go.trai.ch/bench/internal/core/domain"
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

type fixture struct {
	app      *app.App
	store    *registry.Store
	loader   *mocks.MockEntityLoader
	executor *mocks.MockExecutor
	results  *mocks.MockResultStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockEntityLoader(ctrl)
	executor := mocks.NewMockExecutor(ctrl)
	results := mocks.NewMockResultStore(ctrl)

	store := registry.NewStore()
	sched := scheduler.New(executor, cache.New(results), telemetry.NewNoOpTracer(), nopLogger{})

	return &fixture{
		app:      app.New(store, query.New(store), planner.New(store), sched, loader, nopLogger{}),
		store:    store,
		loader:   loader,
		executor: executor,
		results:  results,
	}
}

func entities() []domain.Entity {
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
			ID:       domain.NewInternedString("gpu0"),
			Kind:     domain.DeviceGPU,
			Capacity: 1,
		},
	}
}

func TestAppLoadManifest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.loader.EXPECT().Load("bench.yaml").Return(entities(), nil).Times(2)

	require.NoError(t, f.app.LoadManifest("bench.yaml"))
	// Reloading identical definitions is a no-op.
	require.NoError(t, f.app.LoadManifest("bench.yaml"))

	// A conflicting redefinition under an existing identifier is rejected.
	f.loader.EXPECT().Load("bench.yaml").Return([]domain.Entity{
		domain.Workload{ID: domain.NewInternedString("matmul"), Operation: "training"},
	}, nil)
	err := f.app.LoadManifest("bench.yaml")
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
}

func TestAppRunSucceeds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.loader.EXPECT().Load("bench.yaml").Return(entities(), nil)
	f.results.EXPECT().Get(gomock.Any()).Return(nil, nil).Times(3)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.Outcome{
		Metrics: map[string]float64{"latency_ms": 12.5},
	}, nil).Times(3)
	f.results.EXPECT().Put(gomock.Any()).Return(nil).Times(3)

	require.NoError(t, f.app.LoadManifest("bench.yaml"))

	summary, err := f.app.Run(context.Background(), nil, app.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, app.Summary{Total: 3, Succeeded: 3}, summary)

	// Completed results are written back to the entity store.
	assert.Len(t, f.store.Results(), 3)
}

func TestAppSecondRunIsFullyCached(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	loader := mocks.NewMockEntityLoader(ctrl)
	executor := mocks.NewMockExecutor(ctrl)

	store := registry.NewStore()
	results, err := cas.NewStore(filepath.Join(t.TempDir(), "results.json"))
	require.NoError(t, err)
	sched := scheduler.New(executor, cache.New(results), telemetry.NewNoOpTracer(), nopLogger{})
	a := app.New(store, query.New(store), planner.New(store), sched, loader, nopLogger{})

	loader.EXPECT().Load("bench.yaml").Return(entities(), nil)
	require.NoError(t, a.LoadManifest("bench.yaml"))

	// Times(3) is exhausted by the first run; a re-invocation on the second
	// run would fail the expectation.
	executor.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.Outcome{}, nil).Times(3)

	first, err := a.Run(context.Background(), nil, app.RunOptions{Parallelism: 2})
	require.NoError(t, err)
	assert.Equal(t, app.Summary{Total: 3, Succeeded: 3}, first)

	second, err := a.Run(context.Background(), nil, app.RunOptions{Parallelism: 2})
	require.NoError(t, err)
	assert.Equal(t, app.Summary{Total: 3, Skipped: 3}, second)
}

func TestAppRunFailureWrapsSentinel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.loader.EXPECT().Load("bench.yaml").Return(entities(), nil)
	f.results.EXPECT().Get(gomock.Any()).Return(nil, nil).AnyTimes()
	f.results.EXPECT().Put(gomock.Any()).Return(nil).AnyTimes()
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(domain.Outcome{}, errors.New("device wedged")).AnyTimes()

	require.NoError(t, f.app.LoadManifest("bench.yaml"))

	summary, err := f.app.Run(context.Background(), nil, app.RunOptions{})
	assert.ErrorIs(t, err, domain.ErrRunFailed)
	assert.Equal(t, 3, summary.Total)
	assert.NotZero(t, summary.Failed)
}

func TestAppSubmitAndGetRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.loader.EXPECT().Load("bench.yaml").Return(entities(), nil)
	f.results.EXPECT().Get(gomock.Any()).Return(nil, nil).Times(3)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).Return(domain.Outcome{}, nil).Times(3)
	f.results.EXPECT().Put(gomock.Any()).Return(nil).Times(3)

	require.NoError(t, f.app.LoadManifest("bench.yaml"))

	run, err := f.app.Submit(context.Background(), nil, app.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Instances)

	got, err := f.app.GetRun(run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)

	_, err = f.app.GetRun("run-9999")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	require.NoError(t, run.Wait())
	assert.Equal(t, app.RunSucceeded, run.State())
	assert.Len(t, run.Results(), 3)
	assert.Len(t, f.app.Runs(), 1)
}

func TestAppCancelRun(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.loader.EXPECT().Load("bench.yaml").Return(entities(), nil)
	f.results.EXPECT().Get(gomock.Any()).Return(nil, nil).AnyTimes()
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *domain.Unit) (domain.Outcome, error) {
			<-ctx.Done()
			return domain.Outcome{}, ctx.Err()
		}).AnyTimes()

	require.NoError(t, f.app.LoadManifest("bench.yaml"))

	run, err := f.app.Submit(context.Background(), nil, app.RunOptions{})
	require.NoError(t, err)

	run.Cancel()
	err = run.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, app.RunCancelled, run.State())

	for _, st := range run.UnitStatuses() {
		assert.Equal(t, domain.StatusCancelled, st)
	}
}

func TestAppSubmitEmptySelection(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.loader.EXPECT().Load("bench.yaml").Return(entities(), nil)
	require.NoError(t, f.app.LoadManifest("bench.yaml"))

	run, err := f.app.Submit(context.Background(), domain.Compare{
		Field: "workload", Op: domain.OpEq, Value: "nonexistent",
	}, app.RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, run.Instances)

	require.NoError(t, run.Wait())
	assert.Equal(t, app.RunSucceeded, run.State())
	assert.Empty(t, run.Results())
}
