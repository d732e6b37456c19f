package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/engine/registry"
	"go.trai.ch/zerr"
)

func TestStoreRegisterAndLookup(t *testing.T) {
	t.Parallel()

	s := registry.NewStore()
	w := domain.Workload{ID: domain.NewInternedString("matmul"), Operation: "inference"}
	require.NoError(t, s.Register(w))

	got, err := s.Lookup(domain.KindWorkload, domain.NewInternedString("matmul"))
	require.NoError(t, err)
	assert.Equal(t, w.Fingerprint(), got.Fingerprint())

	_, err = s.Lookup(domain.KindWorkload, domain.NewInternedString("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Kinds are separate namespaces.
	_, err = s.Lookup(domain.KindPlatform, domain.NewInternedString("matmul"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreRegisterIdempotentAndConflicting(t *testing.T) {
	t.Parallel()

	s := registry.NewStore()
	w := domain.Workload{ID: domain.NewInternedString("matmul"), Operation: "inference"}
	require.NoError(t, s.Register(w))

	// Identical definition: no-op.
	require.NoError(t, s.Register(w))
	assert.Len(t, s.Workloads(), 1)

	// Conflicting definition under the same identifier: rejected, with the
	// sentinel in the chain and the identifier in the metadata.
	err := s.Register(domain.Workload{ID: domain.NewInternedString("matmul"), Operation: "training"})
	assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)

	var zerrErr *zerr.Error
	require.ErrorAs(t, err, &zerrErr)
	assert.Equal(t, "matmul", zerrErr.Metadata()["id"])
	assert.Equal(t, "workload", zerrErr.Metadata()["kind"])
}

func TestStoreFilter(t *testing.T) {
	t.Parallel()

	s := registry.NewStore()
	require.NoError(t, s.Register(domain.Device{ID: domain.NewInternedString("gpu0"), Kind: domain.DeviceGPU}))
	require.NoError(t, s.Register(domain.Device{ID: domain.NewInternedString("cpu0"), Kind: domain.DeviceCPU, Capacity: 4}))
	require.NoError(t, s.Register(domain.Device{ID: domain.NewInternedString("gpu1"), Kind: domain.DeviceGPU}))

	pred := domain.Compare{Field: "kind", Op: domain.OpEq, Value: "gpu"}

	var ids []string
	for e := range s.Filter(domain.KindDevice, pred) {
		ids = append(ids, e.EntityID().String())
	}
	// Registration order, not identifier order.
	assert.Equal(t, []string{"gpu0", "gpu1"}, ids)

	// The iterator is restartable.
	count := 0
	for range s.Filter(domain.KindDevice, pred) {
		count++
	}
	assert.Equal(t, 2, count)

	// A nil predicate matches everything.
	all := 0
	for range s.Filter(domain.KindDevice, nil) {
		all++
	}
	assert.Equal(t, 3, all)
}

func TestStoreTypedAccessors(t *testing.T) {
	t.Parallel()

	s := registry.NewStore()
	require.NoError(t, s.Register(domain.Workload{ID: domain.NewInternedString("w")}))
	require.NoError(t, s.Register(domain.Platform{ID: domain.NewInternedString("p")}))
	require.NoError(t, s.Register(domain.Device{ID: domain.NewInternedString("d")}))
	require.NoError(t, s.Register(domain.Task{ID: domain.NewInternedString("t"), Workload: domain.NewInternedString("w")}))

	assert.Len(t, s.Workloads(), 1)
	assert.Len(t, s.Platforms(), 1)
	assert.Len(t, s.Devices(), 1)
	assert.Len(t, s.Tasks(), 1)
}

func TestStoreResults(t *testing.T) {
	t.Parallel()

	s := registry.NewStore()
	s.RecordResult(domain.Result{Fingerprint: "bb", Unit: "b", Status: domain.ResultSucceeded})
	s.RecordResult(domain.Result{Fingerprint: "aa", Unit: "a", Status: domain.ResultFailed})

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, domain.Fingerprint("aa"), results[0].Fingerprint)
	assert.Equal(t, domain.Fingerprint("bb"), results[1].Fingerprint)
}
