package scheduler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bench/internal/core/domain"
	"go.trai.ch/bench/internal/engine/scheduler"
)

func device(id string, kind domain.DeviceKind, capacity int64, exclusive bool) domain.Device {
	return domain.Device{
		ID:        domain.NewInternedString(id),
		Kind:      kind,
		Capacity:  capacity,
		Exclusive: exclusive,
	}
}

func TestAllocatorExclusiveDevice(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("gpu0", domain.DeviceGPU, 1, true),
	})
	req := domain.DeviceRequirement{Kind: domain.DeviceGPU, Slots: 1}

	alloc, ok := a.TryAcquire(req)
	require.True(t, ok)
	assert.Equal(t, "gpu0", alloc.Device.String())

	// The device is exclusive; a second acquisition must wait.
	_, ok = a.TryAcquire(req)
	assert.False(t, ok)

	alloc.Release()
	_, ok = a.TryAcquire(req)
	assert.True(t, ok)
}

func TestAllocatorSharedCapacity(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("cpu0", domain.DeviceCPU, 4, false),
	})

	two := domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 2}

	first, ok := a.TryAcquire(two)
	require.True(t, ok)
	_, ok = a.TryAcquire(two)
	require.True(t, ok)

	// 4 slots are taken; nothing is left.
	_, ok = a.TryAcquire(domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 1})
	assert.False(t, ok)

	first.Release()
	_, ok = a.TryAcquire(two)
	assert.True(t, ok)
}

func TestAllocatorExclusiveRequirementTakesWholeDevice(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("cpu0", domain.DeviceCPU, 4, false),
	})

	alloc, ok := a.TryAcquire(domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 1, Exclusive: true})
	require.True(t, ok)

	// No co-tenants while an exclusive dispatch holds the device.
	_, ok = a.TryAcquire(domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 1})
	assert.False(t, ok)

	alloc.Release()
	_, ok = a.TryAcquire(domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 1})
	assert.True(t, ok)
}

func TestAllocatorKindMismatch(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("gpu0", domain.DeviceGPU, 1, false),
	})

	_, ok := a.TryAcquire(domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 1})
	assert.False(t, ok)
}

func TestAllocatorOversizedRequirement(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("cpu0", domain.DeviceCPU, 2, false),
	})

	// More slots than the device has can never be admitted.
	_, ok := a.TryAcquire(domain.DeviceRequirement{Kind: domain.DeviceCPU, Slots: 3})
	assert.False(t, ok)
}

func TestAllocatorScansDevicesInIDOrder(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("gpu1", domain.DeviceGPU, 1, false),
		device("gpu0", domain.DeviceGPU, 1, false),
	})
	req := domain.DeviceRequirement{Kind: domain.DeviceGPU, Slots: 1}

	first, ok := a.TryAcquire(req)
	require.True(t, ok)
	assert.Equal(t, "gpu0", first.Device.String())

	second, ok := a.TryAcquire(req)
	require.True(t, ok)
	assert.Equal(t, "gpu1", second.Device.String())
}

func TestAllocationReleaseIsSingleShot(t *testing.T) {
	t.Parallel()

	a := scheduler.NewAllocator([]domain.Device{
		device("gpu0", domain.DeviceGPU, 1, false),
	})
	req := domain.DeviceRequirement{Kind: domain.DeviceGPU, Slots: 1}

	alloc, ok := a.TryAcquire(req)
	require.True(t, ok)

	alloc.Release()
	// A second release must not free capacity twice.
	alloc.Release()

	first, ok := a.TryAcquire(req)
	require.True(t, ok)
	_, ok = a.TryAcquire(req)
	assert.False(t, ok)
	first.Release()

	// A nil allocation is a no-op, covering units without requirements.
	var none *scheduler.Allocation
	none.Release()
}
