package scheduler

import (
	"sort"

	"go.trai.ch/bench/internal/core/domain"
	"golang.org/x/sync/semaphore"
)

// Allocator is the resource-ownership table for devices. It is owned entirely
// by the scheduler; execution units never touch device state directly.
// Capacity is modeled as a weighted semaphore per device: an exclusive device
// carries weight 1, a shared device carries its capacity count.
type Allocator struct {
	slots []deviceSlot
}

type deviceSlot struct {
	device domain.Device
	weight int64
	sem    *semaphore.Weighted
}

// NewAllocator creates an Allocator over the given devices. Devices are
// ordered by identifier so acquisition scans are deterministic.
func NewAllocator(devices []domain.Device) *Allocator {
	slots := make([]deviceSlot, 0, len(devices))
	for _, d := range devices {
		w := deviceWeight(d)
		slots = append(slots, deviceSlot{
			device: d,
			weight: w,
			sem:    semaphore.NewWeighted(w),
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].device.ID.String() < slots[j].device.ID.String()
	})
	return &Allocator{slots: slots}
}

// Allocation is a held device reservation. Release returns the capacity to
// the pool; it is safe to call exactly once.
type Allocation struct {
	Device  domain.InternedString
	release func()
}

// Release returns the reserved capacity.
func (a *Allocation) Release() {
	if a != nil && a.release != nil {
		a.release()
		a.release = nil
	}
}

// TryAcquire attempts to reserve capacity satisfying the requirement on any
// compatible device, without blocking. A false return means every compatible
// device is currently busy, which only delays dispatch; it is never an error.
func (a *Allocator) TryAcquire(req domain.DeviceRequirement) (*Allocation, bool) {
	for i := range a.slots {
		slot := &a.slots[i]
		amount, ok := acquireAmount(slot, req)
		if !ok {
			continue
		}
		if slot.sem.TryAcquire(amount) {
			return &Allocation{
				Device:  slot.device.ID,
				release: func() { slot.sem.Release(amount) },
			}, true
		}
	}
	return nil, false
}

// acquireAmount returns how much of the slot's weight the requirement
// consumes, or false when the device can never satisfy it. A dispatch on an
// exclusive device, or an exclusive requirement on any device, takes the
// whole weight.
func acquireAmount(slot *deviceSlot, req domain.DeviceRequirement) (int64, bool) {
	if slot.device.Kind != req.Kind {
		return 0, false
	}
	if slot.device.Exclusive || req.Exclusive {
		return slot.weight, true
	}
	if req.Slots > slot.weight {
		return 0, false
	}
	return max(req.Slots, 1), true
}

func deviceWeight(d domain.Device) int64 {
	if d.Exclusive {
		return 1
	}
	return max(d.Capacity, 1)
}
