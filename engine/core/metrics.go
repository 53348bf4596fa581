package core

import "sync/atomic"

// DescriptorMetrics counts allocator traffic. Owned by the allocator
// instance rather than held as process state, so two allocators never
// share counters.
type DescriptorMetrics struct {
	Allocations   atomic.Uint64
	Frees         atomic.Uint64
	Growths       atomic.Uint64
	BatchFlushes  atomic.Uint64
	CopiesQueued  atomic.Uint64
	CopiesFlushed atomic.Uint64
}

func (m *DescriptorMetrics) Snapshot() DescriptorMetricsSnapshot {
	return DescriptorMetricsSnapshot{
		Allocations:   m.Allocations.Load(),
		Frees:         m.Frees.Load(),
		Growths:       m.Growths.Load(),
		BatchFlushes:  m.BatchFlushes.Load(),
		CopiesQueued:  m.CopiesQueued.Load(),
		CopiesFlushed: m.CopiesFlushed.Load(),
	}
}

// DescriptorMetricsSnapshot is a point-in-time copy safe to log or compare.
type DescriptorMetricsSnapshot struct {
	Allocations   uint64
	Frees         uint64
	Growths       uint64
	BatchFlushes  uint64
	CopiesQueued  uint64
	CopiesFlushed uint64
}

func (s DescriptorMetricsSnapshot) Live() uint64 {
	return s.Allocations - s.Frees
}
