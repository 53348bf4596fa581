package descriptors

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/astra/engine/containers"
	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

/**
 * @brief Slot bookkeeping for one (viewType, visibility) range. The
 * algorithm is backend-independent: free-list pop, bump allocation from
 * the unused tail, in-place growth. The native memory behind the indices
 * is owned by the NativeBackend through an opaque NativeStore.
 *
 * Invariant: live + len(freeList) + (capacity - tail) == capacity, and
 * capacity only ever increases. Growth never renumbers indices; in-flight
 * GPU work may already reference them.
 */
type descriptorStore struct {
	viewType   ResourceViewType
	visibility DescriptorVisibility

	backend NativeBackend
	native  NativeStore

	mu         sync.Mutex
	threadSafe bool

	capacity uint32
	// First never-used slot; everything below tail has been handed out
	// at least once.
	tail uint32
	// Reclaimed indices, popped LIFO so recently-freed slots are reused
	// while still warm.
	freeList []uint32
	// Tracks which indices are live. Needed for the growth copy and for
	// validation-mode double-free checks.
	allocated []bool

	growthIterations uint32
	// Natives superseded by growth. Kept alive until destroy: a reference
	// sampled for a flush or a frame bind may still point at them, and
	// stores never shrink, so the count is bounded by MaxGrowthIterations.
	retired []NativeStore

	batchOpen bool
	pending   *containers.RingQueue[pendingCopy]

	cfg     *Config
	metrics *core.DescriptorMetrics
}

func newDescriptorStore(t ResourceViewType, v DescriptorVisibility, cfg *Config, backend NativeBackend, metrics *core.DescriptorMetrics) (*descriptorStore, error) {
	capacity := cfg.capacityFor(t)
	if capacity == 0 {
		return nil, fmt.Errorf("func newDescriptorStore - capacity for %s must be > 0", t)
	}
	native, err := backend.CreateNativeSlots(t, v, capacity)
	if err != nil {
		return nil, fmt.Errorf("func newDescriptorStore - %s/%s: %w", t, v, err)
	}
	return &descriptorStore{
		viewType:   t,
		visibility: v,
		backend:    backend,
		native:     native,
		threadSafe: cfg.EnableThreadSafety,
		capacity:   capacity,
		allocated:  make([]bool, capacity),
		cfg:        cfg,
		metrics:    metrics,
	}, nil
}

func (s *descriptorStore) lock() {
	if s.threadSafe {
		s.mu.Lock()
	}
}

func (s *descriptorStore) unlock() {
	if s.threadSafe {
		s.mu.Unlock()
	}
}

// allocate reserves one slot and returns its index.
func (s *descriptorStore) allocate() (uint32, error) {
	s.lock()
	defer s.unlock()

	if n := len(s.freeList); n > 0 {
		index := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.allocated[index] = true
		s.metrics.Allocations.Add(1)
		return index, nil
	}

	if s.tail == s.capacity {
		if err := s.growLocked(); err != nil {
			return InvalidIndex, err
		}
	}

	index := s.tail
	s.tail++
	s.allocated[index] = true
	s.metrics.Allocations.Add(1)
	return index, nil
}

// growLocked expands capacity by the configured factor, copying every live
// view into the new native range. Indices are preserved. Caller holds the
// store lock.
func (s *descriptorStore) growLocked() error {
	if !s.cfg.EnableDynamicGrowth {
		return fmt.Errorf("store %s/%s exhausted at capacity %d: %w",
			s.viewType, s.visibility, s.capacity, core.ErrOutOfDescriptors)
	}
	if s.growthIterations >= s.cfg.MaxGrowthIterations {
		return fmt.Errorf("store %s/%s exhausted after %d growths: %w",
			s.viewType, s.visibility, s.growthIterations, core.ErrOutOfDescriptors)
	}
	if s.batchOpen {
		return fmt.Errorf("store %s/%s cannot grow: %w", s.viewType, s.visibility, core.ErrBatchOpen)
	}

	newCapacity := uint32(float64(s.capacity) * float64(s.cfg.GrowthFactor))
	if newCapacity <= s.capacity {
		newCapacity = s.capacity + 1
	}

	newNative, err := s.backend.CreateNativeSlots(s.viewType, s.visibility, newCapacity)
	if err != nil {
		return fmt.Errorf("store %s/%s growth to %d rejected: %w (%s)",
			s.viewType, s.visibility, newCapacity, core.ErrGrowthFailed, err.Error())
	}

	// Carry every live descriptor over. This is the one visibly expensive
	// operation in the allocator; capacities should be sized so it stays
	// rare.
	ops := make([]CopyOp, 0, s.tail)
	for i := uint32(0); i < s.tail; i++ {
		if s.allocated[i] {
			ops = append(ops, CopyOp{SrcStore: s.native, SrcIndex: i, DstStore: newNative, DstIndex: i})
		}
	}
	if len(ops) > 0 {
		if err := s.backend.CopyViews(ops); err != nil {
			s.backend.DestroyNativeSlots(newNative)
			return fmt.Errorf("store %s/%s growth copy failed: %w (%s)",
				s.viewType, s.visibility, core.ErrGrowthFailed, err.Error())
		}
	}

	s.retired = append(s.retired, s.native)
	s.native = newNative

	grown := make([]bool, newCapacity)
	copy(grown, s.allocated)
	s.allocated = grown
	s.capacity = newCapacity
	s.growthIterations++
	s.metrics.Growths.Add(1)

	core.LogDebug("store %s/%s grew to %d slots (iteration %d/%d)",
		s.viewType, s.visibility, newCapacity, s.growthIterations, s.cfg.MaxGrowthIterations)
	return nil
}

// free returns a slot to the free list. The native descriptor is left
// untouched until the next allocation overwrites it.
func (s *descriptorStore) free(index uint32) error {
	s.lock()
	defer s.unlock()

	if index >= s.capacity || !s.allocated[index] {
		if s.cfg.EnableValidation {
			core.LogError("store %s/%s asked to free index %d which is not live", s.viewType, s.visibility, index)
			return fmt.Errorf("free of index %d: %w", index, core.ErrInvalidHandle)
		}
		// Guarded no-op: a double free must never corrupt the free list.
		return nil
	}

	s.allocated[index] = false
	s.freeList = append(s.freeList, index)
	s.metrics.Frees.Add(1)
	return nil
}

// writeView binds a resource view into a live slot.
func (s *descriptorStore) writeView(index uint32, view metadata.ResourceViewDescription) error {
	s.lock()
	defer s.unlock()

	if s.cfg.EnableValidation && (index >= s.capacity || !s.allocated[index]) {
		return fmt.Errorf("write into index %d of %s/%s: %w", index, s.viewType, s.visibility, core.ErrInvalidHandle)
	}
	return s.backend.WriteView(s.native, index, view)
}

// pendingCopy is a deferred slot propagation. It references the source
// store rather than its native: the source may grow between enqueue and
// flush, and the copy must read whichever native is current at flush time.
type pendingCopy struct {
	src      *descriptorStore
	srcIndex uint32
	dstIndex uint32
}

// copyFrom propagates one slot of src into this store. Inside an open
// batch window the copy is deferred; a full queue forces an early flush.
// Lock order is destination then source; copies only ever run toward the
// shader-visible store, so the order never inverts.
func (s *descriptorStore) copyFrom(src *descriptorStore, srcIndex, dstIndex uint32) error {
	s.lock()
	defer s.unlock()

	if !s.batchOpen {
		srcNative, _ := src.bindState()
		op := CopyOp{SrcStore: srcNative, SrcIndex: srcIndex, DstStore: s.native, DstIndex: dstIndex}
		return s.backend.CopyViews([]CopyOp{op})
	}

	if s.pending.IsFull() {
		if err := s.flushLocked(); err != nil {
			return err
		}
	}
	if err := s.pending.Enqueue(pendingCopy{src: src, srcIndex: srcIndex, dstIndex: dstIndex}); err != nil {
		return err
	}
	s.metrics.CopiesQueued.Add(1)
	return nil
}

// batchBegin opens a deferral window. Not reentrant. When batched updates
// are disabled in the config this is a no-op and copies stay immediate.
func (s *descriptorStore) batchBegin() error {
	if !s.cfg.EnableBatchedUpdates {
		return nil
	}
	s.lock()
	defer s.unlock()

	if s.batchOpen {
		return fmt.Errorf("store %s/%s: %w", s.viewType, s.visibility, core.ErrBatchOpen)
	}
	if s.pending == nil {
		s.pending = containers.NewRingQueue[pendingCopy](int(s.cfg.MaxUpdatesPerBatch))
	}
	s.batchOpen = true
	return nil
}

// batchEnd flushes the pending queue and closes the window.
func (s *descriptorStore) batchEnd() error {
	if !s.cfg.EnableBatchedUpdates {
		return nil
	}
	s.lock()
	defer s.unlock()

	if !s.batchOpen {
		return fmt.Errorf("store %s/%s: %w", s.viewType, s.visibility, core.ErrNoBatch)
	}
	err := s.flushLocked()
	s.batchOpen = false
	return err
}

// flush executes pending copies without closing the window.
func (s *descriptorStore) flush() error {
	s.lock()
	defer s.unlock()
	return s.flushLocked()
}

func (s *descriptorStore) flushLocked() error {
	if s.pending == nil || s.pending.IsEmpty() {
		return nil
	}
	// Natives are resolved now, not at enqueue time. s.native cannot have
	// changed since the enqueue (growth refuses to run inside a batch
	// window), but the source store carries no such guarantee.
	ops := make([]CopyOp, 0, s.pending.Len())
	for !s.pending.IsEmpty() {
		pc, err := s.pending.Dequeue()
		if err != nil {
			return err
		}
		srcNative, _ := pc.src.bindState()
		ops = append(ops, CopyOp{SrcStore: srcNative, SrcIndex: pc.srcIndex, DstStore: s.native, DstIndex: pc.dstIndex})
	}
	if err := s.backend.CopyViews(ops); err != nil {
		return err
	}
	s.metrics.BatchFlushes.Add(1)
	s.metrics.CopiesFlushed.Add(uint64(len(ops)))
	return nil
}

// stats is sampled under the lock so the capacity invariant holds in the
// returned snapshot.
func (s *descriptorStore) stats() StoreStats {
	s.lock()
	defer s.unlock()
	free := uint32(len(s.freeList))
	return StoreStats{
		Capacity:   s.capacity,
		Live:       s.tail - free,
		FreeListed: free,
		Unused:     s.capacity - s.tail,
		Growths:    s.growthIterations,
	}
}

// bindState returns the current native store for frame binding. Sampled
// under the lock so a concurrent growth cannot hand out a destroyed store.
func (s *descriptorStore) bindState() (NativeStore, bool) {
	s.lock()
	defer s.unlock()
	return s.native, s.batchOpen
}

func (s *descriptorStore) destroy() {
	s.lock()
	defer s.unlock()
	for _, native := range s.retired {
		s.backend.DestroyNativeSlots(native)
	}
	s.retired = nil
	if s.native != nil {
		s.backend.DestroyNativeSlots(s.native)
		s.native = nil
	}
}

/**
 * @brief A point-in-time view of one store's occupancy.
 * Capacity == Live + FreeListed + Unused at all times.
 */
type StoreStats struct {
	Capacity   uint32
	Live       uint32
	FreeListed uint32
	Unused     uint32
	Growths    uint32
}
