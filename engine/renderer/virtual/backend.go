package virtual

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

/**
 * @brief A headless NativeBackend. Slots live in host memory and every
 * write, copy and frame bind is recorded, which makes the backend usable
 * for tests, tooling and running the engine without a GPU.
 */
type Backend struct {
	mu     sync.Mutex
	stores []*Store
	binds  uint64
}

func New() *Backend {
	return &Backend{}
}

/**
 * @brief One virtual slot range. Exposes its contents so callers can
 * assert what a shader would observe at a given index.
 */
type Store struct {
	viewType   descriptors.ResourceViewType
	visibility descriptors.DescriptorVisibility

	mu        sync.Mutex
	slots     []metadata.ResourceViewDescription
	writes    uint64
	destroyed bool
}

func (s *Store) Capacity() uint32 {
	return uint32(len(s.slots))
}

func (s *Store) ViewType() descriptors.ResourceViewType {
	return s.viewType
}

func (s *Store) Visibility() descriptors.DescriptorVisibility {
	return s.visibility
}

// Slot returns the view currently written at index.
func (s *Store) Slot(index uint32) (metadata.ResourceViewDescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint32(len(s.slots)) {
		return metadata.ResourceViewDescription{}, fmt.Errorf("func Store.Slot - index %d out of range (capacity=%d)", index, len(s.slots))
	}
	return s.slots[index], nil
}

// Writes reports how many WriteView calls landed in this store.
func (s *Store) Writes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (b *Backend) CreateNativeSlots(t descriptors.ResourceViewType, v descriptors.DescriptorVisibility, capacity uint32) (descriptors.NativeStore, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("func Backend.CreateNativeSlots - capacity must be > 0")
	}
	store := &Store{
		viewType:   t,
		visibility: v,
		slots:      make([]metadata.ResourceViewDescription, capacity),
	}
	b.mu.Lock()
	b.stores = append(b.stores, store)
	b.mu.Unlock()
	return store, nil
}

func (b *Backend) WriteView(native descriptors.NativeStore, index uint32, view metadata.ResourceViewDescription) error {
	store, err := b.storeOf(native)
	if err != nil {
		return err
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.destroyed {
		return fmt.Errorf("func Backend.WriteView - store already destroyed")
	}
	if index >= uint32(len(store.slots)) {
		return fmt.Errorf("func Backend.WriteView - index %d out of range (capacity=%d)", index, len(store.slots))
	}
	store.slots[index] = view
	store.writes++
	return nil
}

func (b *Backend) CopyViews(ops []descriptors.CopyOp) error {
	for _, op := range ops {
		src, err := b.storeOf(op.SrcStore)
		if err != nil {
			return err
		}
		dst, err := b.storeOf(op.DstStore)
		if err != nil {
			return err
		}
		src.mu.Lock()
		if op.SrcIndex >= uint32(len(src.slots)) {
			src.mu.Unlock()
			return fmt.Errorf("func Backend.CopyViews - source index %d out of range", op.SrcIndex)
		}
		view := src.slots[op.SrcIndex]
		src.mu.Unlock()

		if err := b.WriteView(dst, op.DstIndex, view); err != nil {
			return err
		}
	}
	return nil
}

// BindForFrame records the bind. When the stream is a *CommandRecorder
// the bound store set is appended to it, mirroring what a real command
// buffer would capture.
func (b *Backend) BindForFrame(stream interface{}, stores []descriptors.NativeStore) error {
	b.mu.Lock()
	b.binds++
	b.mu.Unlock()

	if recorder, ok := stream.(*CommandRecorder); ok && recorder != nil {
		recorder.record(stores)
	}
	return nil
}

func (b *Backend) DestroyNativeSlots(native descriptors.NativeStore) {
	store, err := b.storeOf(native)
	if err != nil {
		return
	}
	store.mu.Lock()
	store.destroyed = true
	store.mu.Unlock()
}

// BindCount reports how many frame binds the backend has seen.
func (b *Backend) BindCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binds
}

func (b *Backend) storeOf(native descriptors.NativeStore) (*Store, error) {
	store, ok := native.(*Store)
	if !ok || store == nil {
		return nil, fmt.Errorf("func Backend.storeOf - native store does not belong to the virtual backend")
	}
	return store, nil
}

/**
 * @brief Stands in for a command buffer. Each recorded entry is the set
 * of stores bound for one frame.
 */
type CommandRecorder struct {
	mu    sync.Mutex
	binds [][]descriptors.NativeStore
}

func NewCommandRecorder() *CommandRecorder {
	return &CommandRecorder{}
}

func (r *CommandRecorder) record(stores []descriptors.NativeStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bound := make([]descriptors.NativeStore, len(stores))
	copy(bound, stores)
	r.binds = append(r.binds, bound)
}

// BindCount reports how many frame binds were recorded.
func (r *CommandRecorder) BindCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.binds)
}

// LastBind returns the stores bound most recently, nil when none.
func (r *CommandRecorder) LastBind() []descriptors.NativeStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.binds) == 0 {
		return nil
	}
	return r.binds[len(r.binds)-1]
}
