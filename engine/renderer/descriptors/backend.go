package descriptors

import (
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

/**
 * @brief An opaque range of native descriptor slots owned by a backend.
 */
type NativeStore interface {
	Capacity() uint32
}

/**
 * @brief One CPU-to-GPU-visible descriptor propagation.
 */
type CopyOp struct {
	SrcStore NativeStore
	SrcIndex uint32
	DstStore NativeStore
	DstIndex uint32
}

/**
 * @brief The capability contract a graphics API must provide. One
 * implementation per backend (Vulkan, headless virtual), selected at
 * construction time via renderer.NewNativeBackend. All slot bookkeeping
 * (free lists, growth, batching) lives above this interface; a backend only
 * touches native descriptor memory.
 */
type NativeBackend interface {
	// CreateNativeSlots reserves native descriptor memory for capacity
	// slots of the given type and visibility.
	CreateNativeSlots(viewType ResourceViewType, visibility DescriptorVisibility, capacity uint32) (NativeStore, error)
	// WriteView writes one resource view into a slot.
	WriteView(store NativeStore, index uint32, view metadata.ResourceViewDescription) error
	// CopyViews propagates slots between stores, coalesced into one
	// platform call where the API allows it.
	CopyViews(ops []CopyOp) error
	// BindForFrame establishes the GPU-visible state of the given stores
	// on a command stream, once per frame.
	BindForFrame(stream interface{}, stores []NativeStore) error
	// DestroyNativeSlots releases native memory behind a store.
	DestroyNativeSlots(store NativeStore)
}
