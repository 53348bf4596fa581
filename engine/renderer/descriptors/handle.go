package descriptors

import (
	"github.com/spaghettifunk/astra/engine/core"
)

/**
 * @brief A token owning exactly one descriptor slot. Handles are created
 * only by a DescriptorAllocator. A handle must have a single owner: pass
 * the pointer along, or use Transfer to hand ownership over explicitly.
 * Release returns the slot to the allocator exactly once; further calls
 * are no-ops.
 *
 * Releasing a shader-visible handle does not scrub GPU-visible memory. A
 * raw index kept around after Release reads stale data until the slot is
 * reused; that is a documented hazard of the bindless model, not a bug in
 * the allocator.
 */
type DescriptorHandle struct {
	index      uint32
	viewType   ResourceViewType
	visibility DescriptorVisibility
	// Non-owning. nil marks the unallocated state.
	allocator *DescriptorAllocator
}

func newDescriptorHandle(a *DescriptorAllocator, index uint32, t ResourceViewType, v DescriptorVisibility) *DescriptorHandle {
	return &DescriptorHandle{
		index:      index,
		viewType:   t,
		visibility: v,
		allocator:  a,
	}
}

// InvalidHandle returns the empty handle. Lookups that miss return this
// instead of an error; callers check IsValid.
func InvalidHandle() *DescriptorHandle {
	return &DescriptorHandle{index: InvalidIndex}
}

func (h *DescriptorHandle) IsValid() bool {
	return h != nil && h.allocator != nil && h.index != InvalidIndex
}

// Index returns the slot index to embed in shader-visible constants, or
// InvalidIndex when the handle owns no slot. Callers that embed the
// sentinel get the renderer's fallback resource, never a crash.
func (h *DescriptorHandle) Index() uint32 {
	if !h.IsValid() {
		return InvalidIndex
	}
	return h.index
}

func (h *DescriptorHandle) ViewType() ResourceViewType {
	return h.viewType
}

func (h *DescriptorHandle) Visibility() DescriptorVisibility {
	return h.visibility
}

// Release frees the owned slot and invalidates the handle. Idempotent:
// releasing an invalid or already-released handle does nothing.
func (h *DescriptorHandle) Release() {
	if !h.IsValid() {
		return
	}
	if err := h.allocator.Free(h); err != nil {
		core.LogError("func DescriptorHandle.Release - %s", err.Error())
	}
}

// Transfer moves ownership into a fresh handle and invalidates the
// receiver, mirroring move semantics. Releasing the moved-from handle
// afterwards is a no-op.
func (h *DescriptorHandle) Transfer() *DescriptorHandle {
	if !h.IsValid() {
		return InvalidHandle()
	}
	moved := newDescriptorHandle(h.allocator, h.index, h.viewType, h.visibility)
	h.invalidate()
	return moved
}

func (h *DescriptorHandle) invalidate() {
	h.index = InvalidIndex
	h.allocator = nil
}
