package descriptors

import (
	"fmt"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

/**
 * @brief The API-agnostic façade over the backend stores. Owns one store
 * per supported (viewType, visibility) pair; routing is lock-free, each
 * store carries its own mutex, so allocations of different view types
 * never contend.
 */
type DescriptorAllocator struct {
	config  *Config
	backend NativeBackend
	stores  [resourceViewTypeCount][descriptorVisibilityCount]*descriptorStore
	metrics core.DescriptorMetrics
}

func NewDescriptorAllocator(config *Config, backend NativeBackend) (*DescriptorAllocator, error) {
	if backend == nil {
		err := fmt.Errorf("func NewDescriptorAllocator - backend must not be nil")
		core.LogError(err.Error())
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}
	config.applyDefaults()
	if err := config.validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	da := &DescriptorAllocator{
		config:  config,
		backend: backend,
	}

	for t := ResourceViewType(0); t < resourceViewTypeCount; t++ {
		for v := DescriptorVisibility(0); v < descriptorVisibilityCount; v++ {
			if !supportsVisibility(t, v) {
				continue
			}
			store, err := newDescriptorStore(t, v, config, backend, &da.metrics)
			if err != nil {
				da.Shutdown()
				return nil, err
			}
			da.stores[t][v] = store
		}
	}

	core.LogInfo("descriptor allocator ready (SRV=%d UAV=%d CBV=%d Sampler=%d RTV=%d DSV=%d, growth=%t)",
		config.MaxSRVs, config.MaxUAVs, config.MaxCBVs, config.MaxSamplers, config.MaxRTVs, config.MaxDSVs,
		config.EnableDynamicGrowth)
	return da, nil
}

func (da *DescriptorAllocator) storeFor(t ResourceViewType, v DescriptorVisibility) (*descriptorStore, error) {
	if t >= resourceViewTypeCount || v >= descriptorVisibilityCount || da.stores[t][v] == nil {
		return nil, fmt.Errorf("no store for %s/%s: %w", t, v, core.ErrTypeMismatch)
	}
	return da.stores[t][v], nil
}

// Allocate reserves a slot in the (viewType, visibility) store and wraps
// it in a handle owned by the caller.
func (da *DescriptorAllocator) Allocate(t ResourceViewType, v DescriptorVisibility) (*DescriptorHandle, error) {
	store, err := da.storeFor(t, v)
	if err != nil {
		return InvalidHandle(), err
	}
	index, err := store.allocate()
	if err != nil {
		return InvalidHandle(), err
	}
	return newDescriptorHandle(da, index, t, v), nil
}

// Free returns the handle's slot to its store and invalidates the handle.
// Safe on invalid handles.
func (da *DescriptorAllocator) Free(h *DescriptorHandle) error {
	if !h.IsValid() {
		if da.config.EnableValidation {
			return core.ErrInvalidHandle
		}
		return nil
	}
	if h.allocator != da {
		core.LogError("func DescriptorAllocator.Free - handle belongs to a different allocator")
		return core.ErrTypeMismatch
	}
	store, err := da.storeFor(h.viewType, h.visibility)
	if err != nil {
		return err
	}
	if err := store.free(h.index); err != nil {
		return err
	}
	h.invalidate()
	return nil
}

// WriteView binds a resource view into the slot owned by the handle. The
// slot keeps its index; only its contents change.
func (da *DescriptorAllocator) WriteView(h *DescriptorHandle, view metadata.ResourceViewDescription) error {
	if !h.IsValid() {
		return core.ErrInvalidHandle
	}
	if h.allocator != da {
		return core.ErrTypeMismatch
	}
	store, err := da.storeFor(h.viewType, h.visibility)
	if err != nil {
		return err
	}
	return store.writeView(h.index, view)
}

// CopyToShaderVisible promotes a staged CpuOnly descriptor into a
// ShaderVisible slot of the same view type. Inside an open batch window
// on the destination store the copy is deferred until BatchEnd or
// ExecuteBatchedCopies.
func (da *DescriptorAllocator) CopyToShaderVisible(src, dst *DescriptorHandle) error {
	if !src.IsValid() || !dst.IsValid() {
		return core.ErrInvalidHandle
	}
	if src.allocator != da || dst.allocator != da {
		return core.ErrTypeMismatch
	}
	if src.viewType != dst.viewType {
		return fmt.Errorf("copy between %s and %s stores: %w", src.viewType, dst.viewType, core.ErrTypeMismatch)
	}
	if src.visibility != DescriptorVisibilityCpuOnly || dst.visibility != DescriptorVisibilityShaderVisible {
		return fmt.Errorf("copy must go CpuOnly -> ShaderVisible: %w", core.ErrTypeMismatch)
	}
	srcStore, err := da.storeFor(src.viewType, src.visibility)
	if err != nil {
		return err
	}
	dstStore, err := da.storeFor(dst.viewType, dst.visibility)
	if err != nil {
		return err
	}
	return dstStore.copyFrom(srcStore, src.index, dst.index)
}

// BatchBegin opens a deferral window on the shader-visible store of the
// given view type. Windows of different view types are independent and
// may overlap; nesting on one store is an error. Pair BatchEnd on the
// goroutine that opened the window.
func (da *DescriptorAllocator) BatchBegin(t ResourceViewType) error {
	store, err := da.storeFor(t, DescriptorVisibilityShaderVisible)
	if err != nil {
		return err
	}
	return store.batchBegin()
}

// BatchEnd flushes deferred copies of the view type and closes its window.
// Callers that bind afterwards must call this before PrepareForRendering;
// the allocator does not reorder on their behalf.
func (da *DescriptorAllocator) BatchEnd(t ResourceViewType) error {
	store, err := da.storeFor(t, DescriptorVisibilityShaderVisible)
	if err != nil {
		return err
	}
	return store.batchEnd()
}

// ExecuteBatchedCopies flushes without closing the window.
func (da *DescriptorAllocator) ExecuteBatchedCopies(t ResourceViewType) error {
	store, err := da.storeFor(t, DescriptorVisibilityShaderVisible)
	if err != nil {
		return err
	}
	return store.flush()
}

// PrepareForRendering binds the current heap state of every shader-visible
// store to the command stream. Called once per frame or command list, not
// per draw; this is what keeps the bindless model cheap.
func (da *DescriptorAllocator) PrepareForRendering(stream interface{}) error {
	natives := make([]NativeStore, 0, resourceViewTypeCount)
	for t := ResourceViewType(0); t < resourceViewTypeCount; t++ {
		store := da.stores[t][DescriptorVisibilityShaderVisible]
		if store == nil {
			continue
		}
		native, open := store.bindState()
		if da.config.EnableValidation && open {
			core.LogWarn("func PrepareForRendering - %s batch window still open; deferred copies will not be visible this frame", t)
		}
		natives = append(natives, native)
	}
	return da.backend.BindForFrame(stream, natives)
}

// Stats samples the occupancy of one store.
func (da *DescriptorAllocator) Stats(t ResourceViewType, v DescriptorVisibility) (StoreStats, error) {
	store, err := da.storeFor(t, v)
	if err != nil {
		return StoreStats{}, err
	}
	return store.stats(), nil
}

// Metrics snapshots the allocator-wide counters.
func (da *DescriptorAllocator) Metrics() core.DescriptorMetricsSnapshot {
	return da.metrics.Snapshot()
}

// Shutdown releases every native store. Handles still alive afterwards
// are invalid by definition.
func (da *DescriptorAllocator) Shutdown() {
	for t := ResourceViewType(0); t < resourceViewTypeCount; t++ {
		for v := DescriptorVisibility(0); v < descriptorVisibilityCount; v++ {
			if da.stores[t][v] != nil {
				da.stores[t][v].destroy()
				da.stores[t][v] = nil
			}
		}
	}
}
