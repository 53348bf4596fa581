package systems

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

type RegistrySystemConfig struct {
	/** @brief The maximum number of registered resource views at once. */
	MaxEntryCount uint32
}

// handleKey identifies a live slot. Index uniqueness within a
// (viewType, visibility) pair makes this a stable identity for the
// lifetime of the registration.
type handleKey struct {
	viewType   descriptors.ResourceViewType
	visibility descriptors.DescriptorVisibility
	index      uint32
}

type registryEntry struct {
	name       string
	kind       metadata.ResourceViewKind
	view       metadata.ResourceViewDescription
	handle     *descriptors.DescriptorHandle
	generation uint32
}

/**
 * @brief Maps domain resources onto descriptor handles and keeps a
 * name index for O(1) lookup. The registry owns the handles it hands
 * out; callers embed indices, the registry manages slot lifetime.
 * Resources themselves are shared with the caller: the registry holds a
 * non-owning reference and Update/Unregister are the invalidation paths.
 */
type RegistrySystem struct {
	Config    *RegistrySystemConfig
	allocator *descriptors.DescriptorAllocator

	mu       sync.RWMutex
	entries  map[string]*registryEntry
	byHandle map[handleKey]*registryEntry
}

func NewRegistrySystem(config *RegistrySystemConfig, allocator *descriptors.DescriptorAllocator) (*RegistrySystem, error) {
	if config.MaxEntryCount == 0 {
		err := fmt.Errorf("func NewRegistrySystem - config.MaxEntryCount must be > 0")
		core.LogFatal(err.Error())
		return nil, err
	}
	if allocator == nil {
		err := fmt.Errorf("func NewRegistrySystem - allocator must not be nil")
		core.LogFatal(err.Error())
		return nil, err
	}
	return &RegistrySystem{
		Config:    config,
		allocator: allocator,
		entries:   make(map[string]*registryEntry, config.MaxEntryCount),
		byHandle:  make(map[handleKey]*registryEntry, config.MaxEntryCount),
	}, nil
}

// RegisterTextureSRV binds a texture as a shader-read view and returns
// the handle whose index shaders use.
func (rs *RegistrySystem) RegisterTextureSRV(texture *metadata.Texture, view metadata.TextureViewDescription) (*descriptors.DescriptorHandle, error) {
	if texture == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterTextureSRV - texture must not be nil")
	}
	return rs.register(texture.Name, "texture", descriptors.ResourceViewTypeSRV, metadata.TextureView(texture, view))
}

// RegisterTextureUAV binds a texture as a storage (read/write) view.
func (rs *RegistrySystem) RegisterTextureUAV(texture *metadata.Texture, view metadata.TextureViewDescription) (*descriptors.DescriptorHandle, error) {
	if texture == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterTextureUAV - texture must not be nil")
	}
	return rs.register(texture.Name, "texture", descriptors.ResourceViewTypeUAV, metadata.TextureView(texture, view))
}

// RegisterBufferSRV binds a structured or raw buffer as a shader-read view.
func (rs *RegistrySystem) RegisterBufferSRV(buffer *metadata.Buffer, view metadata.BufferViewDescription) (*descriptors.DescriptorHandle, error) {
	if buffer == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterBufferSRV - buffer must not be nil")
	}
	return rs.register(buffer.Name, "buffer", descriptors.ResourceViewTypeSRV, metadata.BufferView(buffer, view))
}

// RegisterBufferUAV binds a buffer as a storage (read/write) view.
func (rs *RegistrySystem) RegisterBufferUAV(buffer *metadata.Buffer, view metadata.BufferViewDescription) (*descriptors.DescriptorHandle, error) {
	if buffer == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterBufferUAV - buffer must not be nil")
	}
	return rs.register(buffer.Name, "buffer", descriptors.ResourceViewTypeUAV, metadata.BufferView(buffer, view))
}

// RegisterBufferCBV binds a buffer range as a constant buffer view.
func (rs *RegistrySystem) RegisterBufferCBV(buffer *metadata.Buffer, view metadata.BufferViewDescription) (*descriptors.DescriptorHandle, error) {
	if buffer == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterBufferCBV - buffer must not be nil")
	}
	return rs.register(buffer.Name, "buffer", descriptors.ResourceViewTypeCBV, metadata.BufferView(buffer, view))
}

// RegisterSampler binds a sampler state object.
func (rs *RegistrySystem) RegisterSampler(sampler *metadata.SamplerState) (*descriptors.DescriptorHandle, error) {
	if sampler == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterSampler - sampler must not be nil")
	}
	return rs.register(sampler.Name, "sampler", descriptors.ResourceViewTypeSampler, metadata.SamplerView(sampler))
}

// RegisterRenderTarget binds a texture as a render-target view. RTV slots
// are host-visible attachment state, never shader indexed.
func (rs *RegistrySystem) RegisterRenderTarget(texture *metadata.Texture, view metadata.TextureViewDescription) (*descriptors.DescriptorHandle, error) {
	if texture == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterRenderTarget - texture must not be nil")
	}
	return rs.register(texture.Name, "render_target", descriptors.ResourceViewTypeRTV, metadata.TextureView(texture, view))
}

// RegisterDepthStencil binds a texture as a depth-stencil view.
func (rs *RegistrySystem) RegisterDepthStencil(texture *metadata.Texture, view metadata.TextureViewDescription) (*descriptors.DescriptorHandle, error) {
	if texture == nil {
		return descriptors.InvalidHandle(), fmt.Errorf("func RegisterDepthStencil - texture must not be nil")
	}
	return rs.register(texture.Name, "depth_stencil", descriptors.ResourceViewTypeDSV, metadata.TextureView(texture, view))
}

func (rs *RegistrySystem) register(name, prefix string, viewType descriptors.ResourceViewType, view metadata.ResourceViewDescription) (*descriptors.DescriptorHandle, error) {
	// Anonymous resources still need a name for the lookup index.
	if name == "" {
		name = fmt.Sprintf("%s_%s", prefix, uuid.New().String())
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	if existing, ok := rs.entries[name]; ok {
		core.LogWarn("func RegistrySystem.register - '%s' is already registered, returning the existing handle", name)
		return existing.handle, nil
	}
	if uint32(len(rs.entries)) >= rs.Config.MaxEntryCount {
		err := fmt.Errorf("func RegistrySystem.register - registry cannot hold more entries (max=%d). Adjust configuration to allow more", rs.Config.MaxEntryCount)
		core.LogError(err.Error())
		return descriptors.InvalidHandle(), err
	}

	handle, err := rs.allocator.Allocate(viewType, visibilityFor(viewType))
	if err != nil {
		core.LogError("func RegistrySystem.register - failed to allocate a %s slot for '%s': %s", viewType, name, err.Error())
		return descriptors.InvalidHandle(), err
	}
	if err := rs.allocator.WriteView(handle, view); err != nil {
		handle.Release()
		core.LogError("func RegistrySystem.register - failed to write the view for '%s': %s", name, err.Error())
		return descriptors.InvalidHandle(), err
	}

	entry := &registryEntry{
		name:   name,
		kind:   view.Kind,
		view:   view,
		handle: handle,
	}
	rs.entries[name] = entry
	rs.byHandle[keyOf(handle)] = entry

	core.LogDebug("registered '%s' as %s index %d", name, viewType, handle.Index())
	return handle, nil
}

// visibilityFor picks the tier a freshly registered view lives in.
// Attachment views are host-only; everything else goes straight to the
// shader-visible store.
func visibilityFor(t descriptors.ResourceViewType) descriptors.DescriptorVisibility {
	if t == descriptors.ResourceViewTypeRTV || t == descriptors.ResourceViewTypeDSV {
		return descriptors.DescriptorVisibilityCpuOnly
	}
	return descriptors.DescriptorVisibilityShaderVisible
}

func keyOf(h *descriptors.DescriptorHandle) handleKey {
	return handleKey{
		viewType:   h.ViewType(),
		visibility: h.Visibility(),
		index:      h.Index(),
	}
}

// FindTextureByName returns the handle of a registered texture view, or
// an invalid handle when the name is unknown. Callers must check IsValid.
func (rs *RegistrySystem) FindTextureByName(name string) *descriptors.DescriptorHandle {
	return rs.findByName(name, metadata.ResourceViewKindTexture)
}

// FindBufferByName returns the handle of a registered buffer view, or an
// invalid handle when the name is unknown.
func (rs *RegistrySystem) FindBufferByName(name string) *descriptors.DescriptorHandle {
	return rs.findByName(name, metadata.ResourceViewKindBuffer)
}

// FindSamplerByName returns the handle of a registered sampler, or an
// invalid handle when the name is unknown.
func (rs *RegistrySystem) FindSamplerByName(name string) *descriptors.DescriptorHandle {
	return rs.findByName(name, metadata.ResourceViewKindSampler)
}

func (rs *RegistrySystem) findByName(name string, kind metadata.ResourceViewKind) *descriptors.DescriptorHandle {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	entry, ok := rs.entries[name]
	if !ok || entry.kind != kind {
		return descriptors.InvalidHandle()
	}
	return entry.handle
}

// UpdateTexture re-points a live slot at a new texture without touching
// its index, so indices already embedded in shader constants stay valid.
// No allocation happens here; the write goes into the same slot.
func (rs *RegistrySystem) UpdateTexture(handle *descriptors.DescriptorHandle, newTexture *metadata.Texture) error {
	if newTexture == nil {
		return fmt.Errorf("func UpdateTexture - newTexture must not be nil")
	}
	return rs.update(handle, metadata.ResourceViewKindTexture, func(entry *registryEntry) {
		entry.view.Texture = newTexture
	})
}

// UpdateBuffer re-points a live slot at a new buffer, index unchanged.
func (rs *RegistrySystem) UpdateBuffer(handle *descriptors.DescriptorHandle, newBuffer *metadata.Buffer) error {
	if newBuffer == nil {
		return fmt.Errorf("func UpdateBuffer - newBuffer must not be nil")
	}
	return rs.update(handle, metadata.ResourceViewKindBuffer, func(entry *registryEntry) {
		entry.view.Buffer = newBuffer
	})
}

func (rs *RegistrySystem) update(handle *descriptors.DescriptorHandle, kind metadata.ResourceViewKind, repoint func(*registryEntry)) error {
	if !handle.IsValid() {
		core.LogError("func RegistrySystem.update - called with an invalid handle")
		return core.ErrInvalidHandle
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	entry, ok := rs.byHandle[keyOf(handle)]
	if !ok {
		return fmt.Errorf("func RegistrySystem.update - handle %s/%d is not registered: %w", handle.ViewType(), handle.Index(), core.ErrInvalidHandle)
	}
	if entry.kind != kind {
		return fmt.Errorf("func RegistrySystem.update - '%s' holds a different resource kind: %w", entry.name, core.ErrTypeMismatch)
	}

	repoint(entry)
	if err := rs.allocator.WriteView(entry.handle, entry.view); err != nil {
		return err
	}
	entry.generation++
	core.LogDebug("updated '%s' in place at %s index %d (generation %d)", entry.name, entry.handle.ViewType(), entry.handle.Index(), entry.generation)
	return nil
}

// Refresh re-issues the current view of a named entry into its slot,
// bumping the generation. Used when the underlying resource contents
// changed but the resource object itself did not (hot reload).
func (rs *RegistrySystem) Refresh(name string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	entry, ok := rs.entries[name]
	if !ok {
		return fmt.Errorf("func RegistrySystem.Refresh - '%s' is not registered: %w", name, core.ErrInvalidHandle)
	}
	if err := rs.allocator.WriteView(entry.handle, entry.view); err != nil {
		return err
	}
	entry.generation++
	return nil
}

// Generation reports how many times a named entry was updated in place.
func (rs *RegistrySystem) Generation(name string) uint32 {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if entry, ok := rs.entries[name]; ok {
		return entry.generation
	}
	return metadata.InvalidID
}

// Unregister releases the slot behind the handle and erases the entry.
// Safe to call with an invalid or unknown handle.
func (rs *RegistrySystem) Unregister(handle *descriptors.DescriptorHandle) {
	if !handle.IsValid() {
		return
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	key := keyOf(handle)
	entry, ok := rs.byHandle[key]
	if !ok {
		core.LogWarn("func RegistrySystem.Unregister - handle %s/%d is not registered", handle.ViewType(), handle.Index())
		return
	}

	entry.handle.Release()
	delete(rs.byHandle, key)
	delete(rs.entries, entry.name)
	core.LogDebug("unregistered '%s'", entry.name)
}

// PrepareForRendering forwards the per-frame bind to the allocator.
func (rs *RegistrySystem) PrepareForRendering(stream interface{}) error {
	return rs.allocator.PrepareForRendering(stream)
}

// EntryCount reports the number of live registrations.
func (rs *RegistrySystem) EntryCount() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.entries)
}

// Shutdown releases every live entry. The allocator itself is owned by
// the caller and shut down separately.
func (rs *RegistrySystem) Shutdown() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for _, entry := range maps.Values(rs.entries) {
		entry.handle.Release()
	}
	maps.Clear(rs.entries)
	maps.Clear(rs.byHandle)
	core.LogInfo("resource registry shut down")
}
