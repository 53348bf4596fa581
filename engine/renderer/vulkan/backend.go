package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

/**
 * @brief The Vulkan NativeBackend. Each shader-visible store is a
 * descriptor pool holding one set with large arrayed bindings; a slot
 * index is the array element a shader indexes into. Vulkan has no CPU-only
 * descriptor tier, so CpuOnly stores (and RTV/DSV attachment views) are
 * host mirrors; promoting them issues regular descriptor writes.
 */
type Backend struct {
	device         vk.Device
	pipelineLayout vk.PipelineLayout
	bindPoint      vk.PipelineBindPoint
}

// New wires the backend to an existing logical device. The pipeline
// layout must declare the bindless sets in store order; pipelines using
// other layouts cannot see the bound descriptors.
func New(device vk.Device, pipelineLayout vk.PipelineLayout, bindPoint vk.PipelineBindPoint) *Backend {
	return &Backend{
		device:         device,
		pipelineLayout: pipelineLayout,
		bindPoint:      bindPoint,
	}
}

/**
 * @brief Payloads carried in metadata InternalData fields for resources
 * that live on this backend's device.
 */
type TextureData struct {
	Image     vk.Image
	ImageView vk.ImageView
	Layout    vk.ImageLayout
}

type BufferData struct {
	Buffer vk.Buffer
}

type SamplerData struct {
	Sampler vk.Sampler
}

type nativeStore struct {
	viewType   descriptors.ResourceViewType
	visibility descriptors.DescriptorVisibility
	capacity   uint32
	// True for CpuOnly and attachment-view stores, which have no device
	// objects behind them.
	hostOnly bool

	mu sync.Mutex
	// Host mirror of every written view. Source of truth for host-only
	// stores and for host-to-device promotion.
	slots []metadata.ResourceViewDescription

	layout vk.DescriptorSetLayout
	pool   vk.DescriptorPool
	set    vk.DescriptorSet
}

func (s *nativeStore) Capacity() uint32 {
	return s.capacity
}

func (b *Backend) CreateNativeSlots(t descriptors.ResourceViewType, v descriptors.DescriptorVisibility, capacity uint32) (descriptors.NativeStore, error) {
	store := &nativeStore{
		viewType:   t,
		visibility: v,
		capacity:   capacity,
		hostOnly:   isHostOnly(t, v),
		slots:      make([]metadata.ResourceViewDescription, capacity),
	}
	if store.hostOnly {
		return store, nil
	}

	bindings := layoutBindingsFor(t, capacity)
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(b.device, &layoutInfo, nil, &layout); res != vk.Success {
		return nil, fmt.Errorf("func Backend.CreateNativeSlots - vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res))
	}

	poolSizes := make([]vk.DescriptorPoolSize, 0, len(bindings))
	for _, binding := range bindings {
		poolSizes = append(poolSizes, vk.DescriptorPoolSize{
			Type:            binding.DescriptorType,
			DescriptorCount: binding.DescriptorCount,
		})
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(b.device, &poolInfo, nil, &pool); res != vk.Success {
		vk.DestroyDescriptorSetLayout(b.device, layout, nil)
		return nil, fmt.Errorf("func Backend.CreateNativeSlots - vkCreateDescriptorPool failed with %s", VulkanResultString(res))
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(b.device, &allocInfo, &set); res != vk.Success {
		vk.DestroyDescriptorPool(b.device, pool, nil)
		vk.DestroyDescriptorSetLayout(b.device, layout, nil)
		return nil, fmt.Errorf("func Backend.CreateNativeSlots - vkAllocateDescriptorSets failed with %s", VulkanResultString(res))
	}

	store.layout = layout
	store.pool = pool
	store.set = set
	return store, nil
}

func (b *Backend) WriteView(native descriptors.NativeStore, index uint32, view metadata.ResourceViewDescription) error {
	store, err := b.storeOf(native)
	if err != nil {
		return err
	}
	if index >= store.capacity {
		return fmt.Errorf("func Backend.WriteView - index %d out of range (capacity=%d)", index, store.capacity)
	}

	store.mu.Lock()
	store.slots[index] = view
	store.mu.Unlock()

	if store.hostOnly {
		return nil
	}

	write, err := b.descriptorWrite(store, index, view)
	if err != nil {
		return err
	}
	vk.UpdateDescriptorSets(b.device, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// CopyViews coalesces a batch into a single vkUpdateDescriptorSets call.
// Device-to-device propagation uses descriptor copies; host-to-device
// re-issues the staged view as a write.
func (b *Backend) CopyViews(ops []descriptors.CopyOp) error {
	writes := make([]vk.WriteDescriptorSet, 0, len(ops))
	copies := make([]vk.CopyDescriptorSet, 0, len(ops))

	for _, op := range ops {
		src, err := b.storeOf(op.SrcStore)
		if err != nil {
			return err
		}
		dst, err := b.storeOf(op.DstStore)
		if err != nil {
			return err
		}
		if src.viewType != dst.viewType {
			return fmt.Errorf("func Backend.CopyViews - copy across view types %s -> %s", src.viewType, dst.viewType)
		}
		if op.SrcIndex >= src.capacity || op.DstIndex >= dst.capacity {
			return fmt.Errorf("func Backend.CopyViews - copy %d -> %d out of range", op.SrcIndex, op.DstIndex)
		}

		src.mu.Lock()
		view := src.slots[op.SrcIndex]
		src.mu.Unlock()

		// A live but never-written slot has nothing to propagate.
		if view.Kind == metadata.ResourceViewKindNone {
			continue
		}

		dst.mu.Lock()
		dst.slots[op.DstIndex] = view
		dst.mu.Unlock()

		if dst.hostOnly {
			continue
		}

		if src.hostOnly {
			write, err := b.descriptorWrite(dst, op.DstIndex, view)
			if err != nil {
				return err
			}
			writes = append(writes, write)
			continue
		}

		binding, err := bindingForKind(src.viewType, view.Kind)
		if err != nil {
			return err
		}
		copies = append(copies, vk.CopyDescriptorSet{
			SType:           vk.StructureTypeCopyDescriptorSet,
			SrcSet:          src.set,
			SrcBinding:      binding,
			SrcArrayElement: op.SrcIndex,
			DstSet:          dst.set,
			DstBinding:      binding,
			DstArrayElement: op.DstIndex,
			DescriptorCount: 1,
		})
	}

	if len(writes) == 0 && len(copies) == 0 {
		return nil
	}
	vk.UpdateDescriptorSets(b.device, uint32(len(writes)), writes, uint32(len(copies)), copies)
	return nil
}

// BindForFrame binds every device-backed set once. The stream must be the
// vk.CommandBuffer being recorded for the frame.
func (b *Backend) BindForFrame(stream interface{}, stores []descriptors.NativeStore) error {
	commandBuffer, ok := stream.(vk.CommandBuffer)
	if !ok {
		return fmt.Errorf("func Backend.BindForFrame - stream is not a vk.CommandBuffer")
	}

	sets := make([]vk.DescriptorSet, 0, len(stores))
	for _, native := range stores {
		store, err := b.storeOf(native)
		if err != nil {
			return err
		}
		if store.hostOnly {
			continue
		}
		sets = append(sets, store.set)
	}
	if len(sets) == 0 {
		return nil
	}

	vk.CmdBindDescriptorSets(commandBuffer, b.bindPoint, b.pipelineLayout, 0, uint32(len(sets)), sets, 0, nil)
	return nil
}

func (b *Backend) DestroyNativeSlots(native descriptors.NativeStore) {
	store, err := b.storeOf(native)
	if err != nil {
		return
	}
	if store.hostOnly {
		return
	}
	// Destroying the pool frees the set with it.
	vk.DestroyDescriptorPool(b.device, store.pool, nil)
	vk.DestroyDescriptorSetLayout(b.device, store.layout, nil)
	store.pool = vk.NullDescriptorPool
	store.layout = vk.NullDescriptorSetLayout
	store.set = vk.NullDescriptorSet
}

func (b *Backend) storeOf(native descriptors.NativeStore) (*nativeStore, error) {
	store, ok := native.(*nativeStore)
	if !ok || store == nil {
		return nil, fmt.Errorf("func Backend.storeOf - native store does not belong to the vulkan backend")
	}
	return store, nil
}

// descriptorWrite converts a view description into the platform write for
// one array element.
func (b *Backend) descriptorWrite(store *nativeStore, index uint32, view metadata.ResourceViewDescription) (vk.WriteDescriptorSet, error) {
	binding, err := bindingForKind(store.viewType, view.Kind)
	if err != nil {
		return vk.WriteDescriptorSet{}, err
	}
	descriptorType, err := descriptorTypeFor(store.viewType, view.Kind)
	if err != nil {
		return vk.WriteDescriptorSet{}, err
	}

	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          store.set,
		DstBinding:      binding,
		DstArrayElement: index,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
	}

	switch view.Kind {
	case metadata.ResourceViewKindTexture:
		data, ok := view.Texture.InternalData.(*TextureData)
		if !ok {
			return vk.WriteDescriptorSet{}, fmt.Errorf("func Backend.descriptorWrite - texture '%s' has no vulkan payload", view.Texture.Name)
		}
		layout := data.Layout
		if layout == vk.ImageLayoutUndefined {
			layout = vk.ImageLayoutShaderReadOnlyOptimal
			if store.viewType == descriptors.ResourceViewTypeUAV {
				layout = vk.ImageLayoutGeneral
			}
		}
		write.PImageInfo = []vk.DescriptorImageInfo{{
			ImageView:   data.ImageView,
			ImageLayout: layout,
		}}
	case metadata.ResourceViewKindBuffer:
		data, ok := view.Buffer.InternalData.(*BufferData)
		if !ok {
			return vk.WriteDescriptorSet{}, fmt.Errorf("func Backend.descriptorWrite - buffer '%s' has no vulkan payload", view.Buffer.Name)
		}
		size := vk.DeviceSize(view.BufferView.Size)
		if size == 0 {
			size = vk.DeviceSize(vk.WholeSize)
		}
		write.PBufferInfo = []vk.DescriptorBufferInfo{{
			Buffer: data.Buffer,
			Offset: vk.DeviceSize(view.BufferView.Offset),
			Range:  size,
		}}
	case metadata.ResourceViewKindSampler:
		data, ok := view.Sampler.InternalData.(*SamplerData)
		if !ok {
			return vk.WriteDescriptorSet{}, fmt.Errorf("func Backend.descriptorWrite - sampler '%s' has no vulkan payload", view.Sampler.Name)
		}
		write.PImageInfo = []vk.DescriptorImageInfo{{
			Sampler: data.Sampler,
		}}
	default:
		return vk.WriteDescriptorSet{}, fmt.Errorf("func Backend.descriptorWrite - view kind %d not writable", view.Kind)
	}

	return write, nil
}
