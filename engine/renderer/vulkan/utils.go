package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

const (
	// Array element binding for image and sampler descriptors.
	bindingImages uint32 = 0
	// Array element binding for buffer descriptors. CBV stores keep
	// buffers on binding 0, they hold nothing else.
	bindingBuffers uint32 = 1
)

// isHostOnly reports whether a store has no device objects: Vulkan stages
// CpuOnly descriptors on the host, and attachment views (RTV/DSV) are
// framebuffer state rather than descriptors.
func isHostOnly(t descriptors.ResourceViewType, v descriptors.DescriptorVisibility) bool {
	if v == descriptors.DescriptorVisibilityCpuOnly {
		return true
	}
	return t == descriptors.ResourceViewTypeRTV || t == descriptors.ResourceViewTypeDSV
}

// layoutBindingsFor returns the arrayed bindings backing one store.
func layoutBindingsFor(t descriptors.ResourceViewType, capacity uint32) []vk.DescriptorSetLayoutBinding {
	stages := vk.ShaderStageFlags(vk.ShaderStageAll)
	switch t {
	case descriptors.ResourceViewTypeSRV:
		return []vk.DescriptorSetLayoutBinding{
			{Binding: bindingImages, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: capacity, StageFlags: stages},
			{Binding: bindingBuffers, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: capacity, StageFlags: stages},
		}
	case descriptors.ResourceViewTypeUAV:
		return []vk.DescriptorSetLayoutBinding{
			{Binding: bindingImages, DescriptorType: vk.DescriptorTypeStorageImage, DescriptorCount: capacity, StageFlags: stages},
			{Binding: bindingBuffers, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: capacity, StageFlags: stages},
		}
	case descriptors.ResourceViewTypeCBV:
		return []vk.DescriptorSetLayoutBinding{
			{Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: capacity, StageFlags: stages},
		}
	case descriptors.ResourceViewTypeSampler:
		return []vk.DescriptorSetLayoutBinding{
			{Binding: 0, DescriptorType: vk.DescriptorTypeSampler, DescriptorCount: capacity, StageFlags: stages},
		}
	}
	return nil
}

// bindingForKind maps a view kind onto the binding it occupies in the
// store's set.
func bindingForKind(t descriptors.ResourceViewType, kind metadata.ResourceViewKind) (uint32, error) {
	switch kind {
	case metadata.ResourceViewKindTexture:
		return bindingImages, nil
	case metadata.ResourceViewKindBuffer:
		if t == descriptors.ResourceViewTypeCBV {
			return 0, nil
		}
		return bindingBuffers, nil
	case metadata.ResourceViewKindSampler:
		return 0, nil
	}
	return 0, fmt.Errorf("func bindingForKind - view kind %d has no binding in a %s store", kind, t)
}

// descriptorTypeFor maps (store type, view kind) onto the Vulkan
// descriptor type written into the slot.
func descriptorTypeFor(t descriptors.ResourceViewType, kind metadata.ResourceViewKind) (vk.DescriptorType, error) {
	switch t {
	case descriptors.ResourceViewTypeSRV:
		if kind == metadata.ResourceViewKindTexture {
			return vk.DescriptorTypeSampledImage, nil
		}
		if kind == metadata.ResourceViewKindBuffer {
			return vk.DescriptorTypeStorageBuffer, nil
		}
	case descriptors.ResourceViewTypeUAV:
		if kind == metadata.ResourceViewKindTexture {
			return vk.DescriptorTypeStorageImage, nil
		}
		if kind == metadata.ResourceViewKindBuffer {
			return vk.DescriptorTypeStorageBuffer, nil
		}
	case descriptors.ResourceViewTypeCBV:
		if kind == metadata.ResourceViewKindBuffer {
			return vk.DescriptorTypeUniformBuffer, nil
		}
	case descriptors.ResourceViewTypeSampler:
		if kind == metadata.ResourceViewKindSampler {
			return vk.DescriptorTypeSampler, nil
		}
	}
	return 0, fmt.Errorf("func descriptorTypeFor - view kind %d cannot live in a %s store", kind, t)
}

func VulkanResultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Incomplete:
		return "VK_INCOMPLETE"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	case vk.ErrorOutOfPoolMemory:
		return "VK_ERROR_OUT_OF_POOL_MEMORY"
	case vk.ErrorFragmentedPool:
		return "VK_ERROR_FRAGMENTED_POOL"
	case vk.ErrorInitializationFailed:
		return "VK_ERROR_INITIALIZATION_FAILED"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorTooManyObjects:
		return "VK_ERROR_TOO_MANY_OBJECTS"
	}
	return fmt.Sprintf("VK_RESULT(%d)", int32(result))
}
