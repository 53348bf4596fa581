package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/virtual"
	"github.com/spaghettifunk/astra/engine/renderer/vulkan"
)

type BackendType uint8

const (
	// Descriptors live in Vulkan descriptor sets on a real device.
	BackendTypeVulkan BackendType = iota
	// Descriptors live in host memory; used for tests, tooling and
	// running without a GPU.
	BackendTypeVirtual
)

func (t BackendType) String() string {
	switch t {
	case BackendTypeVulkan:
		return "Vulkan"
	case BackendTypeVirtual:
		return "Virtual"
	}
	return "Unknown"
}

/**
 * @brief Device state the Vulkan backend attaches to. The device and
 * pipeline layout are owned by whoever created them; the descriptor core
 * only borrows them.
 */
type VulkanOptions struct {
	Device         vk.Device
	PipelineLayout vk.PipelineLayout
	BindPoint      vk.PipelineBindPoint
}

// NewNativeBackend selects the backend variant at construction time.
// Shared allocation logic never branches on the backend type again.
func NewNativeBackend(backendType BackendType, options *VulkanOptions) (descriptors.NativeBackend, error) {
	switch backendType {
	case BackendTypeVulkan:
		if options == nil || options.Device == nil {
			err := fmt.Errorf("func NewNativeBackend - the vulkan backend requires a logical device")
			core.LogError(err.Error())
			return nil, err
		}
		return vulkan.New(options.Device, options.PipelineLayout, options.BindPoint), nil
	case BackendTypeVirtual:
		return virtual.New(), nil
	}
	return nil, fmt.Errorf("func NewNativeBackend - unknown backend type %d", backendType)
}

// NewDescriptorAllocator builds an allocator on a freshly selected
// backend.
func NewDescriptorAllocator(config *descriptors.Config, backendType BackendType, options *VulkanOptions) (*descriptors.DescriptorAllocator, error) {
	backend, err := NewNativeBackend(backendType, options)
	if err != nil {
		return nil, err
	}
	core.LogInfo("creating descriptor allocator on the %s backend", backendType)
	return descriptors.NewDescriptorAllocator(config, backend)
}
