package descriptors

import (
	"fmt"
)

const (
	/** @brief The index of a handle that owns no slot. */
	InvalidIndex uint32 = 4294967295
)

/**
 * @brief The kind of resource view a descriptor slot holds. Each type has
 * its own index space; indices never collide across types.
 */
type ResourceViewType uint8

const (
	ResourceViewTypeSRV ResourceViewType = iota
	ResourceViewTypeUAV
	ResourceViewTypeCBV
	ResourceViewTypeRTV
	ResourceViewTypeDSV
	ResourceViewTypeSampler

	resourceViewTypeCount
)

func (t ResourceViewType) String() string {
	switch t {
	case ResourceViewTypeSRV:
		return "SRV"
	case ResourceViewTypeUAV:
		return "UAV"
	case ResourceViewTypeCBV:
		return "CBV"
	case ResourceViewTypeRTV:
		return "RTV"
	case ResourceViewTypeDSV:
		return "DSV"
	case ResourceViewTypeSampler:
		return "Sampler"
	}
	return "Unknown"
}

/**
 * @brief The visibility tier of a descriptor slot. CpuOnly slots stage view
 * writes on the host; only ShaderVisible slots can be indexed from shaders.
 */
type DescriptorVisibility uint8

const (
	DescriptorVisibilityShaderVisible DescriptorVisibility = iota
	DescriptorVisibilityCpuOnly

	descriptorVisibilityCount
)

func (v DescriptorVisibility) String() string {
	switch v {
	case DescriptorVisibilityShaderVisible:
		return "ShaderVisible"
	case DescriptorVisibilityCpuOnly:
		return "CpuOnly"
	}
	return "Unknown"
}

// supportsVisibility reports whether a (type, visibility) store exists.
// Samplers are shader-visible only; render targets and depth stencils are
// host-written attachment views and never shader indexed.
func supportsVisibility(t ResourceViewType, v DescriptorVisibility) bool {
	switch t {
	case ResourceViewTypeSampler:
		return v == DescriptorVisibilityShaderVisible
	case ResourceViewTypeRTV, ResourceViewTypeDSV:
		return v == DescriptorVisibilityCpuOnly
	default:
		return true
	}
}

/**
 * @brief Configuration for a DescriptorAllocator. Zero values are replaced
 * by defaults in NewDescriptorAllocator.
 */
type Config struct {
	/** @brief Per-type capacity ceilings (initial capacities when growth is on). */
	MaxSRVs     uint32 `toml:"max_srvs"`
	MaxUAVs     uint32 `toml:"max_uavs"`
	MaxCBVs     uint32 `toml:"max_cbvs"`
	MaxSamplers uint32 `toml:"max_samplers"`
	MaxRTVs     uint32 `toml:"max_rtvs"`
	MaxDSVs     uint32 `toml:"max_dsvs"`
	/** @brief Allows stores to grow in place when exhausted. */
	EnableDynamicGrowth bool `toml:"enable_dynamic_growth"`
	/** @brief Capacity multiplier applied on each growth. */
	GrowthFactor float32 `toml:"growth_factor"`
	/** @brief Maximum number of growths per store. */
	MaxGrowthIterations uint32 `toml:"max_growth_iterations"`
	/** @brief Defers CopyToShaderVisible inside a batch window. */
	EnableBatchedUpdates bool `toml:"enable_batched_updates"`
	/** @brief Deferred copies held before a forced flush. */
	MaxUpdatesPerBatch uint32 `toml:"max_updates_per_batch"`
	/** @brief Guards each store with its own mutex. */
	EnableThreadSafety bool `toml:"enable_thread_safety"`
	/** @brief Slots pre-reserved by a HandleCache. */
	PerThreadCacheSize uint32 `toml:"per_thread_cache_size"`
	/** @brief Enables debug checks (bitmap validation, misuse logging). */
	EnableValidation bool `toml:"enable_validation"`
}

func DefaultConfig() *Config {
	return &Config{
		MaxSRVs:              4096,
		MaxUAVs:              1024,
		MaxCBVs:              1024,
		MaxSamplers:          256,
		MaxRTVs:              256,
		MaxDSVs:              64,
		EnableDynamicGrowth:  true,
		GrowthFactor:         2.0,
		MaxGrowthIterations:  3,
		EnableBatchedUpdates: true,
		MaxUpdatesPerBatch:   256,
		EnableThreadSafety:   true,
		PerThreadCacheSize:   64,
		EnableValidation:     false,
	}
}

// applyDefaults fills zero values so a partially populated config (e.g.
// parsed from TOML) still behaves.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MaxSRVs == 0 {
		c.MaxSRVs = d.MaxSRVs
	}
	if c.MaxUAVs == 0 {
		c.MaxUAVs = d.MaxUAVs
	}
	if c.MaxCBVs == 0 {
		c.MaxCBVs = d.MaxCBVs
	}
	if c.MaxSamplers == 0 {
		c.MaxSamplers = d.MaxSamplers
	}
	if c.MaxRTVs == 0 {
		c.MaxRTVs = d.MaxRTVs
	}
	if c.MaxDSVs == 0 {
		c.MaxDSVs = d.MaxDSVs
	}
	if c.GrowthFactor == 0 {
		c.GrowthFactor = d.GrowthFactor
	}
	if c.MaxGrowthIterations == 0 {
		c.MaxGrowthIterations = d.MaxGrowthIterations
	}
	if c.MaxUpdatesPerBatch == 0 {
		c.MaxUpdatesPerBatch = d.MaxUpdatesPerBatch
	}
	if c.PerThreadCacheSize == 0 {
		c.PerThreadCacheSize = d.PerThreadCacheSize
	}
}

func (c *Config) validate() error {
	if c.GrowthFactor <= 1.0 {
		return fmt.Errorf("func Config.validate - GrowthFactor must be > 1.0, got %f", c.GrowthFactor)
	}
	return nil
}

// capacityFor returns the configured initial capacity of a view type.
func (c *Config) capacityFor(t ResourceViewType) uint32 {
	switch t {
	case ResourceViewTypeSRV:
		return c.MaxSRVs
	case ResourceViewTypeUAV:
		return c.MaxUAVs
	case ResourceViewTypeCBV:
		return c.MaxCBVs
	case ResourceViewTypeSampler:
		return c.MaxSamplers
	case ResourceViewTypeRTV:
		return c.MaxRTVs
	case ResourceViewTypeDSV:
		return c.MaxDSVs
	}
	return 0
}
