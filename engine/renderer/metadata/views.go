package metadata

type ViewFormat int

const (
	ViewFormatUnknown ViewFormat = iota
	ViewFormatR8G8B8A8Unorm
	ViewFormatB8G8R8A8Unorm
	ViewFormatR16G16B16A16Float
	ViewFormatR32G32B32A32Float
	ViewFormatR32Float
	ViewFormatR32Uint
	ViewFormatD32Float
	ViewFormatD24UnormS8Uint
)

type ViewDimension int

const (
	ViewDimensionTexture2d ViewDimension = iota
	ViewDimensionTexture2dArray
	ViewDimensionTexture3d
	ViewDimensionTextureCube
	ViewDimensionBuffer
)

/**
 * @brief Describes how a texture is interpreted by a single descriptor slot.
 * Two views of the same texture with different descriptions occupy
 * different slots.
 */
type TextureViewDescription struct {
	Format    ViewFormat
	Dimension ViewDimension
	/** @brief First mip level visible through the view. */
	MipSlice uint32
	/** @brief Number of mip levels, InvalidID for all remaining. */
	MipCount uint32
	/** @brief First array layer visible through the view. */
	ArraySlice uint32
	/** @brief Number of array layers, InvalidID for all remaining. */
	ArrayCount uint32
}

/**
 * @brief Describes how a buffer range is interpreted by a descriptor slot.
 */
type BufferViewDescription struct {
	/** @brief Byte offset of the viewed range. */
	Offset uint64
	/** @brief Byte size of the viewed range, 0 for whole buffer. */
	Size uint64
	/** @brief Structure stride for structured views, 0 for raw. */
	Stride uint32
}

type ResourceViewKind int

const (
	ResourceViewKindNone ResourceViewKind = iota
	ResourceViewKindTexture
	ResourceViewKindBuffer
	ResourceViewKindSampler
)

/**
 * @brief The tagged union handed to a backend store when a view is written
 * into a slot. Exactly one of the resource pointers is set, matching Kind.
 */
type ResourceViewDescription struct {
	Kind ResourceViewKind

	Texture     *Texture
	TextureView TextureViewDescription

	Buffer     *Buffer
	BufferView BufferViewDescription

	Sampler *SamplerState
}

// TextureView builds a view description for a texture slot.
func TextureView(texture *Texture, view TextureViewDescription) ResourceViewDescription {
	return ResourceViewDescription{
		Kind:        ResourceViewKindTexture,
		Texture:     texture,
		TextureView: view,
	}
}

// BufferView builds a view description for a buffer slot.
func BufferView(buffer *Buffer, view BufferViewDescription) ResourceViewDescription {
	return ResourceViewDescription{
		Kind:       ResourceViewKindBuffer,
		Buffer:     buffer,
		BufferView: view,
	}
}

// SamplerView builds a view description for a sampler slot.
func SamplerView(sampler *SamplerState) ResourceViewDescription {
	return ResourceViewDescription{
		Kind:    ResourceViewKindSampler,
		Sampler: sampler,
	}
}
