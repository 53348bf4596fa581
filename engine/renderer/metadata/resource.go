package metadata

const (
	/** @brief An invalid identifier. */
	InvalidID uint32 = 4294967295
)

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A three-dimensional texture. */
	TextureType3d
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
)

/**
 * @brief Represents a texture that already exists on the GPU. This core
 * never creates or uploads texture memory; it only hands out descriptor
 * indices for it.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uint32
	/** @brief The texture type. */
	TextureType TextureType
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The texture depth, 1 for non-3d textures. */
	Depth uint32
	/** @brief The number of mip levels. */
	MipLevels uint32
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief The texture Name. */
	Name string
	/** @brief The renderer API internal payload (e.g. image view handles). */
	InternalData interface{}
}

/**
 * @brief Represents a GPU buffer that already exists. As with textures,
 * creation and upload happen elsewhere.
 */
type Buffer struct {
	/** @brief The unique buffer identifier. */
	ID uint32
	/** @brief Total size in bytes. */
	TotalSize uint64
	/** @brief The buffer Generation. Incremented on reallocation. */
	Generation uint32
	/** @brief The buffer Name. */
	Name string
	/** @brief The renderer API internal payload (e.g. buffer handles). */
	InternalData interface{}
}

type FilterMode int

const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

type AddressMode int

const (
	AddressModeRepeat AddressMode = iota
	AddressModeMirroredRepeat
	AddressModeClampToEdge
	AddressModeClampToBorder
)

/**
 * @brief Represents a sampler state object.
 */
type SamplerState struct {
	/** @brief The unique sampler identifier. */
	ID uint32
	/** @brief The sampler Name. */
	Name string
	MinFilter FilterMode
	MagFilter FilterMode
	AddressU  AddressMode
	AddressV  AddressMode
	AddressW  AddressMode
	/** @brief Maximum anisotropy, 0 disables anisotropic filtering. */
	MaxAnisotropy float32
	/** @brief The renderer API internal payload (e.g. sampler handles). */
	InternalData interface{}
}
