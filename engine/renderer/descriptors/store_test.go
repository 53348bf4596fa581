package descriptors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
	"github.com/spaghettifunk/astra/engine/renderer/virtual"
)

func testConfig() *descriptors.Config {
	config := descriptors.DefaultConfig()
	config.MaxSRVs = 16
	config.MaxUAVs = 16
	config.MaxCBVs = 16
	config.MaxSamplers = 8
	config.MaxRTVs = 8
	config.MaxDSVs = 4
	config.EnableValidation = true
	return config
}

func newTestAllocator(t *testing.T, config *descriptors.Config) (*descriptors.DescriptorAllocator, *virtual.Backend) {
	t.Helper()
	backend := virtual.New()
	allocator, err := descriptors.NewDescriptorAllocator(config, backend)
	require.NoError(t, err)
	t.Cleanup(allocator.Shutdown)
	return allocator, backend
}

// shaderVisibleStore digs the virtual store of a view type out of a frame
// bind, which is the only way a consumer ever observes native state.
func shaderVisibleStore(t *testing.T, allocator *descriptors.DescriptorAllocator, viewType descriptors.ResourceViewType) *virtual.Store {
	t.Helper()
	recorder := virtual.NewCommandRecorder()
	require.NoError(t, allocator.PrepareForRendering(recorder))
	for _, native := range recorder.LastBind() {
		store, ok := native.(*virtual.Store)
		require.True(t, ok)
		if store.ViewType() == viewType {
			return store
		}
	}
	t.Fatalf("no shader-visible store for %s", viewType)
	return nil
}

func TestAllocateReturnsUniqueLiveIndices(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	seen := map[uint32]bool{}
	for i := 0; i < 16; i++ {
		handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
		require.NoError(t, err)
		require.True(t, handle.IsValid())
		assert.False(t, seen[handle.Index()], "index %d handed out twice", handle.Index())
		seen[handle.Index()] = true
	}

	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), stats.Live)
	assert.Equal(t, stats.Capacity, stats.Live+stats.FreeListed+stats.Unused)
}

func TestFreeThenAllocateReusesTheSlot(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	first, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	second, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	freed := second.Index()
	second.Release()

	// LIFO free list: with no intervening allocations the freed slot
	// comes straight back.
	third, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, freed, third.Index())
	assert.NotEqual(t, first.Index(), third.Index())
}

func TestOutOfDescriptorsWhenGrowthDisabled(t *testing.T) {
	config := testConfig()
	config.MaxSRVs = 4
	config.EnableDynamicGrowth = false
	allocator, _ := newTestAllocator(t, config)

	handles := make([]*descriptors.DescriptorHandle, 0, 4)
	for i := 0; i < 4; i++ {
		handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
		require.NoError(t, err)
		handles = append(handles, handle)
	}

	_, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.ErrorIs(t, err, core.ErrOutOfDescriptors)

	// Freeing one slot makes the next allocation succeed and reuse it.
	reusable := handles[2].Index()
	handles[2].Release()
	handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, reusable, handle.Index())
}

func TestGrowthPreservesExistingIndices(t *testing.T) {
	config := testConfig()
	config.MaxSRVs = 4
	config.EnableDynamicGrowth = true
	config.GrowthFactor = 2.0
	config.MaxGrowthIterations = 2
	allocator, _ := newTestAllocator(t, config)

	textures := make([]*metadata.Texture, 4)
	handles := make([]*descriptors.DescriptorHandle, 4)
	for i := range handles {
		textures[i] = &metadata.Texture{Name: "tex", Width: uint32(i + 1)}
		handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
		require.NoError(t, err)
		require.NoError(t, allocator.WriteView(handle, metadata.TextureView(textures[i], metadata.TextureViewDescription{})))
		handles[i] = handle
	}

	// The 5th allocation exhausts the tail and triggers a growth.
	extra, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), extra.Index())

	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), stats.Capacity)
	assert.Equal(t, uint32(1), stats.Growths)

	// Every prior index still resolves to the view written before the
	// growth copied the slots across.
	store := shaderVisibleStore(t, allocator, descriptors.ResourceViewTypeSRV)
	for i, handle := range handles {
		view, err := store.Slot(handle.Index())
		require.NoError(t, err)
		require.NotNil(t, view.Texture)
		assert.Equal(t, uint32(i+1), view.Texture.Width)
	}
}

func TestGrowthBudgetExhausted(t *testing.T) {
	config := testConfig()
	config.MaxSRVs = 2
	config.EnableDynamicGrowth = true
	config.GrowthFactor = 2.0
	config.MaxGrowthIterations = 1
	allocator, _ := newTestAllocator(t, config)

	// Two fit the initial capacity, the 3rd grows the store to 4, the
	// 4th fills it, and the 5th has no growth budget left.
	for i := 0; i < 4; i++ {
		_, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
		require.NoError(t, err, "allocation %d", i+1)
	}
	_, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.ErrorIs(t, err, core.ErrOutOfDescriptors)

	metrics := allocator.Metrics()
	assert.Equal(t, uint64(1), metrics.Growths)
}

func TestIndexSpacesAreIndependentAcrossTypes(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	srv, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	cbv, err := allocator.Allocate(descriptors.ResourceViewTypeCBV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	// Both start at zero in their own space; equality is expected, not
	// a collision.
	assert.Equal(t, uint32(0), srv.Index())
	assert.Equal(t, uint32(0), cbv.Index())
}

func TestAllocateUnsupportedVisibility(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	_, err := allocator.Allocate(descriptors.ResourceViewTypeSampler, descriptors.DescriptorVisibilityCpuOnly)
	require.ErrorIs(t, err, core.ErrTypeMismatch)

	_, err = allocator.Allocate(descriptors.ResourceViewTypeRTV, descriptors.DescriptorVisibilityShaderVisible)
	require.ErrorIs(t, err, core.ErrTypeMismatch)
}
