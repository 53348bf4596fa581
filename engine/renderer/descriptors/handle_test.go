package descriptors_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
)

func TestInvalidHandle(t *testing.T) {
	handle := descriptors.InvalidHandle()
	assert.False(t, handle.IsValid())
	assert.Equal(t, descriptors.InvalidIndex, handle.Index())

	// Releasing an empty handle is a defined no-op.
	handle.Release()
	handle.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	config := testConfig()
	config.EnableValidation = false
	allocator, _ := newTestAllocator(t, config)

	handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	index := handle.Index()

	handle.Release()
	assert.False(t, handle.IsValid())
	assert.Equal(t, descriptors.InvalidIndex, handle.Index())
	// The second release must not push the slot onto the free list a
	// second time.
	handle.Release()

	first, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	second, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, index, first.Index())
	assert.NotEqual(t, first.Index(), second.Index())
}

func TestDoubleFreeDoesNotCorruptTheFreeList(t *testing.T) {
	config := testConfig()
	config.EnableValidation = false
	allocator, _ := newTestAllocator(t, config)

	handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	handle.Release()

	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.FreeListed)

	// A stale free against the same index is swallowed.
	require.NoError(t, allocator.Free(handle))
	stats, err = allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.FreeListed)
}

func TestTransferMovesOwnership(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	index := handle.Index()

	moved := handle.Transfer()
	assert.False(t, handle.IsValid())
	assert.True(t, moved.IsValid())
	assert.Equal(t, index, moved.Index())

	// The moved-from handle can no longer free the slot.
	handle.Release()
	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Live)

	moved.Release()
	stats, err = allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stats.Live)
}

func TestFreeAgainstTheWrongAllocator(t *testing.T) {
	first, _ := newTestAllocator(t, testConfig())
	second, _ := newTestAllocator(t, testConfig())

	handle, err := first.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	err = second.Free(handle)
	require.Error(t, err)
	// The handle stays live on its own allocator.
	assert.True(t, handle.IsValid())
}
