package virtual_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
	"github.com/spaghettifunk/astra/engine/renderer/virtual"
)

func TestWriteViewRecordsTheSlot(t *testing.T) {
	backend := virtual.New()
	native, err := backend.CreateNativeSlots(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible, 4)
	require.NoError(t, err)

	texture := &metadata.Texture{Name: "recorded", Width: 128}
	require.NoError(t, backend.WriteView(native, 2, metadata.TextureView(texture, metadata.TextureViewDescription{})))

	store := native.(*virtual.Store)
	view, err := store.Slot(2)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceViewKindTexture, view.Kind)
	assert.Equal(t, "recorded", view.Texture.Name)
	assert.Equal(t, uint64(1), store.Writes())

	err = backend.WriteView(native, 4, metadata.TextureView(texture, metadata.TextureViewDescription{}))
	require.Error(t, err)
}

func TestCopyViewsPropagatesBetweenStores(t *testing.T) {
	backend := virtual.New()
	src, err := backend.CreateNativeSlots(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly, 4)
	require.NoError(t, err)
	dst, err := backend.CreateNativeSlots(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible, 4)
	require.NoError(t, err)

	buffer := &metadata.Buffer{Name: "copied", TotalSize: 64}
	require.NoError(t, backend.WriteView(src, 0, metadata.BufferView(buffer, metadata.BufferViewDescription{Size: 64})))
	require.NoError(t, backend.CopyViews([]descriptors.CopyOp{
		{SrcStore: src, SrcIndex: 0, DstStore: dst, DstIndex: 3},
	}))

	view, err := dst.(*virtual.Store).Slot(3)
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceViewKindBuffer, view.Kind)
	assert.Equal(t, "copied", view.Buffer.Name)
}

func TestBindForFrameWithForeignStream(t *testing.T) {
	backend := virtual.New()
	native, err := backend.CreateNativeSlots(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible, 1)
	require.NoError(t, err)

	// A stream the backend does not understand is simply not recorded.
	require.NoError(t, backend.BindForFrame(struct{}{}, []descriptors.NativeStore{native}))
	assert.Equal(t, uint64(1), backend.BindCount())
}
