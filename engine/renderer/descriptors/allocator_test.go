package descriptors_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
	"github.com/spaghettifunk/astra/engine/renderer/virtual"
)

func TestConcurrentAllocationsYieldUniqueIndices(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 64

	config := testConfig()
	config.MaxSRVs = goroutines * perGoroutine
	config.EnableThreadSafety = true
	allocator, _ := newTestAllocator(t, config)

	var wg sync.WaitGroup
	results := make(chan uint32, goroutines*perGoroutine)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
				assert.NoError(t, err)
				results <- handle.Index()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[uint32]bool{}
	for index := range results {
		assert.False(t, seen[index], "index %d handed out twice", index)
		seen[index] = true
	}
	assert.Len(t, seen, goroutines*perGoroutine)

	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(goroutines*perGoroutine), stats.Live)
}

func TestConcurrentAllocateFreeChurn(t *testing.T) {
	const goroutines = 4
	const rounds = 200

	config := testConfig()
	config.MaxSRVs = 64
	config.EnableThreadSafety = true
	config.EnableDynamicGrowth = false
	allocator, _ := newTestAllocator(t, config)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				handle, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
				if err != nil {
					// Contention can legitimately exhaust the small
					// store; only capacity errors are acceptable.
					assert.ErrorIs(t, err, core.ErrOutOfDescriptors)
					continue
				}
				handle.Release()
			}
		}()
	}
	wg.Wait()

	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), stats.Live)
	assert.Equal(t, stats.Capacity, stats.Live+stats.FreeListed+stats.Unused)
}

func TestCopyToShaderVisibleImmediate(t *testing.T) {
	config := testConfig()
	config.EnableBatchedUpdates = false
	allocator, _ := newTestAllocator(t, config)

	staged, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
	require.NoError(t, err)
	visible, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	texture := &metadata.Texture{Name: "staged_tex", Width: 512}
	require.NoError(t, allocator.WriteView(staged, metadata.TextureView(texture, metadata.TextureViewDescription{})))
	require.NoError(t, allocator.CopyToShaderVisible(staged, visible))

	store := shaderVisibleStore(t, allocator, descriptors.ResourceViewTypeSRV)
	view, err := store.Slot(visible.Index())
	require.NoError(t, err)
	require.NotNil(t, view.Texture)
	assert.Equal(t, uint32(512), view.Texture.Width)
}

func TestBatchedCopiesAreDeferredUntilBatchEnd(t *testing.T) {
	config := testConfig()
	config.EnableBatchedUpdates = true
	allocator, _ := newTestAllocator(t, config)

	staged, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
	require.NoError(t, err)
	visible, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	texture := &metadata.Texture{Name: "batched_tex", Width: 256}
	require.NoError(t, allocator.WriteView(staged, metadata.TextureView(texture, metadata.TextureViewDescription{})))

	require.NoError(t, allocator.BatchBegin(descriptors.ResourceViewTypeSRV))
	require.NoError(t, allocator.CopyToShaderVisible(staged, visible))

	// The copy is queued, not executed.
	store := shaderVisibleStore(t, allocator, descriptors.ResourceViewTypeSRV)
	view, err := store.Slot(visible.Index())
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceViewKindNone, view.Kind)

	require.NoError(t, allocator.BatchEnd(descriptors.ResourceViewTypeSRV))
	view, err = store.Slot(visible.Index())
	require.NoError(t, err)
	require.NotNil(t, view.Texture)
	assert.Equal(t, uint32(256), view.Texture.Width)

	metrics := allocator.Metrics()
	assert.Equal(t, uint64(1), metrics.CopiesQueued)
	assert.Equal(t, uint64(1), metrics.CopiesFlushed)
	assert.Equal(t, uint64(1), metrics.BatchFlushes)
}

func TestDeferredCopyReadsThePostGrowthSource(t *testing.T) {
	config := testConfig()
	config.MaxSRVs = 2
	config.EnableDynamicGrowth = true
	config.GrowthFactor = 2.0
	config.MaxGrowthIterations = 2
	config.EnableBatchedUpdates = true
	allocator, _ := newTestAllocator(t, config)

	staged, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
	require.NoError(t, err)
	visible, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	stale := &metadata.Texture{Name: "grown_tex", Width: 111}
	require.NoError(t, allocator.WriteView(staged, metadata.TextureView(stale, metadata.TextureViewDescription{})))

	require.NoError(t, allocator.BatchBegin(descriptors.ResourceViewTypeSRV))
	require.NoError(t, allocator.CopyToShaderVisible(staged, visible))

	// Exhaust the CpuOnly tail so the next staged allocation grows the
	// source store while the copy is still queued.
	for i := 0; i < 2; i++ {
		_, err = allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
		require.NoError(t, err)
	}
	stats, err := allocator.Stats(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
	require.NoError(t, err)
	require.Equal(t, uint32(1), stats.Growths)

	// Re-stage into the same slot after the growth. The flush must read
	// the source's current native, not the one captured at enqueue time.
	current := &metadata.Texture{Name: "grown_tex", Width: 222}
	require.NoError(t, allocator.WriteView(staged, metadata.TextureView(current, metadata.TextureViewDescription{})))

	require.NoError(t, allocator.BatchEnd(descriptors.ResourceViewTypeSRV))

	store := shaderVisibleStore(t, allocator, descriptors.ResourceViewTypeSRV)
	view, err := store.Slot(visible.Index())
	require.NoError(t, err)
	require.NotNil(t, view.Texture)
	assert.Equal(t, uint32(222), view.Texture.Width)
}

func TestBatchWindowIsNotReentrant(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	require.NoError(t, allocator.BatchBegin(descriptors.ResourceViewTypeSRV))
	err := allocator.BatchBegin(descriptors.ResourceViewTypeSRV)
	require.ErrorIs(t, err, core.ErrBatchOpen)

	// Windows on other view types are independent.
	require.NoError(t, allocator.BatchBegin(descriptors.ResourceViewTypeCBV))
	require.NoError(t, allocator.BatchEnd(descriptors.ResourceViewTypeCBV))

	require.NoError(t, allocator.BatchEnd(descriptors.ResourceViewTypeSRV))
	err = allocator.BatchEnd(descriptors.ResourceViewTypeSRV)
	require.ErrorIs(t, err, core.ErrNoBatch)
}

func TestCopyAcrossViewTypesIsRejected(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	staged, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
	require.NoError(t, err)
	visible, err := allocator.Allocate(descriptors.ResourceViewTypeCBV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	err = allocator.CopyToShaderVisible(staged, visible)
	require.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestCopyRequiresCpuToShaderDirection(t *testing.T) {
	allocator, _ := newTestAllocator(t, testConfig())

	a, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)
	b, err := allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
	require.NoError(t, err)

	err = allocator.CopyToShaderVisible(a, b)
	require.ErrorIs(t, err, core.ErrTypeMismatch)
}

func TestPrepareForRenderingBindsOncePerFrame(t *testing.T) {
	allocator, backend := newTestAllocator(t, testConfig())

	recorder := virtual.NewCommandRecorder()
	require.NoError(t, allocator.PrepareForRendering(recorder))
	require.NoError(t, allocator.PrepareForRendering(recorder))

	assert.Equal(t, 2, recorder.BindCount())
	assert.Equal(t, uint64(2), backend.BindCount())

	// One bind covers every shader-visible store: SRV, UAV, CBV and
	// Sampler. RTV/DSV are host tiers and never bound.
	assert.Len(t, recorder.LastBind(), 4)
}

func TestFullBatchForcesEarlyFlush(t *testing.T) {
	config := testConfig()
	config.MaxUpdatesPerBatch = 2
	config.MaxSRVs = 16
	allocator, _ := newTestAllocator(t, config)

	staged := make([]*descriptors.DescriptorHandle, 3)
	visible := make([]*descriptors.DescriptorHandle, 3)
	texture := &metadata.Texture{Name: "flush_tex", Width: 64}
	for i := range staged {
		var err error
		staged[i], err = allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityCpuOnly)
		require.NoError(t, err)
		visible[i], err = allocator.Allocate(descriptors.ResourceViewTypeSRV, descriptors.DescriptorVisibilityShaderVisible)
		require.NoError(t, err)
		require.NoError(t, allocator.WriteView(staged[i], metadata.TextureView(texture, metadata.TextureViewDescription{})))
	}

	require.NoError(t, allocator.BatchBegin(descriptors.ResourceViewTypeSRV))
	for i := range staged {
		require.NoError(t, allocator.CopyToShaderVisible(staged[i], visible[i]))
	}
	// Queue capacity is 2, so the 3rd deferred copy flushed the first
	// two early.
	metrics := allocator.Metrics()
	assert.Equal(t, uint64(2), metrics.CopiesFlushed)

	require.NoError(t, allocator.BatchEnd(descriptors.ResourceViewTypeSRV))
	metrics = allocator.Metrics()
	assert.Equal(t, uint64(3), metrics.CopiesFlushed)
}
