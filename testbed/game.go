/*
A headless demo that exercises the bindless descriptor core: it registers
textures, buffers and samplers, embeds their indices, and hot-swaps a
texture in place to show that the index a shader would hold stays stable.
*/
package testbed

import (
	"fmt"

	"github.com/spaghettifunk/astra/engine"
	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer/metadata"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	frame uint64

	albedo    *metadata.Texture
	streamed  *metadata.Texture
	material  *metadata.Buffer
	trilinear *metadata.SamplerState

	// The indices a renderer would embed in shader constants.
	albedoIndex   uint32
	materialIndex uint32
	samplerIndex  uint32
}

func NewTestGame() (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				Name:               "Astra Bindless Demo",
				LogLevel:           "debug",
				Backend:            "virtual",
				MaxRegistryEntries: 256,
			},
			State: &gameState{},
		},
	}
	tg.ApplicationConfig.Descriptors.MaxSRVs = 128
	tg.ApplicationConfig.Descriptors.MaxCBVs = 32
	tg.ApplicationConfig.Descriptors.MaxSamplers = 8
	tg.ApplicationConfig.Descriptors.EnableValidation = true

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (tg *TestGame) Initialize() error {
	state := tg.State.(*gameState)

	state.albedo = &metadata.Texture{Name: "bricks_albedo", Width: 1024, Height: 1024, MipLevels: 10}
	state.streamed = &metadata.Texture{Name: "bricks_albedo", Width: 2048, Height: 2048, MipLevels: 11, Generation: 1}
	state.material = &metadata.Buffer{Name: "material_constants", TotalSize: 4096}
	state.trilinear = &metadata.SamplerState{
		Name:      "trilinear_repeat",
		MinFilter: metadata.FilterModeLinear,
		MagFilter: metadata.FilterModeLinear,
		AddressU:  metadata.AddressModeRepeat,
		AddressV:  metadata.AddressModeRepeat,
		AddressW:  metadata.AddressModeRepeat,
	}

	albedoHandle, err := tg.Registry.RegisterTextureSRV(state.albedo, metadata.TextureViewDescription{
		Format:    metadata.ViewFormatR8G8B8A8Unorm,
		Dimension: metadata.ViewDimensionTexture2d,
		MipCount:  metadata.InvalidID,
	})
	if err != nil {
		return err
	}
	materialHandle, err := tg.Registry.RegisterBufferCBV(state.material, metadata.BufferViewDescription{Size: 4096})
	if err != nil {
		return err
	}
	samplerHandle, err := tg.Registry.RegisterSampler(state.trilinear)
	if err != nil {
		return err
	}

	state.albedoIndex = albedoHandle.Index()
	state.materialIndex = materialHandle.Index()
	state.samplerIndex = samplerHandle.Index()

	core.LogInfo("shader constants would hold: albedo=%d material=%d sampler=%d",
		state.albedoIndex, state.materialIndex, state.samplerIndex)
	return nil
}

func (tg *TestGame) Update(deltaTime float64) error {
	state := tg.State.(*gameState)
	state.frame++

	// Simulate a streaming upgrade: a higher-resolution mip chain
	// replaces the texture behind the same slot.
	if state.frame == 120 {
		handle := tg.Registry.FindTextureByName("bricks_albedo")
		if !handle.IsValid() {
			return fmt.Errorf("bricks_albedo is not registered")
		}
		if err := tg.Registry.UpdateTexture(handle, state.streamed); err != nil {
			return err
		}
		if handle.Index() != state.albedoIndex {
			return fmt.Errorf("streaming swap moved the descriptor index from %d to %d", state.albedoIndex, handle.Index())
		}
		core.LogInfo("streamed 2k mips into 'bricks_albedo'; index %d unchanged", handle.Index())
	}

	if state.frame%600 == 0 {
		m := tg.Allocator.Metrics()
		core.LogDebug("allocator: live=%d allocations=%d frees=%d growths=%d", m.Live(), m.Allocations, m.Frees, m.Growths)
	}
	return nil
}

func (tg *TestGame) Shutdown() error {
	core.LogInfo("demo shutting down")
	return nil
}
