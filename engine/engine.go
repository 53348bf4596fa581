package engine

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/astra/engine/core"
	"github.com/spaghettifunk/astra/engine/renderer"
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/renderer/virtual"
	"github.com/spaghettifunk/astra/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine completed construction and is ready to be initialized
	EngineStageCreated
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    bool

	allocator *descriptors.DescriptorAllocator
	registry  *systems.RegistrySystem
	// The frame stream handed to PrepareForRendering. On the virtual
	// backend this is a command recorder; on Vulkan the application
	// supplies its own command buffer per frame instead.
	recorder *virtual.CommandRecorder

	clock    *core.Clock
	lastTime time.Duration
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("func engine.New - a game with an application config is required")
	}
	config := g.ApplicationConfig
	core.SetLogLevel(config.logLevel())

	backendType, err := config.backendType()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	if backendType == renderer.BackendTypeVulkan {
		// Device and pipeline layout wiring belongs to the rendering
		// application; the headless engine only drives the virtual
		// backend.
		return nil, fmt.Errorf("func engine.New - the vulkan backend needs a device; construct the allocator through renderer.NewDescriptorAllocator instead")
	}

	allocator, err := renderer.NewDescriptorAllocator(&config.Descriptors, backendType, nil)
	if err != nil {
		return nil, err
	}

	registry, err := systems.NewRegistrySystem(&systems.RegistrySystemConfig{
		MaxEntryCount: config.MaxRegistryEntries,
	}, allocator)
	if err != nil {
		allocator.Shutdown()
		return nil, err
	}

	g.Registry = registry
	g.Allocator = allocator

	return &Engine{
		currentStage: EngineStageCreated,
		gameInstance: g,
		allocator:    allocator,
		registry:     registry,
		recorder:     virtual.NewCommandRecorder(),
		clock:        core.NewClock(),
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// Run drives the frame loop: update the game, then bind the descriptor
// state exactly once for the frame.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning {
		e.clock.Update()
		now := e.clock.Elapsed()
		delta := (now - e.lastTime).Seconds()
		e.lastTime = now

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("func Engine.Run - update failed: %s", err.Error())
				e.isRunning = false
				break
			}
		}

		if err := e.registry.PrepareForRendering(e.recorder); err != nil {
			core.LogError("func Engine.Run - frame bind failed: %s", err.Error())
			e.isRunning = false
			break
		}

		time.Sleep(16 * time.Millisecond)
	}
	return e.shutdownSystems()
}

// Shutdown requests the frame loop to stop. Safe from another goroutine.
func (e *Engine) Shutdown() error {
	e.isRunning = false
	return nil
}

func (e *Engine) shutdownSystems() error {
	e.currentStage = EngineStageShuttingDown
	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	e.registry.Shutdown()
	e.allocator.Shutdown()
	core.LogInfo("engine stopped after %d recorded frame binds", e.recorder.BindCount())
	return nil
}
