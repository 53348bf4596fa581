package engine

import (
	"github.com/spaghettifunk/astra/engine/renderer/descriptors"
	"github.com/spaghettifunk/astra/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Populated by engine.New before FnInitialize runs.
	Registry     *systems.RegistrySystem
	Allocator    *descriptors.DescriptorAllocator
	State        interface{}
	FnInitialize Initialize
	FnUpdate     Update
	FnShutdown   Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Shutdown func() error
