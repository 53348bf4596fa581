package core

import (
	"errors"
)

var (
	// ErrOutOfDescriptors is returned when a descriptor store has no free
	// slot left and growth is disabled or its budget is spent. Recoverable:
	// the caller can free unused descriptors or reconfigure capacities.
	ErrOutOfDescriptors = errors.New("out of descriptors")
	// ErrInvalidHandle marks an operation on an unallocated or already
	// released handle. A programmer error: asserted when validation is on,
	// a safe no-op otherwise.
	ErrInvalidHandle = errors.New("invalid descriptor handle")
	// ErrGrowthFailed means the platform rejected a larger native
	// allocation. Fatal only to the triggering call.
	ErrGrowthFailed = errors.New("descriptor store growth failed")
	// ErrTypeMismatch marks a free or copy against the wrong store.
	ErrTypeMismatch = errors.New("descriptor type mismatch")
	// ErrBatchOpen is returned when an operation cannot run while a batch
	// window is open (growth, nested BatchBegin).
	ErrBatchOpen = errors.New("batch window already open")
	// ErrNoBatch is returned by BatchEnd without a matching BatchBegin.
	ErrNoBatch = errors.New("no batch window open")
)
