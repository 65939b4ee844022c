package backend

import (
	"errors"

	"github.com/gogpu/ppa"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// PlatformBackend supplies the hardware collaborators of a PPA registry.
//
// Backends are registered with Register and selected by name with Get or
// InitNamed.
type PlatformBackend interface {
	// Name returns the backend identifier (e.g., "sim").
	Name() string

	// Init brings the backend up. It must be called before Platform.
	Init() error

	// Close releases all backend resources, including memory handed out
	// by AllocBuffer. The backend should not be used after Close.
	Close()

	// Platform returns the collaborators to pass to ppa.NewRegistry.
	Platform() ppa.Platform

	// AllocBuffer allocates a DMA-capable, cache-line aligned picture
	// buffer of at least size bytes.
	AllocBuffer(size int) (ppa.Mem, error)
}
