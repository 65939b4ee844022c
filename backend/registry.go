package backend

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a new, uninitialized backend instance.
type Factory func() PlatformBackend

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a backend available under name, replacing any earlier
// registration. Backends call it from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes the backend registered under name.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Get returns a new instance of the named backend, or nil if no backend
// is registered under name.
func Get(name string) PlatformBackend {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return f()
}

// InitNamed returns a new instance of the named backend, initialized.
func InitNamed(name string) (PlatformBackend, error) {
	b := Get(name)
	if b == nil {
		return nil, fmt.Errorf("backend %q: %w", name, ErrBackendNotAvailable)
	}
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("backend %q: %w", name, err)
	}
	return b, nil
}
