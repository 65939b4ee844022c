package backend

import (
	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/sim"
)

// Backend name constants.
const (
	// BackendSim is the name of the software peripheral model.
	BackendSim = "sim"
)

// SimBackend runs the PPA core against a simulated peripheral.
type SimBackend struct {
	opts []sim.Option
	dev  *sim.Device
}

// init registers the sim backend on package import.
func init() {
	Register(BackendSim, func() PlatformBackend {
		return &SimBackend{}
	})
}

// NewSimBackend creates a sim backend whose device is built with opts.
func NewSimBackend(opts ...sim.Option) *SimBackend {
	return &SimBackend{opts: opts}
}

// Name returns the backend identifier.
func (b *SimBackend) Name() string {
	return BackendSim
}

// Init creates the simulated device. Calling Init twice is a no-op.
func (b *SimBackend) Init() error {
	if b.dev == nil {
		b.dev = sim.New(b.opts...)
	}
	return nil
}

// Close stops the device and unmaps its memory.
func (b *SimBackend) Close() {
	if b.dev != nil {
		b.dev.Close()
		b.dev = nil
	}
}

// Platform returns the device collaborators, or a zero Platform before
// Init.
func (b *SimBackend) Platform() ppa.Platform {
	if b.dev == nil {
		return ppa.Platform{}
	}
	return b.dev.Platform()
}

// AllocBuffer allocates a picture buffer rounded up to whole cache lines.
func (b *SimBackend) AllocBuffer(size int) (ppa.Mem, error) {
	if b.dev == nil {
		return nil, ErrNotInitialized
	}
	line := max(b.dev.Cache().CacheLineSize(), 1)
	return b.dev.AllocBuffer((size + line - 1) / line * line)
}

// Device returns the simulated device, or nil before Init.
func (b *SimBackend) Device() *sim.Device {
	return b.dev
}
