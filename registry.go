package ppa

import (
	"fmt"
	"sync"
)

// Registry owns the PPA engines of one peripheral. Engines are created on
// the first client of their kind and destroyed with the last one; the
// peripheral clock and the shared transfer pool are live exactly while at
// least one engine exists.
//
// Registry is safe for concurrent use.
type Registry struct {
	plat Platform
	opts registryOptions

	mu      sync.Mutex
	engines [engineKindCount]*engine
	refs    [engineKindCount]int
	pool    TransferPool
	closed  bool
}

// NewRegistry creates a registry over the given platform.
func NewRegistry(p Platform, opts ...Option) (*Registry, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{plat: p, opts: o}, nil
}

// acquire returns the engine of the given kind, creating it and powering
// up the peripheral as needed. On failure everything set up by this call
// is rolled back.
func (r *Registry) acquire(kind EngineKind) (*engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("ppa: registry closed: %w", ErrInvalidState)
	}

	e := r.engines[kind]
	if e == nil {
		var err error
		e, err = newEngine(kind, &r.plat, &r.opts)
		if err != nil {
			return nil, err
		}
		if r.pool == nil {
			if err := r.powerUp(); err != nil {
				e.destroy()
				return nil, err
			}
		}
		e.pool = r.pool
		r.engines[kind] = e
		Logger().Info("ppa: engine created", "engine", kind)
	}
	r.refs[kind]++
	return e, nil
}

// release drops one reference to e. The last reference destroys it, and
// the last engine powers the peripheral down.
func (r *Registry) release(e *engine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engines[e.kind] != e || r.refs[e.kind] == 0 {
		panic(fmt.Sprintf("ppa: release of unknown %v engine", e.kind))
	}
	r.refs[e.kind]--
	if r.refs[e.kind] > 0 {
		return
	}
	e.destroy()
	r.engines[e.kind] = nil
	Logger().Info("ppa: engine destroyed", "engine", e.kind)

	for _, other := range r.engines {
		if other != nil {
			return
		}
	}
	r.powerDown()
}

// powerUp enables the peripheral and takes the transfer pool. r.mu is held.
func (r *Registry) powerUp() error {
	r.plat.Control.EnableBusClock(true)
	r.plat.Control.ResetRegisters()
	pool, err := r.plat.Transport.AcquirePool(r.opts.poolID)
	if err != nil {
		r.plat.Control.EnableBusClock(false)
		return fmt.Errorf("ppa: transfer pool %d: %w: %w", r.opts.poolID, ErrNoResources, err)
	}
	r.pool = pool
	Logger().Info("ppa: peripheral powered up", "pool", r.opts.poolID)
	return nil
}

// powerDown gives the pool back and gates the clock. r.mu is held.
func (r *Registry) powerDown() {
	if err := r.pool.Release(); err != nil {
		Logger().Warn("ppa: transfer pool release failed", "pool", r.opts.poolID, "err", err)
	}
	r.pool = nil
	r.plat.Control.EnableBusClock(false)
	Logger().Info("ppa: peripheral powered down")
}

// RefCount returns the number of clients holding the engine of kind.
func (r *Registry) RefCount(kind EngineKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind >= engineKindCount {
		return 0
	}
	return r.refs[kind]
}

// Active reports whether the peripheral is powered and holds a transfer
// pool.
func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pool != nil
}

// Clients returns the number of registered clients. Every client holds
// one engine reference.
func (r *Registry) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clientsLocked()
}

func (r *Registry) clientsLocked() int {
	n := 0
	for _, c := range r.refs {
		n += c
	}
	return n
}

// Close marks the registry closed. It fails with ErrBusy while clients are
// registered. Closing twice is a no-op.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := r.clientsLocked(); n > 0 {
		return fmt.Errorf("ppa: %d clients still registered: %w", n, ErrBusy)
	}
	r.closed = true
	return nil
}
