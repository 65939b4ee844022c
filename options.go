package ppa

// Option configures a Registry during creation.
//
// Example:
//
//	reg, err := ppa.NewRegistry(dev.Platform(), ppa.WithPoolID(1))
type Option func(*registryOptions)

// registryOptions holds optional configuration for Registry creation.
type registryOptions struct {
	poolID    int
	descAlign int
	power     PowerLock
}

// defaultDescriptorAlignment is the 2D-DMA descriptor alignment.
const defaultDescriptorAlignment = 8

func defaultOptions() registryOptions {
	return registryOptions{
		poolID:    0,
		descAlign: defaultDescriptorAlignment,
	}
}

// WithPoolID selects the transfer pool the registry acquires from the
// platform Transport.
func WithPoolID(id int) Option {
	return func(o *registryOptions) {
		o.poolID = id
	}
}

// WithDescriptorAlignment overrides the descriptor alignment. Descriptor
// memory is aligned to the larger of this and the cache line size.
// Non-positive values keep the default.
func WithDescriptorAlignment(align int) Option {
	return func(o *registryOptions) {
		if align > 0 {
			o.descAlign = align
		}
	}
}

// WithPowerLock makes every engine hold l while it exists.
func WithPowerLock(l PowerLock) Option {
	return func(o *registryOptions) {
		o.power = l
	}
}
