// Package backend provides a pluggable platform abstraction for the PPA
// driver core.
//
// A backend owns the hardware side of a ppa.Registry: the peripheral
// controller, the 2D-DMA transport, cache maintenance and DMA-capable
// memory. Currently only the simulated peripheral is available; a board
// support package registers its own backend the same way.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The sim backend is automatically registered on import:
//
//	import _ "github.com/gogpu/ppa/backend"
//
// # Backend Selection
//
// Backends are selected by name; Available lists the registered names:
//
//	b, err := backend.InitNamed("sim")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	reg, err := ppa.NewRegistry(b.Platform())
//
// Picture buffers that the engines write must come from AllocBuffer so
// they are DMA-capable and cache-line aligned.
//
// # Available Backends
//
// - "sim": software model of the peripheral (always available)
package backend
