// Package ppa drives a pixel-processing accelerator: a scale-rotate-mirror
// (SRM) engine and a blending engine fed by a shared 2D-DMA.
//
// # Overview
//
// Each engine executes one operation at a time. Many clients may submit
// concurrently; the driver serializes their work per engine in strict
// submission order and hands the hardware from one transaction to the next
// directly from the completion interrupt.
//
// # Quick Start
//
//	dev := sim.New()
//	defer dev.Close()
//
//	reg, err := ppa.NewRegistry(dev.Platform())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c, err := reg.RegisterClient(ppa.ClientConfig{
//	    Operation:              ppa.OperationSRM,
//	    MaxPendingTransactions: 4,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Unregister()
//
//	err = c.ScaleRotateMirror(&ppa.SRMConfig{
//	    In:       in,
//	    Out:      out,
//	    Rotation: ppa.Rotate90,
//	    ScaleX:   2, ScaleY: 2,
//	}, ppa.TransConfig{Mode: ppa.Blocking})
//
// # Engines and clients
//
// A [Registry] creates an engine when the first client of its kind
// registers and destroys it with the last one. The peripheral clock and
// the transfer pool are held exactly while an engine exists.
//
// A [Client] owns a fixed pool of transactions sized by
// MaxPendingTransactions. A submission fails with [ErrQueueFull] when the
// pool is empty; it never waits for a slot.
//
// # Completion
//
// Blocking submissions return the result of their own transaction.
// Non-blocking submissions report through the client [Callback], which runs
// in interrupt context with the user data given at submission.
//
// # Memory
//
// Output buffers must be DMA-capable and aligned to the cache line in
// address and length. The driver writes input blocks back to memory and
// invalidates output blocks before queueing; callers must not touch those
// buffers until the operation completed.
//
// # Platforms
//
// The hardware is reached through the interfaces in [Platform]. Package sim
// provides a software model; package backend selects platforms by name.
package ppa
