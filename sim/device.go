// Package sim is a software model of the PPA peripheral: its register
// files, the 2D-DMA controller, the data cache and DMA-capable memory.
//
// Engines execute for real on the pixels in mapped memory. Completion
// interrupts are delivered from a single goroutine, either as soon as an
// operation finished (the default) or one at a time through
// Device.Complete when created with WithManualCompletion.
//
// YUV pictures are handled as luma only: YUV444 and YUV422 inputs are read
// as gray, YUV444 outputs are written with neutral chroma, and YUV420
// blocks are neither read nor written.
package sim

import (
	"sync"

	"github.com/gogpu/ppa"
	"github.com/gogpu/ppa/internal/worker"
)

// Defaults of the modeled peripheral.
const (
	DefaultCacheLine  = 64
	DefaultTxChannels = 3
	DefaultRxChannels = 2
)

// Option configures a Device.
type Option func(*config)

type config struct {
	line   int
	tx, rx int
	manual bool
}

// WithCacheLine sets the cache line size. Zero models uncached memory.
func WithCacheLine(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.line = n
		}
	}
}

// WithChannels sets the number of TX and RX 2D-DMA channels.
func WithChannels(tx, rx int) Option {
	return func(c *config) {
		if tx > 0 && rx > 0 {
			c.tx, c.rx = tx, rx
		}
	}
}

// WithManualCompletion holds finished operations until Device.Complete.
func WithManualCompletion() Option {
	return func(c *config) {
		c.manual = true
	}
}

// EngineStats counts engine starts and completions.
type EngineStats struct {
	Started   int
	Completed int

	// InFlight is the number of started, unfinished operations.
	InFlight int

	// MaxInFlight is the highest InFlight seen.
	MaxInFlight int
}

// TransferStats counts transfer-layer activity.
type TransferStats struct {
	Enqueued int
	Refused  int
	Pending  int
}

// Device is one simulated PPA with its DMA and memory.
type Device struct {
	cfg   config
	mem   *Memory
	cache *Cache
	dma   *DMA
	ctrl  *controller
	irq   *worker.Serial

	mu      sync.Mutex
	engines [2]EngineStats
	held    []*op
	closed  bool
}

// New creates a device.
func New(opts ...Option) *Device {
	cfg := config{line: DefaultCacheLine, tx: DefaultTxChannels, rx: DefaultRxChannels}
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &Device{cfg: cfg, irq: worker.NewSerial(0)}
	d.mem = newMemory()
	d.cache = &Cache{line: cfg.line, mem: d.mem}
	d.dma = newDMA(d, cfg.tx, cfg.rx)
	d.ctrl = newController(d)
	return d
}

// Platform returns the collaborators the driver core needs.
func (d *Device) Platform() ppa.Platform {
	return ppa.Platform{
		Control:   d.ctrl,
		Transport: d.dma,
		Sync:      d.cache,
		Memory:    d.mem,
	}
}

// Memory returns the DMA-capable memory.
func (d *Device) Memory() *Memory { return d.mem }

// Cache returns the cache model.
func (d *Device) Cache() *Cache { return d.cache }

// DMA returns the 2D-DMA controller.
func (d *Device) DMA() *DMA { return d.dma }

// AllocBuffer allocates a cache-line aligned picture buffer.
func (d *Device) AllocBuffer(size int) (ppa.Mem, error) {
	return d.mem.Alloc(size, max(d.cfg.line, 1))
}

// ClockEnabled reports whether the peripheral bus clock is on.
func (d *Device) ClockEnabled() bool { return d.ctrl.clock() }

// RegisterResets returns how often the whole register file was reset.
func (d *Device) RegisterResets() int {
	d.ctrl.mu.Lock()
	defer d.ctrl.mu.Unlock()
	return d.ctrl.resets
}

// EngineStats returns the counters of one engine.
func (d *Device) EngineStats(kind ppa.EngineKind) EngineStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engines[kind]
}

// TransferStats returns the transfer-layer counters.
func (d *Device) TransferStats() TransferStats {
	e, r, p := d.dma.stats()
	return TransferStats{Enqueued: e, Refused: r, Pending: p}
}

// FailNextEnqueue makes the next n transfer enqueues fail.
func (d *Device) FailNextEnqueue(n int) { d.dma.failNext(n) }

// Held returns the number of finished operations waiting for Complete.
func (d *Device) Held() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.held)
}

// Complete delivers the completion interrupt of the oldest held operation
// and waits for the handler to return. It reports false when nothing was
// held.
func (d *Device) Complete() bool {
	d.mu.Lock()
	if len(d.held) == 0 {
		d.mu.Unlock()
		return false
	}
	o := d.held[0]
	d.held = d.held[1:]
	d.mu.Unlock()

	done := make(chan struct{})
	if !d.irq.Submit(func() {
		defer close(done)
		d.finish(o)
	}) {
		return false
	}
	<-done
	return true
}

// Close stops interrupt delivery and unmaps all memory. Held operations
// are dropped.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.held = nil
	d.mu.Unlock()

	d.irq.Close()
	d.mem.close()
}

// op is one started engine operation.
type op struct {
	kind  ppa.EngineKind
	srm   SRMState
	blend BlendState
	mode  ppa.BlendMode
	tx    []snapshot
	rx    snapshot
	res   *reservation
}

func (d *Device) startSRM(s SRMState) {
	if !d.ctrl.clock() {
		panic("sim: SRM engine started with the bus clock gated")
	}
	tx, _, okTx := d.dma.connected(ppa.TriggerSRMTX)
	rx, res, okRx := d.dma.connected(ppa.TriggerSRMRX)
	if !okTx || !okRx {
		panic("sim: SRM engine started without started channels")
	}
	d.launch(&op{kind: ppa.EngineSRM, srm: s, tx: []snapshot{tx}, rx: rx, res: res})
}

func (d *Device) startBlend(s BlendState, mode ppa.BlendMode) {
	if !d.ctrl.clock() {
		panic("sim: blend engine started with the bus clock gated")
	}
	rx, res, ok := d.dma.connected(ppa.TriggerBlendRX)
	if !ok {
		panic("sim: blend engine started without an RX channel")
	}
	o := &op{kind: ppa.EngineBlend, blend: s, mode: mode, rx: rx, res: res}
	if mode == ppa.BlendModeBlend {
		bg, _, okBg := d.dma.connected(ppa.TriggerBlendBgTX)
		fg, _, okFg := d.dma.connected(ppa.TriggerBlendFgTX)
		if !okBg || !okFg {
			panic("sim: blend engine started without both TX channels")
		}
		o.tx = []snapshot{bg, fg}
	}
	d.launch(o)
}

func (d *Device) launch(o *op) {
	d.mu.Lock()
	st := &d.engines[o.kind]
	st.Started++
	st.InFlight++
	st.MaxInFlight = max(st.MaxInFlight, st.InFlight)
	manual := d.cfg.manual
	if manual {
		d.held = append(d.held, o)
	}
	d.mu.Unlock()

	if manual {
		return
	}
	if !d.irq.Submit(func() { d.finish(o) }) {
		ppa.Logger().Warn("sim: operation dropped, device closed", "engine", o.kind)
	}
}

// finish runs in interrupt context: it executes the operation, raises the
// RX EOF interrupt and frees the channels.
func (d *Device) finish(o *op) {
	if err := d.execute(o); err != nil {
		ppa.Logger().Error("sim: operation failed", "engine", o.kind, "err", err)
	}

	d.mu.Lock()
	st := &d.engines[o.kind]
	st.InFlight--
	st.Completed++
	d.mu.Unlock()

	d.dma.stop(o.res)
	if o.rx.eof != nil {
		o.rx.eof(o.rx.ch)
	}
	d.dma.release(o.res)
}
