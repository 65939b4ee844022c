package ppa

import (
	"fmt"
	"sync"

	"github.com/gogpu/ppa/internal/ring"
)

// engine is one PPA hardware engine shared by all clients of its kind.
//
// The FIFO holds every queued or running transaction in submission order.
// The head is the only transaction that may be in flight. The gate is a
// one-slot channel that holds a token while the hardware is idle; whoever
// takes the token dispatches the FIFO head.
type engine struct {
	kind EngineKind
	ctrl Controller
	sync MemorySyncer
	pool TransferPool

	mu       sync.Mutex
	fifo     *ring.Ring[*transaction]
	inflight *transaction
	gate     chan struct{}

	desc  []Mem
	power PowerLock
}

// descriptorCount returns the number of descriptors an engine owns:
// SRM reads one picture and writes one, Blend reads two.
func descriptorCount(kind EngineKind) int {
	if kind == EngineBlend {
		return 3
	}
	return 2
}

// descriptorMemSize returns the size of one descriptor allocation. The
// descriptor is padded to a whole cache line so syncing it never touches
// neighbouring data.
func descriptorMemSize(descAlign, cacheLine int) (size, align int) {
	align = max(descAlign, cacheLine, 1)
	return alignUp(DescriptorSize, align), align
}

func newEngine(kind EngineKind, p *Platform, o *registryOptions) (*engine, error) {
	e := &engine{
		kind:  kind,
		ctrl:  p.Control,
		sync:  p.Sync,
		fifo:  ring.New[*transaction](0),
		gate:  make(chan struct{}, 1),
		power: o.power,
	}
	e.gate <- struct{}{}

	size, align := descriptorMemSize(o.descAlign, p.Sync.CacheLineSize())
	for range descriptorCount(kind) {
		m, err := p.Memory.Alloc(size, align)
		if err != nil {
			e.freeDescriptors()
			return nil, fmt.Errorf("ppa: %v engine descriptors: %w: %w", kind, ErrNoMemory, err)
		}
		e.desc = append(e.desc, m)
	}

	if e.power != nil {
		if err := e.power.Acquire(); err != nil {
			e.freeDescriptors()
			return nil, fmt.Errorf("ppa: %v engine power lock: %w", kind, err)
		}
	}
	return e, nil
}

// destroy frees the engine. The FIFO must be empty.
func (e *engine) destroy() {
	e.mu.Lock()
	n := e.fifo.Len()
	e.mu.Unlock()
	if n != 0 {
		panic(fmt.Sprintf("ppa: %v engine destroyed with %d queued transactions", e.kind, n))
	}
	if e.power != nil {
		if err := e.power.Release(); err != nil {
			Logger().Warn("ppa: power lock release failed", "engine", e.kind, "err", err)
		}
	}
	e.freeDescriptors()
}

func (e *engine) freeDescriptors() {
	for _, m := range e.desc {
		if err := m.Close(); err != nil {
			Logger().Warn("ppa: descriptor free failed", "engine", e.kind, "err", err)
		}
	}
	e.desc = nil
}

// reserve grows or shrinks the FIFO capacity by n so that every client's
// max pending transactions always fit.
func (e *engine) reserve(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.fifo.Resize(e.fifo.Cap() + n) {
		panic(fmt.Sprintf("ppa: %v engine FIFO cannot shrink below %d queued transactions", e.kind, e.fifo.Len()))
	}
}

// enqueue appends t to the FIFO and returns the generation stamped on
// this submission. The caller holds the client lock.
func (e *engine) enqueue(t *transaction) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.state != stateFree {
		panic(fmt.Sprintf("ppa: enqueue of a %v transaction", t.state))
	}
	if !e.fifo.Push(t) {
		panic(fmt.Sprintf("ppa: %v engine FIFO overflow", e.kind))
	}
	t.state = stateQueued
	t.gen++
	return t.gen
}

// queued returns the FIFO length.
func (e *engine) queued() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fifo.Len()
}

func (e *engine) tryTakeGate() bool {
	select {
	case <-e.gate:
		return true
	default:
		return false
	}
}

// releaseGate returns the token. The caller holds e.mu and has seen an
// empty FIFO, so no queued transaction can be left without a dispatcher.
func (e *engine) releaseGate() {
	select {
	case e.gate <- struct{}{}:
	default:
		panic(fmt.Sprintf("ppa: %v engine gate released twice", e.kind))
	}
}

// kick dispatches the FIFO head on behalf of a submitter that took the
// gate. own is the submitter's transaction and gen the generation enqueue
// returned for it. The gate goes to the dispatched transaction, or back to
// the engine once the FIFO is empty.
//
// A refused own transaction goes back to its pool and the error is
// returned; any other refused transaction completes with the error.
func (e *engine) kick(own *transaction, gen uint64) error {
	e.mu.Lock()
	switch head, _ := e.fifo.Peek(); {
	case own.gen != gen || !e.fifo.Contains(own):
		Logger().Debug("ppa: transaction finished before its submitter got the gate", "engine", e.kind)
		own = nil
	case head != own:
		Logger().Debug("ppa: dispatching earlier transaction first", "engine", e.kind, "queued", e.fifo.Len())
	}
	e.mu.Unlock()

	var ownErr error
	for {
		refused, err := e.dispatchHead()
		if refused == nil {
			return ownErr
		}
		if refused == own {
			ownErr = err
			own.client.recycle(own)
			own = nil
			continue
		}
		e.finish(refused, err)
	}
}

// advance runs in interrupt context after the in-flight transaction left
// the FIFO. It passes the gate on to the next queued transaction.
func (e *engine) advance() {
	for {
		refused, err := e.dispatchHead()
		if refused == nil {
			return
		}
		e.finish(refused, err)
	}
}

// dispatchHead hands the FIFO head to the transfer layer, or releases the
// gate when the FIFO is empty. The caller holds the gate. When the transfer
// layer refuses the head, dispatchHead takes it off the FIFO and returns
// it with the error; the gate stays with the caller.
func (e *engine) dispatchHead() (*transaction, error) {
	e.mu.Lock()
	head, ok := e.fifo.Peek()
	if !ok {
		e.releaseGate()
		e.mu.Unlock()
		return nil, nil
	}
	if e.inflight != nil || head.state != stateQueued {
		e.mu.Unlock()
		panic(fmt.Sprintf("ppa: %v engine dispatch while %v transaction in flight", e.kind, head.state))
	}
	head.state = stateDispatched
	e.inflight = head
	pool := e.pool
	e.mu.Unlock()

	err := pool.Enqueue(&head.job)
	if err == nil {
		return nil, nil
	}

	e.mu.Lock()
	e.fifo.Pop()
	e.inflight = nil
	head.state = stateCompleted
	e.mu.Unlock()

	err = fmt.Errorf("ppa: %v engine: %w: %w", e.kind, ErrTransport, err)
	Logger().Warn("ppa: transfer refused", "engine", e.kind, "client", head.client.id, "err", err)
	return head, err
}

// complete runs in interrupt context when the hardware finished t. It
// hands the gate to the next queued transaction, wakes or recycles t and
// invokes the client callback.
func (e *engine) complete(t *transaction) bool {
	e.mu.Lock()
	head, ok := e.fifo.Peek()
	if !ok || head != t || e.inflight != t {
		e.mu.Unlock()
		panic(fmt.Sprintf("ppa: %v engine completion of a transaction that is not in flight", e.kind))
	}
	e.fifo.Pop()
	e.inflight = nil
	t.state = stateCompleted
	e.mu.Unlock()

	Logger().Debug("ppa: transaction done", "engine", e.kind, "client", t.client.id)
	e.advance()
	return e.finish(t, nil)
}

// finish delivers the result of a completed transaction. A blocking
// submitter is woken and recycles t itself; a non-blocking transaction is
// recycled here. The callback sees a copy of the user data because t may
// be reused as soon as it is back in the pool.
func (e *engine) finish(t *transaction, err error) bool {
	c := t.client
	ev := &Event{Operation: c.op, Err: err}
	userData := t.userData
	if t.mode == Blocking {
		t.done <- err
	} else {
		c.recycle(t)
	}
	return c.notify(ev, userData)
}

// writeDescriptor encodes d into descriptor slot i, writes it back to
// memory and returns its bus address.
func (e *engine) writeDescriptor(i int, d *Descriptor) uint64 {
	m := e.desc[i]
	buf := m.Buf()
	d.Encode(buf)
	if err := e.sync.Sync(buf, SyncDirC2M); err != nil {
		Logger().Warn("ppa: descriptor writeback failed", "engine", e.kind, "err", err)
	}
	return m.PhysAddr()
}
