package ppa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFake = errors.New("fake failure")

type fakeControl struct {
	clock  bool
	resets int
}

func (c *fakeControl) EnableBusClock(on bool) { c.clock = on }
func (c *fakeControl) ResetRegisters()        { c.resets++ }
func (c *fakeControl) SRM() SRMRegs           { return nil }
func (c *fakeControl) Blend() BlendRegs       { return nil }

type fakePool struct{ t *fakeTransport }

func (p fakePool) Enqueue(*TransferJob) error { return errFake }
func (p fakePool) Release() error             { p.t.pools--; return nil }

type fakeTransport struct {
	fail  bool
	pools int
}

func (t *fakeTransport) AcquirePool(int) (TransferPool, error) {
	if t.fail {
		return nil, errFake
	}
	t.pools++
	return fakePool{t}, nil
}

type fakeSync struct{ line int }

func (s fakeSync) CacheLineSize() int           { return s.line }
func (s fakeSync) Sync([]byte, SyncFlags) error { return nil }

type fakeMem struct {
	a   *fakeAlloc
	buf []byte
}

func (m *fakeMem) Buf() []byte      { return m.buf }
func (m *fakeMem) PhysAddr() uint64 { return 0x1000 }
func (m *fakeMem) Close() error     { m.a.live--; return nil }

// fakeAlloc fails every allocation after the first budget ones.
type fakeAlloc struct {
	budget int
	live   int
	sizes  []int
}

func (a *fakeAlloc) Alloc(size, align int) (Mem, error) {
	if a.budget == 0 {
		return nil, errFake
	}
	a.budget--
	a.live++
	a.sizes = append(a.sizes, size)
	return &fakeMem{a: a, buf: make([]byte, size)}, nil
}

func (a *fakeAlloc) IsDMACapable([]byte) bool       { return true }
func (a *fakeAlloc) PhysAddr([]byte) (uint64, bool) { return 0x2000, true }

type fakePlatform struct {
	ctrl  fakeControl
	trans fakeTransport
	alloc fakeAlloc
}

func newFakePlatform(budget int) *fakePlatform {
	return &fakePlatform{alloc: fakeAlloc{budget: budget}}
}

func (f *fakePlatform) platform() Platform {
	return Platform{Control: &f.ctrl, Transport: &f.trans, Sync: fakeSync{line: 64}, Memory: &f.alloc}
}

func TestNewRegistryRejectsIncompletePlatform(t *testing.T) {
	f := newFakePlatform(0)
	p := f.platform()
	p.Memory = nil
	_, err := NewRegistry(p)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistryDescriptorSize(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform(), WithDescriptorAlignment(128))
	require.NoError(t, err)

	c, err := r.RegisterClient(ClientConfig{Operation: OperationBlend})
	require.NoError(t, err)
	assert.Equal(t, []int{128, 128, 128}, f.alloc.sizes)
	require.NoError(t, c.Unregister())
	assert.Zero(t, f.alloc.live)
}

func TestRegistryAllocFailureRollsBack(t *testing.T) {
	f := newFakePlatform(1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)

	_, err = r.RegisterClient(ClientConfig{Operation: OperationSRM})
	assert.ErrorIs(t, err, ErrNoMemory)
	assert.ErrorIs(t, err, ErrNoResources)
	assert.Zero(t, f.alloc.live, "partial descriptors freed")
	assert.Zero(t, r.RefCount(EngineSRM))
	assert.False(t, r.Active())
	assert.False(t, f.ctrl.clock)
}

func TestRegistryPoolFailureRollsBack(t *testing.T) {
	f := newFakePlatform(-1)
	f.trans.fail = true
	lock := &countingLock{}
	r, err := NewRegistry(f.platform(), WithPowerLock(lock))
	require.NoError(t, err)

	_, err = r.RegisterClient(ClientConfig{Operation: OperationFill})
	assert.ErrorIs(t, err, ErrNoResources)
	assert.Zero(t, f.alloc.live)
	assert.False(t, f.ctrl.clock)
	assert.Equal(t, lock.acquired, lock.released)
	assert.Zero(t, r.Clients())

	f.trans.fail = false
	c, err := r.RegisterClient(ClientConfig{Operation: OperationFill})
	require.NoError(t, err)
	assert.True(t, f.ctrl.clock)
	assert.Equal(t, 1, f.trans.pools)
	assert.Equal(t, 1, lock.acquired-lock.released)

	require.NoError(t, c.Unregister())
	assert.Zero(t, f.trans.pools)
	assert.Equal(t, lock.acquired, lock.released)
}

func TestRegisterClientRejectsUnknownOperation(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)
	_, err = r.RegisterClient(ClientConfig{Operation: Operation(9)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, r.Active())
}

func TestRegisterClientMinimumPending(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)

	c, err := r.RegisterClient(ClientConfig{Operation: OperationSRM})
	require.NoError(t, err)
	assert.Equal(t, ClientStats{MaxPending: 1, Free: 1}, c.Stats())
	assert.Equal(t, 1, c.eng.fifo.Cap())

	d, err := r.RegisterClient(ClientConfig{Operation: OperationSRM, MaxPendingTransactions: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, c.eng.fifo.Cap())
	assert.NotEqual(t, c.ID(), d.ID())

	require.NoError(t, d.Unregister())
	assert.Equal(t, 1, c.eng.fifo.Cap())
	require.NoError(t, c.Unregister())
}

func TestReleaseUnknownEnginePanics(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)
	assert.Panics(t, func() { r.release(&engine{kind: EngineSRM}) })
}

func TestKickRefusedOwnTransaction(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)
	c, err := r.RegisterClient(ClientConfig{Operation: OperationSRM, MaxPendingTransactions: 2})
	require.NoError(t, err)

	tr, err := c.takeTransaction()
	require.NoError(t, err)
	err = c.run(tr, TransConfig{Mode: NonBlocking})
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, ClientStats{MaxPending: 2, Free: 2}, c.Stats())
	assert.Zero(t, c.eng.queued())
	assert.True(t, c.eng.tryTakeGate(), "gate released")
	c.eng.releaseGate()
}

func TestKickStaleGeneration(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)
	var events []*Event
	c, err := r.RegisterClient(ClientConfig{
		Operation:              OperationSRM,
		MaxPendingTransactions: 1,
		Callback: func(_ *Client, ev *Event, _ any) bool {
			events = append(events, ev)
			return false
		},
	})
	require.NoError(t, err)
	e := c.eng

	tr, err := c.takeTransaction()
	require.NoError(t, err)
	tr.mode = NonBlocking
	stale := e.enqueue(tr)

	// The first submission runs to completion and is recycled before its
	// submitter gets the gate; a second submission reuses the slot.
	e.mu.Lock()
	e.fifo.Pop()
	e.mu.Unlock()
	c.recycle(tr)
	again, err := c.takeTransaction()
	require.NoError(t, err)
	require.Same(t, tr, again)
	again.mode = NonBlocking
	e.enqueue(again)

	require.True(t, e.tryTakeGate())
	assert.NoError(t, e.kick(tr, stale), "refusal belongs to the second submission")
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrTransport)
	assert.Equal(t, ClientStats{MaxPending: 1, Free: 1}, c.Stats())
	assert.True(t, e.tryTakeGate(), "gate released")
	e.releaseGate()
}

func TestEngineDestroyWithQueuedPanics(t *testing.T) {
	f := newFakePlatform(-1)
	r, err := NewRegistry(f.platform())
	require.NoError(t, err)
	c, err := r.RegisterClient(ClientConfig{Operation: OperationFill})
	require.NoError(t, err)

	tr, err := c.takeTransaction()
	require.NoError(t, err)
	c.eng.enqueue(tr)
	assert.Panics(t, c.eng.destroy)
	assert.Equal(t, 1, r.RefCount(EngineBlend), "engine still registered")
}

func TestErrorTaxonomy(t *testing.T) {
	assert.ErrorIs(t, ErrQueueFull, ErrNoResources)
	assert.ErrorIs(t, ErrNoMemory, ErrNoResources)
	assert.NotErrorIs(t, ErrQueueFull, ErrNoMemory)
	assert.NotErrorIs(t, ErrBusy, ErrNoResources)
	assert.Equal(t, "ppa: exceeded max pending transactions", ErrQueueFull.Error())
}
