package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/ppa"
)

// ErrRefused is returned by Enqueue after Device.FailNextEnqueue.
var ErrRefused = errors.New("sim: enqueue refused")

// DMA models the 2D-DMA controller: a set of TX and RX channels and a
// queue of jobs waiting for channels.
type DMA struct {
	dev *Device

	mu       sync.Mutex
	chans    []*channel
	pending  []*ppa.TransferJob
	pools    map[int]int
	refuse   int
	enqueued int
	refused  int
}

func newDMA(dev *Device, tx, rx int) *DMA {
	d := &DMA{dev: dev, pools: make(map[int]int)}
	for i := range tx + rx {
		dir := ppa.DirTX
		if i >= tx {
			dir = ppa.DirRX
		}
		d.chans = append(d.chans, &channel{dma: d, idx: i, dir: dir})
	}
	return d
}

// AcquirePool returns the pool with the given id. Pools are shared; each
// acquisition must be matched by a Release.
func (d *DMA) AcquirePool(id int) (ppa.TransferPool, error) {
	if id < 0 {
		return nil, fmt.Errorf("sim: pool id %d", id)
	}
	d.mu.Lock()
	d.pools[id]++
	d.mu.Unlock()
	return &pool{dma: d, id: id}, nil
}

// PoolRefs returns the outstanding acquisitions of pool id.
func (d *DMA) PoolRefs(id int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pools[id]
}

type pool struct {
	dma *DMA
	id  int

	mu       sync.Mutex
	released bool
}

func (p *pool) Enqueue(job *ppa.TransferJob) error {
	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if released {
		return fmt.Errorf("sim: pool %d released", p.id)
	}
	return p.dma.enqueue(job)
}

func (p *pool) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return fmt.Errorf("sim: pool %d released twice", p.id)
	}
	p.released = true
	d := p.dma
	d.mu.Lock()
	d.pools[p.id]--
	if d.pools[p.id] == 0 {
		delete(d.pools, p.id)
	}
	d.mu.Unlock()
	return nil
}

// reservation is the set of channels picked for one job.
type reservation struct {
	job   *ppa.TransferJob
	chans []*channel
}

func (d *DMA) enqueue(job *ppa.TransferJob) error {
	d.mu.Lock()
	if d.refuse > 0 {
		d.refuse--
		d.refused++
		d.mu.Unlock()
		return ErrRefused
	}
	tx, rx := d.countLocked()
	if job.TxChannels > tx || job.RxChannels > rx || job.TxChannels+job.RxChannels == 0 {
		d.mu.Unlock()
		return fmt.Errorf("sim: job wants %d tx and %d rx channels, have %d and %d",
			job.TxChannels, job.RxChannels, tx, rx)
	}
	d.enqueued++
	d.pending = append(d.pending, job)
	picked := d.pickLocked()
	d.mu.Unlock()

	d.start(picked)
	return nil
}

func (d *DMA) countLocked() (tx, rx int) {
	for _, ch := range d.chans {
		if ch.dir == ppa.DirTX {
			tx++
		} else {
			rx++
		}
	}
	return tx, rx
}

// pickLocked reserves channels for every pending job that fits, in queue
// order.
func (d *DMA) pickLocked() []*reservation {
	var picked []*reservation
	kept := d.pending[:0]
	for _, job := range d.pending {
		res := d.reserveLocked(job)
		if res == nil {
			kept = append(kept, job)
			continue
		}
		picked = append(picked, res)
	}
	clear(d.pending[len(kept):])
	d.pending = kept
	return picked
}

func (d *DMA) reserveLocked(job *ppa.TransferJob) *reservation {
	var tx, rx []*channel
	for _, ch := range d.chans {
		if ch.res != nil {
			continue
		}
		if ch.dir == ppa.DirTX && len(tx) < job.TxChannels {
			tx = append(tx, ch)
		} else if ch.dir == ppa.DirRX && len(rx) < job.RxChannels {
			rx = append(rx, ch)
		}
	}
	if len(tx) < job.TxChannels || len(rx) < job.RxChannels {
		return nil
	}
	res := &reservation{job: job, chans: append(tx, rx...)}
	for _, ch := range res.chans {
		ch.reset()
		ch.res = res
	}
	return res
}

// start hands reserved channels to their jobs. Called without d.mu.
func (d *DMA) start(picked []*reservation) {
	for _, res := range picked {
		chans := make([]ppa.Channel, len(res.chans))
		for i, ch := range res.chans {
			chans[i] = ch
		}
		res.job.OnPicked(chans)
	}
}

// stop marks the channels of res idle once their transfer finished, so a
// following engine start cannot pick them up again.
func (d *DMA) stop(res *reservation) {
	d.mu.Lock()
	for _, ch := range res.chans {
		ch.started = false
	}
	d.mu.Unlock()
}

// release frees the channels of res and starts pending jobs that now fit.
func (d *DMA) release(res *reservation) {
	d.mu.Lock()
	for _, ch := range res.chans {
		if ch.res != res {
			d.mu.Unlock()
			panic("sim: channel released by a job that does not own it")
		}
		ch.res = nil
	}
	picked := d.pickLocked()
	d.mu.Unlock()

	d.start(picked)
}

// connected returns the configuration and reservation of the started
// channel bound to trigger t.
func (d *DMA) connected(t ppa.Trigger) (snapshot, *reservation, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.chans {
		if ch.res != nil && ch.connected && ch.trigger == t && ch.started {
			return snapshot{
				ch:       ch,
				trigger:  ch.trigger,
				ability:  ch.ability,
				csc:      ch.csc,
				eof:      ch.eof,
				descAddr: ch.descAddr,
			}, ch.res, true
		}
	}
	return snapshot{}, nil, false
}

// stats returns the enqueue counters.
func (d *DMA) stats() (enqueued, refused, pending int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enqueued, d.refused, len(d.pending)
}

func (d *DMA) failNext(n int) {
	d.mu.Lock()
	d.refuse += n
	d.mu.Unlock()
}

// channel is one 2D-DMA channel. Its configuration is guarded by the
// controller lock because engine starts scan all channels.
type channel struct {
	dma *DMA
	idx int
	dir ppa.ChannelDirection
	res *reservation

	trigger   ppa.Trigger
	connected bool
	ability   ppa.TransferAbility
	csc       ppa.CSC
	eof       ppa.EOFHandler
	descAddr  uint64
	started   bool
}

// reset clears the configuration. d.mu is held.
func (ch *channel) reset() {
	ch.connected = false
	ch.ability = ppa.TransferAbility{}
	ch.csc = ppa.CSCNone
	ch.eof = nil
	ch.descAddr = 0
	ch.started = false
}

func (ch *channel) update(fn func()) {
	ch.dma.mu.Lock()
	defer ch.dma.mu.Unlock()
	if ch.res == nil {
		panic(fmt.Sprintf("sim: channel %d configured while not reserved", ch.idx))
	}
	fn()
}

func (ch *channel) Direction() ppa.ChannelDirection { return ch.dir }

func (ch *channel) Connect(t ppa.Trigger) {
	ch.update(func() {
		ch.trigger = t
		ch.connected = true
	})
}

func (ch *channel) SetTransferAbility(a ppa.TransferAbility) {
	ch.update(func() { ch.ability = a })
}

func (ch *channel) ConfigureCSC(c ppa.CSC) {
	if c == ppa.CSCRxYUV420ToYUV444 && ch.dir != ppa.DirRX {
		panic("sim: RX color conversion on a TX channel")
	}
	ch.update(func() { ch.csc = c })
}

func (ch *channel) RegisterRxEOF(h ppa.EOFHandler) {
	if ch.dir != ppa.DirRX {
		panic("sim: EOF callback on a TX channel")
	}
	ch.update(func() { ch.eof = h })
}

func (ch *channel) SetDescriptorAddr(addr uint64) {
	ch.update(func() { ch.descAddr = addr })
}

func (ch *channel) Start() {
	ch.update(func() {
		if !ch.connected || ch.descAddr == 0 {
			panic(fmt.Sprintf("sim: channel %d started before connect and descriptor setup", ch.idx))
		}
		ch.started = true
	})
}

// snapshot is a copy of a channel's configuration taken at engine start.
type snapshot struct {
	ch       *channel
	trigger  ppa.Trigger
	ability  ppa.TransferAbility
	csc      ppa.CSC
	eof      ppa.EOFHandler
	descAddr uint64
}
