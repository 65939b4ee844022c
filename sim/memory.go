package sim

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/ppa"
)

// busBase is the bus address of the first mapped region.
const busBase = 0x4800_0000

// ErrNotMapped is returned for buffers outside DMA-capable memory.
var ErrNotMapped = errors.New("sim: buffer not in DMA memory")

// region is one anonymous mapping.
type region struct {
	data []byte
	host uintptr
	bus  uint64
}

func (r *region) containsHost(p uintptr, n int) bool {
	return p >= r.host && p+uintptr(n) <= r.host+uintptr(len(r.data))
}

// Memory models DMA-capable RAM with page-aligned anonymous mappings. Each
// allocation gets its own mapping and a bus address in a flat window.
//
// Memory is safe for concurrent use.
type Memory struct {
	page int

	mu      sync.RWMutex
	regions []*region
	nextBus uint64
}

func newMemory() *Memory {
	return &Memory{page: unix.Getpagesize(), nextBus: busBase}
}

// Alloc maps size bytes aligned to align, which must not exceed the page
// size.
func (m *Memory) Alloc(size, align int) (ppa.Mem, error) {
	if size <= 0 {
		return nil, fmt.Errorf("sim: alloc of %d bytes", size)
	}
	if align > m.page {
		return nil, fmt.Errorf("sim: alignment %d exceeds page size %d", align, m.page)
	}
	n := (size + m.page - 1) / m.page * m.page
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("sim: mmap %d bytes: %w", n, err)
	}

	m.mu.Lock()
	r := &region{
		data: data,
		host: uintptr(unsafe.Pointer(unsafe.SliceData(data))),
		bus:  m.nextBus,
	}
	m.nextBus += uint64(n)
	m.regions = append(m.regions, r)
	m.mu.Unlock()

	return &mem{m: m, r: r, buf: data[:size:size]}, nil
}

// IsDMACapable reports whether buf lies in mapped memory.
func (m *Memory) IsDMACapable(buf []byte) bool {
	_, ok := m.PhysAddr(buf)
	return ok
}

// PhysAddr returns the bus address of buf.
func (m *Memory) PhysAddr(buf []byte) (uint64, bool) {
	if len(buf) == 0 {
		return 0, false
	}
	p := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.regions {
		if r.containsHost(p, len(buf)) {
			return r.bus + uint64(p-r.host), true
		}
	}
	return 0, false
}

// Resolve returns the n bytes at bus address addr.
func (m *Memory) Resolve(addr uint64, n int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.regions {
		end := r.bus + uint64(len(r.data))
		if addr >= r.bus && addr < end {
			if addr+uint64(n) > end {
				return nil, fmt.Errorf("sim: %d bytes at %#x cross the end of a mapping: %w", n, addr, ErrNotMapped)
			}
			off := addr - r.bus
			return r.data[off : off+uint64(n)], nil
		}
	}
	return nil, fmt.Errorf("sim: bus address %#x: %w", addr, ErrNotMapped)
}

// Mapped returns the number of live mappings.
func (m *Memory) Mapped() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.regions)
}

func (m *Memory) unmap(r *region) error {
	m.mu.Lock()
	idx := -1
	for i, x := range m.regions {
		if x == r {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return errors.New("sim: double free")
	}
	m.regions = append(m.regions[:idx], m.regions[idx+1:]...)
	m.mu.Unlock()
	return unix.Munmap(r.data)
}

func (m *Memory) close() {
	m.mu.Lock()
	regions := m.regions
	m.regions = nil
	m.mu.Unlock()
	for _, r := range regions {
		if err := unix.Munmap(r.data); err != nil {
			ppa.Logger().Warn("sim: munmap failed", "bus", r.bus, "err", err)
		}
	}
}

// mem is one allocation.
type mem struct {
	m   *Memory
	r   *region
	buf []byte
}

func (x *mem) Buf() []byte      { return x.buf }
func (x *mem) PhysAddr() uint64 { return x.r.bus }
func (x *mem) Close() error     { return x.m.unmap(x.r) }
