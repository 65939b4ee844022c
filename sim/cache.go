package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/ppa"
)

// ErrUnaligned is returned for an invalidation that is not cache-line
// aligned and was not marked unaligned.
var ErrUnaligned = errors.New("sim: unaligned cache invalidation")

// SyncOp is one recorded cache maintenance operation.
type SyncOp struct {
	Addr  uint64
	Len   int
	Flags ppa.SyncFlags
}

// Cache models the data cache in front of DMA memory. It does not hold
// stale data; it checks and records the maintenance the driver performs.
type Cache struct {
	line int
	mem  *Memory

	mu  sync.Mutex
	ops []SyncOp
}

// CacheLineSize returns the line size in bytes.
func (c *Cache) CacheLineSize() int { return c.line }

// Sync checks buf and flags the way the hardware cache driver does and
// records the operation.
func (c *Cache) Sync(buf []byte, flags ppa.SyncFlags) error {
	c2m := flags&ppa.SyncDirC2M != 0
	m2c := flags&ppa.SyncDirM2C != 0
	if c2m == m2c {
		return fmt.Errorf("sim: sync flags %#x need exactly one direction", flags)
	}
	addr, ok := c.mem.PhysAddr(buf)
	if !ok {
		return ErrNotMapped
	}
	if m2c && flags&ppa.SyncUnaligned == 0 && c.line > 0 {
		if addr%uint64(c.line) != 0 || len(buf)%c.line != 0 {
			return fmt.Errorf("sim: %d bytes at %#x: %w", len(buf), addr, ErrUnaligned)
		}
	}
	c.mu.Lock()
	c.ops = append(c.ops, SyncOp{Addr: addr, Len: len(buf), Flags: flags})
	c.mu.Unlock()
	return nil
}

// Ops returns the recorded operations in order.
func (c *Cache) Ops() []SyncOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SyncOp(nil), c.ops...)
}

// Reset forgets the recorded operations.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.ops = nil
	c.mu.Unlock()
}
