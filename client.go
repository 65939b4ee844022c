package ppa

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gogpu/ppa/internal/ring"
)

// Client submits operations of one kind to its engine. A client owns a
// fixed pool of transactions, so at most MaxPendingTransactions of its
// operations are queued or running at any time.
//
// Client is safe for concurrent use.
type Client struct {
	id         uuid.UUID
	reg        *Registry
	op         Operation
	eng        *engine
	maxPending int

	mu          sync.Mutex
	free        *ring.Ring[*transaction]
	outstanding int
	accepting   bool
	cb          Callback
}

// RegisterClient creates a client for cfg.Operation and takes a reference
// on the engine that executes it.
func (r *Registry) RegisterClient(cfg ClientConfig) (*Client, error) {
	kind, ok := cfg.Operation.engineKind()
	if !ok {
		return nil, fmt.Errorf("ppa: unknown operation %v: %w", cfg.Operation, ErrInvalidArgument)
	}
	n := max(cfg.MaxPendingTransactions, 1)

	e, err := r.acquire(kind)
	if err != nil {
		return nil, err
	}

	c := &Client{
		id:         uuid.New(),
		reg:        r,
		op:         cfg.Operation,
		eng:        e,
		maxPending: n,
		free:       ring.New[*transaction](n),
		accepting:  true,
		cb:         cfg.Callback,
	}
	for range n {
		c.free.Push(newTransaction(c, e))
	}
	e.reserve(n)

	Logger().Info("ppa: client registered", "client", c.id, "op", c.op, "max_pending", n)
	return c, nil
}

// ID returns the identifier used in log records about this client.
func (c *Client) ID() uuid.UUID { return c.id }

// Operation returns the operation the client was registered for.
func (c *Client) Operation() Operation { return c.op }

// RegisterCallback sets the completion callback. Pass nil to remove it.
// The callback runs in interrupt context and must not block.
func (c *Client) RegisterCallback(cb Callback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

// Stats returns a consistent snapshot of the transaction pool.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClientStats{
		MaxPending:  c.maxPending,
		Outstanding: c.outstanding,
		Free:        c.free.Len(),
	}
}

// Unregister tears the client down and drops its engine reference. It
// fails with ErrBusy, changing nothing, while any of the client's
// transactions is queued or running.
func (c *Client) Unregister() error {
	c.mu.Lock()
	if !c.accepting {
		c.mu.Unlock()
		return fmt.Errorf("ppa: client %s already unregistered: %w", c.id, ErrInvalidState)
	}
	if c.outstanding != 0 {
		n := c.outstanding
		c.mu.Unlock()
		return fmt.Errorf("ppa: client %s has %d transactions in flight: %w", c.id, n, ErrBusy)
	}
	c.accepting = false
	for c.free.Len() > 0 {
		c.free.Pop()
	}
	c.mu.Unlock()

	c.eng.reserve(-c.maxPending)
	c.reg.release(c.eng)
	Logger().Info("ppa: client unregistered", "client", c.id, "op", c.op)
	return nil
}

// takeTransaction pops a free transaction and counts it outstanding.
func (c *Client) takeTransaction() (*transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.accepting {
		return nil, fmt.Errorf("ppa: client %s unregistered: %w", c.id, ErrInvalidState)
	}
	t, ok := c.free.Pop()
	if !ok {
		return nil, fmt.Errorf("ppa: client %s: %w", c.id, ErrQueueFull)
	}
	c.outstanding++
	return t, nil
}

// recycle returns t to the free pool.
func (c *Client) recycle(t *transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t.state = stateFree
	t.userData = nil
	if !c.free.Push(t) {
		panic(fmt.Sprintf("ppa: client %s recycled more transactions than it owns", c.id))
	}
	c.outstanding--
}

func (c *Client) notify(ev *Event, userData any) bool {
	c.mu.Lock()
	cb := c.cb
	c.mu.Unlock()
	if cb == nil {
		return false
	}
	return cb(c, ev, userData)
}

// run queues t and dispatches it when the engine is idle. A blocking
// submission waits until t finished.
func (c *Client) run(t *transaction, tc TransConfig) error {
	e := c.eng
	t.mode = tc.Mode
	t.userData = tc.UserData

	c.mu.Lock()
	gen := e.enqueue(t)
	c.mu.Unlock()
	Logger().Debug("ppa: transaction queued", "engine", e.kind, "client", c.id, "mode", tc.Mode)

	if tc.Mode == NonBlocking {
		if !e.tryTakeGate() {
			return nil
		}
		return e.kick(t, gen)
	}

	// A busy engine dispatches t from its completion handler, so the
	// result may arrive before the gate does.
	select {
	case <-e.gate:
		if err := e.kick(t, gen); err != nil {
			return err
		}
	case err := <-t.done:
		c.recycle(t)
		return err
	}
	err := <-t.done
	c.recycle(t)
	return err
}

func checkTransConfig(tc TransConfig) error {
	if tc.Mode != Blocking && tc.Mode != NonBlocking {
		return fmt.Errorf("ppa: %v: %w", tc.Mode, ErrInvalidArgument)
	}
	return nil
}

func (c *Client) checkOperation(op Operation) error {
	if c.op != op {
		return fmt.Errorf("ppa: client %s registered for %v, not %v: %w", c.id, c.op, op, ErrInvalidArgument)
	}
	return nil
}
