// Package worker runs work items on a dedicated goroutine.
package worker

import (
	"sync"
	"sync/atomic"
)

// Serial executes submitted work one item at a time, in submission order,
// on a single goroutine.
//
// The software PPA model uses Serial as its interrupt context: every
// completion event is raised from the same goroutine, so handlers never run
// concurrently with each other, as on a single interrupt line.
//
// Thread safety: Serial is safe for concurrent use.
type Serial struct {
	// queue holds pending work in FIFO order.
	queue chan func()

	// done signals the worker to stop.
	done chan struct{}

	// wg waits for the worker to finish.
	wg sync.WaitGroup

	// running indicates whether Serial is accepting work.
	running atomic.Bool

	closeOnce sync.Once
}

// NewSerial starts a serial executor whose queue buffers depth items.
// If depth is less than 1, a depth of 64 is used.
func NewSerial(depth int) *Serial {
	if depth < 1 {
		depth = 64
	}
	s := &Serial{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
	s.running.Store(true)
	s.wg.Add(1)
	go s.loop()
	return s
}

func (s *Serial) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			s.drain()
			return
		case work := <-s.queue:
			if work != nil {
				work()
			}
		}
	}
}

// drain executes all remaining queued work.
func (s *Serial) drain() {
	for {
		select {
		case work := <-s.queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// Submit queues fn for execution. It blocks while the queue is full and
// returns false if the executor is closed.
func (s *Serial) Submit(fn func()) bool {
	if !s.running.Load() {
		return false
	}
	select {
	case s.queue <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Close stops accepting work, runs what is already queued and waits for the
// worker goroutine to exit. Close is idempotent.
func (s *Serial) Close() {
	s.closeOnce.Do(func() {
		s.running.Store(false)
		close(s.done)
		s.wg.Wait()
	})
}
