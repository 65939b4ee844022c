package ppa

import "errors"

// Error taxonomy. Every error returned by this package wraps exactly one of
// these sentinels; test with errors.Is.
var (
	// ErrInvalidArgument reports a rejected parameter. Nothing was mutated
	// and the call may be retried with corrected parameters.
	ErrInvalidArgument = errors.New("ppa: invalid argument")

	// ErrNoResources reports exhausted capacity: the client's transaction
	// pool, or memory while setting up a client or engine.
	ErrNoResources = errors.New("ppa: out of resources")

	// ErrQueueFull is returned when a client already has its maximum number
	// of pending transactions. It wraps ErrNoResources.
	ErrQueueFull = wrapSentinel("ppa: exceeded max pending transactions", ErrNoResources)

	// ErrNoMemory is returned when DMA-capable memory cannot be allocated.
	// It wraps ErrNoResources.
	ErrNoMemory = wrapSentinel("ppa: no memory", ErrNoResources)

	// ErrBusy is returned when tearing down a client or registry that still
	// has transactions or clients outstanding.
	ErrBusy = errors.New("ppa: busy")

	// ErrInvalidState is returned for calls on a client or registry that is
	// being or has been torn down.
	ErrInvalidState = errors.New("ppa: invalid state")

	// ErrTransport is returned when the block-transfer layer refuses a job.
	ErrTransport = errors.New("ppa: block transfer refused")
)

// sentinel is an error with its own message that also matches a parent.
type sentinel struct {
	msg    string
	parent error
}

func wrapSentinel(msg string, parent error) error { return &sentinel{msg: msg, parent: parent} }

func (e *sentinel) Error() string { return e.msg }

func (e *sentinel) Unwrap() error { return e.parent }
