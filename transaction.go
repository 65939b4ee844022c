package ppa

import "fmt"

// txState is the lifecycle position of a transaction:
// Free -> Queued -> Dispatched -> Completed -> Free.
type txState uint8

const (
	stateFree txState = iota
	stateQueued
	stateDispatched
	stateCompleted
)

func (s txState) String() string {
	switch s {
	case stateFree:
		return "free"
	case stateQueued:
		return "queued"
	case stateDispatched:
		return "dispatched"
	case stateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("txState(%d)", uint8(s))
	}
}

// opParams is the parameter block of one operation kind. The concrete type
// is fixed when the client's pool is built.
type opParams interface {
	// program runs when the transfer layer reserved the channels: it writes
	// the descriptors, configures the channels and the engine registers
	// and starts the engine.
	program(e *engine, t *transaction, chans []Channel) bool
}

// transaction is a reusable unit of work owned by one client.
type transaction struct {
	client *Client
	engine *engine
	state  txState
	params opParams

	job TransferJob
	eof EOFHandler

	// done carries the result to a blocking submitter.
	done chan error

	mode     TransMode
	userData any

	// gen counts submissions of this transaction. It is written under the
	// engine lock.
	gen uint64
}

func newTransaction(c *Client, e *engine) *transaction {
	t := &transaction{
		client: c,
		engine: e,
		done:   make(chan error, 1),
	}
	switch c.op {
	case OperationSRM:
		t.params = &srmParams{}
		t.job.TxChannels, t.job.RxChannels = 1, 1
	case OperationBlend:
		t.params = &blendParams{}
		t.job.TxChannels, t.job.RxChannels = 2, 1
	case OperationFill:
		t.params = &fillParams{}
		t.job.TxChannels, t.job.RxChannels = 0, 1
	}
	t.job.OnPicked = t.onPicked
	t.eof = t.onEOF
	return t
}

func (t *transaction) onPicked(chans []Channel) bool {
	return t.params.program(t.engine, t, chans)
}

func (t *transaction) onEOF(Channel) bool {
	return t.engine.complete(t)
}

// splitChannels returns the TX channels in reservation order and the
// first RX channel.
func splitChannels(chans []Channel, tx []Channel) ([]Channel, Channel) {
	var rx Channel
	tx = tx[:0]
	for _, ch := range chans {
		switch ch.Direction() {
		case DirTX:
			tx = append(tx, ch)
		case DirRX:
			if rx == nil {
				rx = ch
			}
		}
	}
	return tx, rx
}
