package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"libdb.so/matrixglow/internal/matrix"
)

var errAborted = errors.New("transfer aborted")

// Emulated is a Port that runs the control and data stages on a goroutine and
// feeds the records of each pass to a Sink.
type Emulated struct {
	sink Sink

	onPass  func(passes uint64)
	onError func(error)

	// ctrl is the control word the reload stage copies into the data stage.
	ctrl   atomic.Pointer[[]byte]
	busy   atomic.Bool
	passes atomic.Uint64

	masked  atomic.Bool
	pending atomic.Bool

	mu    sync.Mutex
	abort chan struct{}
}

var (
	_ Port            = (*Emulated)(nil)
	_ InterruptMasker = (*Emulated)(nil)
	_ Retargeter      = (*Emulated)(nil)
)

// EmulatedOption configures an Emulated port.
type EmulatedOption func(*Emulated)

// OnPass sets the pass completion interrupt handler. It is called from the
// transfer goroutine.
func OnPass(f func(passes uint64)) EmulatedOption {
	return func(e *Emulated) { e.onPass = f }
}

// OnError sets the handler for sink errors. A sink error stops the transfer.
func OnError(f func(error)) EmulatedOption {
	return func(e *Emulated) { e.onError = f }
}

// NewEmulated creates a new emulated port streaming into sink.
func NewEmulated(sink Sink, opts ...EmulatedOption) *Emulated {
	e := &Emulated{sink: sink}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start implements Port.
func (e *Emulated) Start(buf []byte, repeat bool) error {
	if len(buf) < matrix.BitstreamLength {
		return errors.Errorf("bitstream too short: %d < %d", len(buf), matrix.BitstreamLength)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	e.ctrl.Store(&buf)
	e.abort = make(chan struct{})

	go e.run(repeat, e.abort)
	return nil
}

// Abort implements Port.
func (e *Emulated) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.abort == nil {
		return
	}
	select {
	case <-e.abort:
	default:
		close(e.abort)
	}
}

// Busy implements Port.
func (e *Emulated) Busy() bool {
	return e.busy.Load()
}

// Retarget implements Retargeter.
func (e *Emulated) Retarget(buf []byte) {
	e.ctrl.Store(&buf)
}

// Passes implements Retargeter.
func (e *Emulated) Passes() uint64 {
	return e.passes.Load()
}

// MaskInterrupts implements InterruptMasker.
func (e *Emulated) MaskInterrupts() (restore func()) {
	prev := e.masked.Swap(true)
	return func() {
		e.masked.Store(prev)
		if !prev && e.pending.Swap(false) {
			e.raise()
		}
	}
}

// ClearInterrupts implements InterruptMasker.
func (e *Emulated) ClearInterrupts() {
	e.pending.Store(false)
}

// Close releases the sink. The port must not be busy.
func (e *Emulated) Close() error {
	if e.Busy() {
		return ErrBusy
	}
	return e.sink.Close()
}

func (e *Emulated) raise() {
	if e.masked.Load() {
		e.pending.Store(true)
		return
	}
	if e.onPass != nil {
		e.onPass(e.passes.Load())
	}
}

func (e *Emulated) run(repeat bool, abort <-chan struct{}) {
	defer e.busy.Store(false)

	shift := func(row, frame int, r matrix.Record) error {
		select {
		case <-abort:
			return errAborted
		default:
			return e.sink.Shift(r)
		}
	}

	for {
		// Control stage: reload the data stage's source.
		src := *e.ctrl.Load()

		// Data stage: stream one pass.
		if err := matrix.ForEachRecord(src, shift); err != nil {
			if !errors.Is(err, errAborted) && e.onError != nil {
				e.onError(err)
			}
			return
		}

		if ender, ok := e.sink.(PassEnder); ok {
			if err := ender.EndPass(); err != nil {
				if e.onError != nil {
					e.onError(err)
				}
				return
			}
		}

		e.passes.Add(1)
		e.raise()

		if !repeat {
			return
		}
	}
}
