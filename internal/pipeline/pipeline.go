package pipeline

import (
	"io"
	"log/slog"
	"runtime"

	"github.com/pkg/errors"
)

// WaitUntil blocks until cond returns true. It spins, yielding the processor
// between polls, and has no timeout: it is only meant for conditions that
// the hardware guarantees to become true.
func WaitUntil(cond func() bool) {
	for !cond() {
		runtime.Gosched()
	}
}

// Pipeline owns a Port for the lifetime of the display. It starts the
// self-restarting transfer and tears it down safely.
type Pipeline struct {
	port   Port
	logger *slog.Logger
	buf    []byte
}

// New creates a new pipeline around port.
func New(port Port, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		port:   port,
		logger: logger,
	}
}

// Start starts streaming bitstream forever. Failing to claim the port is
// fatal for bring-up.
func (p *Pipeline) Start(bitstream []byte) error {
	if err := p.port.Start(bitstream, true); err != nil {
		return errors.Wrap(err, "failed to start output port")
	}
	p.buf = bitstream
	p.logger.Debug("output pipeline started", "bytes", len(bitstream))
	return nil
}

// Bitstream returns the bitstream currently targeted by the control stage.
func (p *Pipeline) Bitstream() []byte {
	return p.buf
}

// Flip points the control stage at buf and waits until the pass in flight is
// done with the previous bitstream, so it can be written again safely. Ports
// that cannot be retargeted return an error.
func (p *Pipeline) Flip(buf []byte) error {
	r, ok := p.port.(Retargeter)
	if !ok {
		return errors.New("output port does not support double buffering")
	}

	r.Retarget(buf)
	p.buf = buf

	// Only a pass that completes after the retarget is known to have loaded
	// the old control word, so the count is sampled here and not before.
	start := r.Passes()

	WaitUntil(func() bool {
		return r.Passes() > start || !p.port.Busy()
	})

	return nil
}

// Close stops the transfer and releases the port. It masks the completion
// interrupt first so that no handler runs against a half-torn-down display,
// then waits for the in-flight record to drain. Close may block for as long
// as the hardware takes to finish its current record.
func (p *Pipeline) Close() error {
	var restore func()
	masker, canMask := p.port.(InterruptMasker)
	if canMask {
		restore = masker.MaskInterrupts()
	}

	p.port.Abort()
	WaitUntil(func() bool { return !p.port.Busy() })

	if canMask {
		masker.ClearInterrupts()
		restore()
	}

	p.logger.Debug("output pipeline stopped")

	if closer, ok := p.port.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return errors.Wrap(err, "failed to release output port")
		}
	}

	return nil
}
