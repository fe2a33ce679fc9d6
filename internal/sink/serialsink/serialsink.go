// Package serialsink streams bitstream passes to a microcontroller over a
// serial port. The microcontroller does the actual shifting out.
package serialsink

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/internal/pipeline"
	"libdb.so/matrixglow/matrixserial"
)

// DefaultAckTimeout is how long a pass waits for the device to acknowledge
// the previous one.
const DefaultAckTimeout = time.Second

// DefaultInterval is the minimum time between two passes.
const DefaultInterval = time.Second / 60

// Config is the configuration of a serial sink.
type Config struct {
	// Device is the path to the serial device, usually /dev/ttyACM0.
	Device string
	// Baud is the baud rate.
	Baud int
	// Interval is the minimum time between two passes.
	Interval time.Duration
	// AckTimeout bounds the wait for an acknowledgement.
	AckTimeout time.Duration
}

// Sink is a pipeline.Sink that sends every changed pass to the device as one
// BitstreamPacket and waits for the device to acknowledge it before sending
// the next one.
type Sink struct {
	cfg    Config
	port   io.ReadWriteCloser
	logger *slog.Logger

	pass []byte
	sent []byte
	last time.Time

	acks   chan matrixserial.AckPacket
	closed atomic.Bool
}

var (
	_ pipeline.Sink      = (*Sink)(nil)
	_ pipeline.PassEnder = (*Sink)(nil)
)

// Open opens the serial port.
func Open(cfg Config, logger *slog.Logger) (*Sink, error) {
	port, err := serial.Open(cfg.Device, &serial.Mode{
		BaudRate: cfg.Baud,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open serial port")
	}

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		port.Close()
		return nil, errors.Wrap(err, "failed to reset read timeout")
	}

	return New(port, cfg, logger), nil
}

// New creates a sink on an already opened port.
func New(port io.ReadWriteCloser, cfg Config, logger *slog.Logger) *Sink {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}

	s := &Sink{
		cfg:    cfg,
		port:   port,
		logger: logger,
		pass:   make([]byte, matrix.BitstreamLength),
		acks:   make(chan matrixserial.AckPacket, 1),
	}
	matrix.InitBitstream(s.pass)
	return s
}

// Initialize announces the bitstream geometry to the device and waits for it
// to be acknowledged. Run must already be running.
func (s *Sink) Initialize(ctx context.Context) error {
	s.logger.Debug("sending initialize packet")

	if err := s.writePacket(matrixserial.InitializePacket{
		Width:      matrix.Width,
		Height:     matrix.Height,
		Frames:     matrix.Frames,
		FrameBytes: matrix.FrameBytes,
	}); err != nil {
		return errors.Wrap(err, "failed to initialize device")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.acks:
		return nil
	case <-time.After(s.cfg.AckTimeout):
		return errors.New("device did not acknowledge initialization")
	}
}

// Run reads packets from the device until the device reports a fatal error,
// ctx is canceled or the port is closed by Close. A closed port ends Run
// without error.
func (s *Sink) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		p, err := matrixserial.ReadOutgoingPacket(s.port)
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			// A short read indicates a timeout. This is expected.
			if errors.Is(err, io.EOF) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			return errors.Wrap(err, "failed to read packet")
		}

		switch p := p.(type) {
		case matrixserial.AckPacket:
			s.logger.Debug(
				"received ack packet from device",
				"acked_for", p.IncomingPacketType)
			select {
			case s.acks <- p:
			default:
			}

		case matrixserial.ErrorPacket:
			s.logger.Warn(
				"received error packet from device",
				"message", p.Message)

		case matrixserial.PanicPacket:
			s.logger.Error(
				"device unrecoverably panicked",
				"message", p.Message)
			return errors.New("device panicked")

		case matrixserial.LogPacket:
			s.logger.Info(
				"received log packet from device",
				"message", p.Message)

		default:
			return errors.Errorf("received unknown packet from device: %s", p.Type())
		}
	}

	return ctx.Err()
}

// Shift implements pipeline.Sink.
func (s *Sink) Shift(r matrix.Record) error {
	copy(s.pass[r.Offset():][:matrix.FrameBytes], r)
	return nil
}

// EndPass implements pipeline.PassEnder. Unchanged passes are not sent.
func (s *Sink) EndPass() error {
	if wait := s.cfg.Interval - time.Since(s.last); wait > 0 {
		time.Sleep(wait)
	}
	s.last = time.Now()

	if bytes.Equal(s.pass, s.sent) {
		return nil
	}

	if err := s.writePacket(matrixserial.BitstreamPacket{Data: s.pass}); err != nil {
		return err
	}
	s.sent = append(s.sent[:0], s.pass...)

	select {
	case <-s.acks:
	case <-time.After(s.cfg.AckTimeout):
		s.logger.Warn("device did not acknowledge bitstream, resending next pass")
		s.sent = s.sent[:0]
	}

	return nil
}

func (s *Sink) writePacket(p matrixserial.IncomingPacket) error {
	s.logger.Debug(
		"writing packet",
		"type", p.Type())

	if err := matrixserial.WriteIncomingPacket(s.port, p); err != nil {
		return errors.Wrapf(err, "failed to write %s packet", p.Type())
	}
	return nil
}

// Close implements pipeline.Sink.
func (s *Sink) Close() error {
	if err := s.writePacket(matrixserial.ClearPacket{}); err != nil {
		s.logger.Warn("failed to clear device", "error", err)
	}
	s.logger.Debug("closing serial port")
	s.closed.Store(true)
	return s.port.Close()
}
