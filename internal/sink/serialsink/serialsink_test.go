package serialsink

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/matrixglow/internal/matrix"
	"libdb.so/matrixglow/matrixserial"
)

// fakeDevice acknowledges every packet it receives and forwards it.
func fakeDevice(conn net.Conn, received chan<- matrixserial.IncomingPacket) {
	var rctx matrixserial.ReadContext
	for {
		p, err := matrixserial.ReadIncomingPacket(conn, rctx)
		if err != nil {
			close(received)
			return
		}

		if geom, ok := p.(matrixserial.InitializePacket); ok {
			rctx.BitstreamLength = geom.BitstreamLength()
		}
		if bs, ok := p.(matrixserial.BitstreamPacket); ok {
			p = matrixserial.BitstreamPacket{Data: append([]byte(nil), bs.Data...)}
		}

		received <- p

		if err := matrixserial.WriteOutgoingPacket(conn, matrixserial.LogPacket{Message: "ok"}); err != nil {
			return
		}
		if err := matrixserial.WriteOutgoingPacket(conn, matrixserial.AckPacket{
			IncomingPacketType: p.Type(),
		}); err != nil {
			return
		}
	}
}

func shiftAll(t *testing.T, s *Sink, buf []byte) {
	t.Helper()
	err := matrix.ForEachRecord(buf, func(_, _ int, r matrix.Record) error {
		return s.Shift(r)
	})
	require.NoError(t, err)
	require.NoError(t, s.EndPass())
}

func expectPacket(t *testing.T, received <-chan matrixserial.IncomingPacket) matrixserial.IncomingPacket {
	t.Helper()
	select {
	case p := <-received:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for packet")
		return nil
	}
}

func TestSinkSendsChangedPasses(t *testing.T) {
	host, device := net.Pipe()
	received := make(chan matrixserial.IncomingPacket, 8)
	go fakeDevice(device, received)

	s := New(host, Config{Interval: time.Millisecond}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, matrixserial.InitializePacket{
		Width:      matrix.Width,
		Height:     matrix.Height,
		Frames:     matrix.Frames,
		FrameBytes: matrix.FrameBytes,
	}, expectPacket(t, received))

	enc := matrix.NewEncoder()
	enc.SetPixel(1, 2, 255, 0, 0)

	shiftAll(t, s, enc.Bitstream())
	p := expectPacket(t, received)
	assert.Equal(t, matrixserial.BitstreamPacket{Data: enc.Bitstream()}, p)

	// An unchanged pass is not resent.
	shiftAll(t, s, enc.Bitstream())
	select {
	case p := <-received:
		t.Fatalf("unexpected packet %s", p.Type())
	case <-time.After(20 * time.Millisecond):
	}

	enc.SetPixel(1, 2, 0, 0, 0)
	shiftAll(t, s, enc.Bitstream())
	assert.Equal(t, matrixserial.BitstreamPacket{Data: enc.Bitstream()}, expectPacket(t, received))

	cancel()
	require.NoError(t, s.Close())
	assert.Equal(t, matrixserial.ClearPacket{}, expectPacket(t, received))

	select {
	case err := <-runErr:
		assert.NoError(t, err, "closing the port ends Run cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
