// Package matrixserial implements the serial protocol between the host and a
// microcontroller that drives the LED matrix.
//
// Every packet is a type byte, a little endian payload and the CRC-32 (IEEE)
// of both as a little endian uint32.
package matrixserial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// IncomingPacketType is the type of a packet sent to the device.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeBitstreamPacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeBitstreamPacket:
		return "bitstream"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent to the device.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// InitializePacket describes the bitstream geometry to the device.
type InitializePacket struct {
	Width      uint16
	Height     uint16
	Frames     uint16
	FrameBytes uint16
}

// BitstreamLength returns the length of a bitstream with this geometry.
func (p InitializePacket) BitstreamLength() int {
	return int(p.Height) * int(p.Frames) * int(p.FrameBytes)
}

// ClearPacket blanks the panel.
type ClearPacket struct{}

// BitstreamPacket carries one full pass of the bitstream.
type BitstreamPacket struct {
	Data []byte
}

func (p InitializePacket) Type() IncomingPacketType { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType      { return TypeClearPacket }
func (p BitstreamPacket) Type() IncomingPacketType  { return TypeBitstreamPacket }

// OutgoingPacketType is the type of a packet sent by the device.
type OutgoingPacketType uint8

const (
	TypeErrorPacket OutgoingPacketType = iota
	TypePanicPacket
	TypeLogPacket
	TypeAckPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	case TypeAckPacket:
		return "ack"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent by the device.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// ErrorPacket is a packet that indicates an error occurred.
type ErrorPacket struct {
	Message string
}

// PanicPacket is a packet that indicates the device cannot recover.
type PanicPacket struct {
	Message string
}

// LogPacket is a packet that contains a log message.
type LogPacket struct {
	Message string
}

// AckPacket acknowledges that an incoming packet was handled.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }
func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }

// ReadContext holds the state needed to read packets whose size is not
// encoded on the wire.
type ReadContext struct {
	// BitstreamLength is the length of a bitstream packet's payload, as
	// announced by the last InitializePacket.
	BitstreamLength int
	// Buffer, if large enough, is reused for bitstream payloads.
	Buffer []byte
}

// ErrChecksum is returned when a packet's checksum does not match.
var ErrChecksum = fmt.Errorf("packet checksum mismatch")

// ReadIncomingPacket reads an incoming packet from the given reader.
func ReadIncomingPacket(r io.Reader, context ReadContext) (IncomingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet IncomingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read incoming packet type: %w", err)
	}

	switch ptype := IncomingPacketType(ptypeBuf[0]); ptype {
	case TypeInitializePacket:
		var p InitializePacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read geometry: %w", err)
		}
		packet = p

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypeBitstreamPacket:
		if context.BitstreamLength <= 0 {
			return nil, fmt.Errorf("bitstream packet before initialize")
		}
		var p BitstreamPacket
		if cap(context.Buffer) >= context.BitstreamLength {
			p.Data = context.Buffer[:context.BitstreamLength]
		} else {
			p.Data = make([]byte, context.BitstreamLength)
		}
		if _, err := io.ReadFull(r, p.Data); err != nil {
			return nil, fmt.Errorf("failed to read bitstream: %w", err)
		}
		packet = p

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteIncomingPacket writes an incoming packet to the given writer.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	hash := crc32.NewIEEE()
	w = io.MultiWriter(w, hash)

	if err := binary.Write(w, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	switch p := p.(type) {
	case InitializePacket:
		if err := binary.Write(w, Endianness, p); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case ClearPacket:
	case BitstreamPacket:
		if _, err := w.Write(p.Data); err != nil {
			return fmt.Errorf("failed to write bitstream: %w", err)
		}
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	return writeChecksum(w, hash.Sum32())
}

// ReadOutgoingPacket reads an outgoing packet from the given reader.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet OutgoingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read outgoing packet type: %w", err)
	}

	switch ptype := OutgoingPacketType(ptypeBuf[0]); ptype {
	case TypeErrorPacket:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read error message: %w", err)
		}
		packet = ErrorPacket{Message: msg}

	case TypePanicPacket:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read panic message: %w", err)
		}
		packet = PanicPacket{Message: msg}

	case TypeLogPacket:
		msg, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read log message: %w", err)
		}
		packet = LogPacket{Message: msg}

	case TypeAckPacket:
		var p AckPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read acked packet type: %w", err)
		}
		packet = p

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := readChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}

	return packet, nil
}

// WriteOutgoingPacket writes an outgoing packet to the given writer.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	hash := crc32.NewIEEE()
	w = io.MultiWriter(w, hash)

	if err := binary.Write(w, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	var err error
	switch p := p.(type) {
	case ErrorPacket:
		err = writeString(w, p.Message)
	case PanicPacket:
		err = writeString(w, p.Message)
	case LogPacket:
		err = writeString(w, p.Message)
	case AckPacket:
		err = binary.Write(w, Endianness, p)
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s packet: %w", p.Type(), err)
	}

	return writeChecksum(w, hash.Sum32())
}

func readString(r io.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, Endianness, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	if err := binary.Write(w, Endianness, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// readChecksum reads the trailing checksum and compares it with want, the sum
// of everything read before it.
func readChecksum(r io.Reader, want uint32) error {
	var checksum uint32
	if err := binary.Read(r, Endianness, &checksum); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}
	if checksum != want {
		return ErrChecksum
	}
	return nil
}

func writeChecksum(w io.Writer, sum uint32) error {
	if err := binary.Write(w, Endianness, sum); err != nil {
		return fmt.Errorf("failed to write packet checksum: %w", err)
	}
	return nil
}
