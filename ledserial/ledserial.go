// Package ledserial implements the wire protocol for serial-attached LED
// boards. Packets are little-endian, framed by a leading type byte and a
// trailing CRC32-IEEE checksum over the whole packet.
package ledserial

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Endianness defines the endianness of the protocol.
var Endianness = binary.LittleEndian

// IncomingPacketType is the type of a packet sent to the board.
type IncomingPacketType uint8

const (
	TypeInitializePacket IncomingPacketType = iota
	TypeClearPacket
	TypeSetPacket
	TypeTogglePacket
)

// String returns a string representation of the packet type.
func (t IncomingPacketType) String() string {
	switch t {
	case TypeInitializePacket:
		return "initialize"
	case TypeClearPacket:
		return "clear"
	case TypeSetPacket:
		return "set"
	case TypeTogglePacket:
		return "toggle"
	default:
		return fmt.Sprintf("IncomingPacketType(%d)", t)
	}
}

// IncomingPacket is a packet sent to the board.
type IncomingPacket interface {
	// Type returns the type of packet.
	Type() IncomingPacketType
}

// InitializePacket tells the board how many lines to expose. The board
// replies with an ack once the lines are configured, or an error packet if
// it cannot drive that many.
type InitializePacket struct {
	NumLines uint16
}

// ClearPacket drives every line to inactive.
type ClearPacket struct{}

// SetPacket drives a single line to the given level. Level is 0 for
// inactive, 1 for active; the board normalizes polarity itself.
type SetPacket struct {
	Index uint16
	Level uint8
}

// TogglePacket inverts a single line's current level.
type TogglePacket struct {
	Index uint16
}

func (p InitializePacket) Type() IncomingPacketType { return TypeInitializePacket }
func (p ClearPacket) Type() IncomingPacketType      { return TypeClearPacket }
func (p SetPacket) Type() IncomingPacketType        { return TypeSetPacket }
func (p TogglePacket) Type() IncomingPacketType     { return TypeTogglePacket }

// OutgoingPacketType is the type of a packet sent by the board.
type OutgoingPacketType uint8

const (
	TypeAckPacket OutgoingPacketType = iota
	TypeErrorPacket
	TypePanicPacket
	TypeLogPacket
)

// String returns a string representation of the packet type.
func (t OutgoingPacketType) String() string {
	switch t {
	case TypeAckPacket:
		return "ack"
	case TypeErrorPacket:
		return "error"
	case TypePanicPacket:
		return "panic"
	case TypeLogPacket:
		return "log"
	default:
		return fmt.Sprintf("OutgoingPacketType(%d)", t)
	}
}

// OutgoingPacket is a packet sent by the board.
type OutgoingPacket interface {
	// Type returns the type of packet.
	Type() OutgoingPacketType
}

// AckPacket acknowledges an incoming packet.
type AckPacket struct {
	IncomingPacketType IncomingPacketType
}

// ErrorPacket reports a recoverable board error.
type ErrorPacket struct {
	Message string
}

// PanicPacket reports that the board cannot recover.
type PanicPacket struct {
	Message string
}

// LogPacket carries a board log message.
type LogPacket struct {
	Message string
}

func (p AckPacket) Type() OutgoingPacketType   { return TypeAckPacket }
func (p ErrorPacket) Type() OutgoingPacketType { return TypeErrorPacket }
func (p PanicPacket) Type() OutgoingPacketType { return TypePanicPacket }
func (p LogPacket) Type() OutgoingPacketType   { return TypeLogPacket }

// ReadIncomingPacket reads a board-bound packet from the given reader.
func ReadIncomingPacket(r io.Reader) (IncomingPacket, error) {
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
			return nil, fmt.Errorf("failed to read line count: %w", err)
		}
		packet = p

	case TypeClearPacket:
		packet = ClearPacket{}

	case TypeSetPacket:
		var p SetPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read set payload: %w", err)
		}
		packet = p

	case TypeTogglePacket:
		var p TogglePacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read toggle payload: %w", err)
		}
		packet = p

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := verifyChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}
	return packet, nil
}

// WriteIncomingPacket writes a board-bound packet to the given writer.
func WriteIncomingPacket(w io.Writer, p IncomingPacket) error {
	hash := crc32.NewIEEE()
	w = io.MultiWriter(w, hash)

	if err := binary.Write(w, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	switch p := p.(type) {
	case InitializePacket, SetPacket, TogglePacket:
		if err := binary.Write(w, Endianness, p); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case ClearPacket:
		// type byte only
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return fmt.Errorf("failed to write packet checksum: %w", err)
	}
	return nil
}

// ReadOutgoingPacket reads a board-originated packet from the given reader.
func ReadOutgoingPacket(r io.Reader) (OutgoingPacket, error) {
	hash := crc32.NewIEEE()
	r = io.TeeReader(r, hash)

	var packet OutgoingPacket
	var ptypeBuf [1]byte
	if _, err := io.ReadFull(r, ptypeBuf[:]); err != nil {
		return nil, fmt.Errorf("failed to read outgoing packet type: %w", err)
	}

	switch ptype := OutgoingPacketType(ptypeBuf[0]); ptype {
	case TypeAckPacket:
		var p AckPacket
		if err := binary.Read(r, Endianness, &p); err != nil {
			return nil, fmt.Errorf("failed to read ack payload: %w", err)
		}
		packet = p

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

	default:
		return nil, fmt.Errorf("unknown packet type: %s", ptype)
	}

	if err := verifyChecksum(r, hash.Sum32()); err != nil {
		return nil, err
	}
	return packet, nil
}

// WriteOutgoingPacket writes a board-originated packet to the given writer.
func WriteOutgoingPacket(w io.Writer, p OutgoingPacket) error {
	hash := crc32.NewIEEE()
	w = io.MultiWriter(w, hash)

	if err := binary.Write(w, Endianness, p.Type()); err != nil {
		return fmt.Errorf("failed to write packet type: %w", err)
	}

	switch p := p.(type) {
	case AckPacket:
		if err := binary.Write(w, Endianness, p); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	case ErrorPacket:
		if err := writeString(w, p.Message); err != nil {
			return fmt.Errorf("failed to write error message: %w", err)
		}
	case PanicPacket:
		if err := writeString(w, p.Message); err != nil {
			return fmt.Errorf("failed to write panic message: %w", err)
		}
	case LogPacket:
		if err := writeString(w, p.Message); err != nil {
			return fmt.Errorf("failed to write log message: %w", err)
		}
	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	if err := binary.Write(w, Endianness, hash.Sum32()); err != nil {
		return fmt.Errorf("failed to write packet checksum: %w", err)
	}
	return nil
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
	if err := binary.Write(w, Endianness, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func verifyChecksum(r io.Reader, want uint32) error {
	// The TeeReader hashes the checksum bytes too, so snapshot first.
	var checksum uint32
	if err := binary.Read(r, Endianness, &checksum); err != nil {
		return fmt.Errorf("failed to read packet checksum: %w", err)
	}
	if checksum != want {
		return fmt.Errorf("packet checksum mismatch")
	}
	return nil
}
