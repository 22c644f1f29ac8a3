package wire

import (
	"encoding/binary"
	"fmt"
)

// FrameState classifies the head of a receive buffer, mirroring the three
// states the original implementation distinguishes: not enough bytes yet to
// decide, a full packet sitting at the front, or bytes that can never form a
// valid packet (bad magic or an over-long length).
type FrameState int

const (
	NotReady FrameState = iota
	Ready
	Damaged
)

func (s FrameState) String() string {
	switch s {
	case NotReady:
		return "NotReady"
	case Ready:
		return "Ready"
	case Damaged:
		return "Damaged"
	default:
		return "Unknown"
	}
}

// ClassifyFrame inspects the front of buf and reports whether it holds a
// complete packet, needs more bytes, or is unrecoverably malformed. It never
// mutates buf and never reads past HeaderLen+length bytes.
func ClassifyFrame(buf []byte) FrameState {
	if len(buf) < 4 {
		return NotReady
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != Magic {
		return Damaged
	}
	if len(buf) < HeaderLen {
		return NotReady
	}
	length := binary.LittleEndian.Uint32(buf[8:12])
	if length > MaxPacketLen {
		return Damaged
	}
	if uint32(len(buf)) < HeaderLen+length {
		return NotReady
	}
	return Ready
}

// CreatePacket serializes a packet type and UTF-8 text into wire bytes.
func CreatePacket(packetType uint32, text string) []byte {
	body := []byte(text)
	out := make([]byte, HeaderLen+len(body))
	binary.LittleEndian.PutUint32(out[0:4], Magic)
	binary.LittleEndian.PutUint32(out[4:8], packetType)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(body)))
	copy(out[HeaderLen:], body)
	return out
}

// ExtractPacket pops exactly one ready packet off the front of buf, returning
// the decoded packet, the number of bytes consumed, and an error if buf's
// front is not in the Ready state.
func ExtractPacket(buf []byte) (Packet, int, error) {
	if ClassifyFrame(buf) != Ready {
		return Packet{}, 0, fmt.Errorf("wire: buffer not ready for extraction")
	}
	packetType := binary.LittleEndian.Uint32(buf[4:8])
	length := binary.LittleEndian.Uint32(buf[8:12])
	consumed := int(HeaderLen + length)
	payload := string(buf[HeaderLen:consumed])
	return Packet{Type: packetType, Payload: payload}, consumed, nil
}
