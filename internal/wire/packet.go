// Package wire implements the length-prefixed packet protocol shared by the
// agent and the controller: a little-endian magic/type/length header
// followed by UTF-8 text.
package wire

import "fmt"

// Magic is the fixed four-byte header value every packet starts with.
const Magic uint32 = 0x12345678

// MaxPacketLen is the largest payload (in bytes) a single packet may carry.
const MaxPacketLen = 1024 * 1024

// HeaderLen is the size in bytes of magic+type+length.
const HeaderLen = 4 + 4 + 4

// ToAgent enumerates packet types the controller sends to the agent.
type ToAgent uint32

const (
	RunScript ToAgent = iota
	SetScriptFileName
	SetBreakpoint // reserved
	Continue      // reserved
	Halt          // reserved
	CloseAck
)

func (t ToAgent) String() string {
	switch t {
	case RunScript:
		return "RunScript"
	case SetScriptFileName:
		return "SetScriptFileName"
	case SetBreakpoint:
		return "SetBreakpoint"
	case Continue:
		return "Continue"
	case Halt:
		return "Halt"
	case CloseAck:
		return "CloseAck"
	default:
		return fmt.Sprintf("ToAgent(%d)", uint32(t))
	}
}

// ToController enumerates packet types the agent sends to the controller.
type ToController uint32

const (
	NewUserAppEvent ToController = iota
	ScriptError
	ScriptEnd
	ScriptLog
	StopOnBreakpoint // reserved
	Close
)

func (t ToController) String() string {
	switch t {
	case NewUserAppEvent:
		return "NewUserAppEvent"
	case ScriptError:
		return "ScriptError"
	case ScriptEnd:
		return "ScriptEnd"
	case ScriptLog:
		return "ScriptLog"
	case StopOnBreakpoint:
		return "StopOnBreakpoint"
	case Close:
		return "Close"
	default:
		return fmt.Sprintf("ToController(%d)", uint32(t))
	}
}

// Packet is a single framed message: a type tag (interpreted by the
// direction of travel) and its UTF-8 payload.
type Packet struct {
	Type    uint32
	Payload string
}
