package wire

import "encoding/binary"

// PortEnvVar is the environment variable the controller uses to advertise
// its loopback listen port to the agent it is about to spawn.
const PortEnvVar = "QTMONKEY_PORT"

// EncodePort serializes a TCP port number as a big-endian 16-bit integer,
// matching the original QDataStream wire format used for QTMONKEY_PORT.
// Deviating from big-endian here breaks compatibility with any tooling that
// assumes this exact encoding (see spec.md Open Questions).
func EncodePort(port uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, port)
	return buf
}

// DecodePort is the inverse of EncodePort. It reports false if raw is not
// exactly 2 bytes.
func DecodePort(raw []byte) (uint16, bool) {
	if len(raw) != 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(raw), true
}
