package wire

import (
	"math/rand"
	"testing"
)

func TestCreateExtractRoundTrip(t *testing.T) {
	cases := []struct {
		typ  uint32
		text string
	}{
		{0, ""},
		{1, "hello"},
		{uint32(ScriptError), "Test.log(\"hi\");\nTest.log(\"hi2\");"},
		{uint32(NewUserAppEvent), "unicode: éè 日本語"},
	}
	for _, c := range cases {
		pkt := CreatePacket(c.typ, c.text)
		if ClassifyFrame(pkt) != Ready {
			t.Fatalf("expected Ready for packet %v", c)
		}
		got, consumed, err := ExtractPacket(pkt)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		if consumed != len(pkt) {
			t.Errorf("consumed = %d, want %d", consumed, len(pkt))
		}
		if got.Type != c.typ || got.Payload != c.text {
			t.Errorf("got %+v, want type=%d text=%q", got, c.typ, c.text)
		}
	}
}

func TestSequentialExtractionInOrder(t *testing.T) {
	var buf []byte
	var want []Packet
	for i := 0; i < 20; i++ {
		p := Packet{Type: uint32(i % 3), Payload: "line " + string(rune('a'+i))}
		buf = append(buf, CreatePacket(p.Type, p.Payload)...)
		want = append(want, p)
	}

	var got []Packet
	for len(buf) > 0 {
		if ClassifyFrame(buf) != Ready {
			t.Fatalf("expected Ready mid-stream, buf len=%d", len(buf))
		}
		pkt, n, err := ExtractPacket(buf)
		if err != nil {
			t.Fatalf("extract: %v", err)
		}
		got = append(got, pkt)
		buf = buf[n:]
	}

	if len(got) != len(want) {
		t.Fatalf("got %d packets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("packet %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

// TestChunkedDeliveryIsOrderIndependent feeds the same packet stream through
// the classify/extract loop in randomly sized chunks (including 1-byte
// chunks) and checks the decoded sequence is identical regardless of how the
// bytes arrived.
func TestChunkedDeliveryIsOrderIndependent(t *testing.T) {
	var full []byte
	var want []Packet
	for i := 0; i < 12; i++ {
		p := Packet{Type: uint32(i % 2), Payload: "payload-" + string(rune('A'+i))}
		full = append(full, CreatePacket(p.Type, p.Payload)...)
		want = append(want, p)
	}

	rng := rand.New(rand.NewSource(42))
	for _, chunkSize := range []int{1, 1, 3, 7, len(full)} {
		var acc []byte
		var got []Packet
		pos := 0
		size := chunkSize
		for pos < len(full) {
			n := size
			if size == 1 {
				n = 1
			} else {
				n = 1 + rng.Intn(size)
			}
			if pos+n > len(full) {
				n = len(full) - pos
			}
			acc = append(acc, full[pos:pos+n]...)
			pos += n
			for {
				state := ClassifyFrame(acc)
				if state == Damaged {
					t.Fatalf("unexpected damaged frame")
				}
				if state != Ready {
					break
				}
				pkt, consumed, err := ExtractPacket(acc)
				if err != nil {
					t.Fatalf("extract: %v", err)
				}
				got = append(got, pkt)
				acc = acc[consumed:]
			}
		}
		if len(got) != len(want) {
			t.Fatalf("chunkSize=%d: got %d packets, want %d", chunkSize, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("chunkSize=%d packet %d: got %+v, want %+v", chunkSize, i, got[i], want[i])
			}
		}
	}
}

func TestClassifyFrameBadMagicIsDamaged(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0}
	if got := ClassifyFrame(buf); got != Damaged {
		t.Errorf("ClassifyFrame = %v, want Damaged", got)
	}
}

func TestClassifyFrameOversizeIsDamaged(t *testing.T) {
	buf := CreatePacket(0, "")
	// Patch the length field to exceed MaxPacketLen.
	buf[8] = 0xff
	buf[9] = 0xff
	buf[10] = 0xff
	buf[11] = 0x7f
	if got := ClassifyFrame(buf); got != Damaged {
		t.Errorf("ClassifyFrame = %v, want Damaged", got)
	}
}

func TestClassifyFrameShortBufferIsNotReady(t *testing.T) {
	full := CreatePacket(uint32(ScriptLog), "not yet complete")
	for n := 0; n < len(full); n++ {
		if got := ClassifyFrame(full[:n]); got != NotReady {
			t.Errorf("ClassifyFrame(%d bytes) = %v, want NotReady", n, got)
		}
	}
}
