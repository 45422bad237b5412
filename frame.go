package xproto

import "encoding/binary"

// MaxFrameSize is the default ceiling on a single frame's declared length.
// A frame declaring more than this is rejected with FrameTooLargeError as
// soon as its 4-byte length header is buffered, without waiting for its
// payload.
const MaxFrameSize uint32 = 64 * 1024 * 1024

// EncodeFrame renders one message as wire bytes: a 4-byte little-endian
// length (counting the type byte and payload, excluding the length field
// itself) followed by the type byte and payload — mirroring the header
// layout the teacher already hand-rolls for MySQL packets in
// proxy/mysql.go and pool/pool.go, but with a single trailing type byte
// instead of a leading sequence number.
func EncodeFrame(typeID byte, payload []byte) []byte {
	l := uint32(1 + len(payload))
	buf := make([]byte, 4+len(payload)+1)
	binary.LittleEndian.PutUint32(buf[0:4], l)
	buf[4] = typeID
	copy(buf[5:], payload)
	return buf
}

// Decoder accumulates bytes from a stream and extracts complete frames.
// It is pure and synchronous: Feed never blocks and Next never performs
// I/O, matching spec.md §4.1 ("no I/O, no state beyond a parser buffer").
type Decoder struct {
	buf []byte
	max uint32
}

// NewDecoder returns a Decoder enforcing the given maximum frame size. A
// zero maxFrameSize means MaxFrameSize.
func NewDecoder(maxFrameSize uint32) *Decoder {
	if maxFrameSize == 0 {
		maxFrameSize = MaxFrameSize
	}
	return &Decoder{max: maxFrameSize}
}

// Feed appends newly read bytes to the decode buffer.
func (d *Decoder) Feed(b []byte) {
	d.buf = append(d.buf, b...)
}

// Next extracts one complete frame from the buffer, if available. It
// returns ok=false (with a nil error) when more bytes are needed. A
// declared length of zero or one exceeding the configured maximum is a
// terminal decode error — the caller should treat the Decoder (and its
// Connection) as poisoned.
func (d *Decoder) Next() (typeID byte, payload []byte, ok bool, err error) {
	if len(d.buf) < 4 {
		return 0, nil, false, nil
	}

	l := binary.LittleEndian.Uint32(d.buf[0:4])
	if l == 0 {
		return 0, nil, false, &MalformedFrameError{Reason: "declared length is zero"}
	}
	if l > d.max {
		return 0, nil, false, &FrameTooLargeError{Declared: l, Max: d.max}
	}

	total := 4 + int(l)
	if len(d.buf) < total {
		return 0, nil, false, nil
	}

	typeID = d.buf[4]
	payload = append([]byte(nil), d.buf[5:total]...)
	d.buf = d.buf[total:]
	return typeID, payload, true, nil
}

// Pending reports how many bytes are buffered but not yet a complete
// frame — used only for diagnostics/tests.
func (d *Decoder) Pending() int { return len(d.buf) }
