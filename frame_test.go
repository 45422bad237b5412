package xproto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeFrameRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	frame := EncodeFrame(TypeOk, payload)

	d := NewDecoder(0)
	d.Feed(frame)

	typeID, got, ok, err := d.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected a complete frame")
	}
	if typeID != TypeOk {
		t.Errorf("typeID = %d, want %d", typeID, TypeOk)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", d.Pending())
	}
}

func TestDecoderNeedsMoreBytes(t *testing.T) {
	frame := EncodeFrame(TypeOk, []byte("payload"))
	d := NewDecoder(0)

	// Feed everything but the last two bytes.
	d.Feed(frame[:len(frame)-2])
	_, _, ok, err := d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false with an incomplete frame")
	}

	d.Feed(frame[len(frame)-2:])
	_, _, ok, err = d.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected the frame to complete once the remaining bytes arrive")
	}
}

func TestDecoderZeroLengthIsMalformed(t *testing.T) {
	buf := make([]byte, 4) // declared length 0
	d := NewDecoder(0)
	d.Feed(buf)

	_, _, ok, err := d.Next()
	if ok {
		t.Fatal("expected ok=false for a malformed frame")
	}
	var mfe *MalformedFrameError
	if !errors.As(err, &mfe) {
		t.Fatalf("expected *MalformedFrameError, got %T (%v)", err, err)
	}
}

func TestDecoderFrameTooLarge(t *testing.T) {
	d := NewDecoder(8)
	frame := EncodeFrame(TypeOk, make([]byte, 16))
	d.Feed(frame)

	_, _, ok, err := d.Next()
	if ok {
		t.Fatal("expected ok=false for an oversized frame")
	}
	var tle *FrameTooLargeError
	if !errors.As(err, &tle) {
		t.Fatalf("expected *FrameTooLargeError, got %T (%v)", err, err)
	}
	if tle.Max != 8 {
		t.Errorf("Max = %d, want 8", tle.Max)
	}
}

func TestDecoderMultipleFramesInOneFeed(t *testing.T) {
	d := NewDecoder(0)
	d.Feed(EncodeFrame(TypeOk, []byte("a")))
	d.Feed(EncodeFrame(TypeError, []byte("b")))

	typeID1, payload1, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("first Next: ok=%v err=%v", ok, err)
	}
	if typeID1 != TypeOk || string(payload1) != "a" {
		t.Errorf("first frame = (%d, %q)", typeID1, payload1)
	}

	typeID2, payload2, ok, err := d.Next()
	if err != nil || !ok {
		t.Fatalf("second Next: ok=%v err=%v", ok, err)
	}
	if typeID2 != TypeError || string(payload2) != "b" {
		t.Errorf("second frame = (%d, %q)", typeID2, payload2)
	}
}

func TestDecoderDefaultMaxFrameSize(t *testing.T) {
	d := NewDecoder(0)
	if d.max != MaxFrameSize {
		t.Errorf("max = %d, want %d", d.max, MaxFrameSize)
	}
}
