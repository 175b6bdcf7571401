package link

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame(0x21, 0x0F, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{7, 0x21, 0x0F, 'h', 'e', 'l', 'l', 'o'}
	if !bytes.Equal(frame, want) {
		t.Errorf("got %X, want %X", frame, want)
	}

	f, err := DecodeFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if f.Dest != 0x21 || f.Src != 0x0F || string(f.Payload) != "hello" {
		t.Errorf("decoded %+v", f)
	}
}

func TestEncodeFrameSize(t *testing.T) {
	frame, err := EncodeFrame(1, 2, make([]byte, MaxPayload))
	if err != nil {
		t.Fatalf("max payload rejected: %v", err)
	}
	if frame[0] != 63 || len(frame) != 64 {
		t.Errorf("length byte %d, frame %d bytes", frame[0], len(frame))
	}
	if _, err := EncodeFrame(1, 2, make([]byte, MaxPayload+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("got %v, want ErrPayloadTooLarge", err)
	}
	empty, err := EncodeFrame(1, 2, nil)
	if err != nil || !bytes.Equal(empty, []byte{2, 1, 2}) {
		t.Errorf("empty payload: %X, %v", empty, err)
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", nil},
		{"header only partial", []byte{2, 1}},
		{"length below addresses", []byte{1, 1, 2}},
		{"length past buffer", []byte{9, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeFrame(tt.raw); !errors.Is(err, ErrMalformedFrame) {
				t.Errorf("got %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestDecodeFrameIgnoresTrailer(t *testing.T) {
	f, err := DecodeFrame([]byte{3, 0x21, 0x0F, 'x', 0x40, 0xA0})
	if err != nil {
		t.Fatal(err)
	}
	if string(f.Payload) != "x" {
		t.Errorf("payload %q", f.Payload)
	}
}

func TestParsePacket(t *testing.T) {
	p, err := parsePacket([]byte{4, 0x21, 0x0F, 'h', 'i', 0x40, 0xA0}, DefaultRSSIOffset)
	if err != nil {
		t.Fatal(err)
	}
	if p.Sender() != 0x0F || p.Receiver() != 0x21 {
		t.Errorf("addresses %s", p)
	}
	if p.RSSI() != -42 || p.LQI() != 0x20 || !p.CRCOK() {
		t.Errorf("quality %s", p)
	}
	if string(p.Payload()) != "hi" {
		t.Errorf("payload %q", p.Payload())
	}

	if _, err := parsePacket([]byte{4, 0x21, 0x0F, 'h', 'i', 0x40}, DefaultRSSIOffset); !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("missing status byte: got %v", err)
	}
}

func TestRSSIToDBm(t *testing.T) {
	tests := []struct {
		raw  byte
		want int
	}{
		{0x00, -74},
		{0xFF, -74},
		{0x40, -42},
		{0x7F, -11},
		{0x80, -138},
		{0xF0, -82},
	}
	for _, tt := range tests {
		if got := RSSIToDBm(tt.raw, DefaultRSSIOffset); got != tt.want {
			t.Errorf("RSSIToDBm(0x%02X) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestStatusByte(t *testing.T) {
	if LQI(0xA0) != 0x20 || !CRCOK(0xA0) {
		t.Error("0xA0 should be LQI 0x20 with CRC OK")
	}
	if LQI(0x7F) != 0x7F || CRCOK(0x7F) {
		t.Error("0x7F should be LQI 0x7F with CRC failed")
	}
}

func TestIsAckShape(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want bool
	}{
		{"bare", []byte{5, 0x0F, 0x21, 'A', 'c', 'k'}, true},
		{"with status", []byte{5, 0x0F, 0x21, 'A', 'c', 'k', 0x40, 0xA0}, true},
		{"odd length", []byte{5, 0x0F, 0x21, 'A', 'c', 'k', 0x40}, false},
		{"wrong length byte", []byte{6, 0x0F, 0x21, 'A', 'c', 'k'}, false},
		{"other payload", []byte{5, 0x0F, 0x21, 'a', 'c', 'k'}, false},
	}
	for _, tt := range tests {
		if got := isAckShape(tt.raw); got != tt.want {
			t.Errorf("%s: got %t, want %t", tt.name, got, tt.want)
		}
	}
}
