package link

import (
	"bytes"
	"fmt"

	"github.com/herlein/cc1101/pkg/registers"
)

// Broadcast is the destination every node accepts. It is never a valid
// unicast identity.
const Broadcast = 0x00

// DefaultAddress is assigned at initialisation unless configured
const DefaultAddress = 0x0F

// Frame layout: [length][dest][src][payload...], length counting the two
// address bytes and the payload. The chip appends [rssi][lqi] on receive.
const (
	headerLen  = 3
	addrLen    = 2
	statusLen  = 2
	MaxPayload = registers.FIFOSize - 1 - addrLen
)

// AckPayload is the marker carried by acknowledgement frames
var AckPayload = []byte("Ack")

// ackFrameLen is the on-air size of an acknowledgement
const ackFrameLen = headerLen + 3

// Frame is a decoded over-the-air frame without the status trailer
type Frame struct {
	Dest    uint8
	Src     uint8
	Payload []byte
}

// EncodeFrame builds the bytes written to the TX FIFO
func EncodeFrame(dest, src uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%d bytes, max %d: %w", len(payload), MaxPayload, ErrPayloadTooLarge)
	}
	frame := make([]byte, headerLen+len(payload))
	frame[0] = byte(len(payload) + addrLen)
	frame[1] = dest
	frame[2] = src
	copy(frame[headerLen:], payload)
	return frame, nil
}

// DecodeFrame parses a frame, ignoring any bytes past its length
func DecodeFrame(raw []byte) (Frame, error) {
	if len(raw) < headerLen {
		return Frame{}, fmt.Errorf("%d bytes: %w", len(raw), ErrMalformedFrame)
	}
	n := int(raw[0])
	if n < addrLen || n+1 > len(raw) {
		return Frame{}, fmt.Errorf("length %d in %d bytes: %w", n, len(raw), ErrMalformedFrame)
	}
	return Frame{
		Dest:    raw[1],
		Src:     raw[2],
		Payload: append([]byte(nil), raw[headerLen:n+1]...),
	}, nil
}

// isAckShape reports whether raw is an acknowledgement frame, with or
// without the status trailer
func isAckShape(raw []byte) bool {
	if len(raw) != ackFrameLen && len(raw) != ackFrameLen+statusLen {
		return false
	}
	return int(raw[0]) == ackFrameLen-1 && bytes.Equal(raw[headerLen:ackFrameLen], AckPayload)
}
