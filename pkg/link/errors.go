package link

import "errors"

var (
	// ErrPayloadTooLarge indicates a frame that would not fit the TX FIFO
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrMalformedFrame indicates a received buffer shorter than its length byte claims
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrSyncTimeout indicates GDO2 stayed asserted after a sync word
	ErrSyncTimeout = errors.New("timed out waiting for end of packet")

	// ErrClosed indicates use of an engine after Close
	ErrClosed = errors.New("engine closed")
)
