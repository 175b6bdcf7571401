package radio

import "errors"

var (
	// ErrStateTimeout indicates MARCSTATE never reported the requested state
	ErrStateTimeout = errors.New("timed out waiting for radio state")

	// ErrDatarateOutOfRange indicates a baud rate outside 600..500000
	ErrDatarateOutOfRange = errors.New("datarate out of range")

	// ErrInvalidPreamble indicates a preamble length with no register encoding
	ErrInvalidPreamble = errors.New("invalid preamble length")

	// ErrInvalidOutputPower indicates an OutputPower outside 0..7
	ErrInvalidOutputPower = errors.New("invalid output power")

	// ErrInvalidPATable indicates a PA table that is empty or longer than 8
	ErrInvalidPATable = errors.New("invalid PA table")
)
