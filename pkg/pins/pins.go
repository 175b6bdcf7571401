// Package pins provides the GPIO lines the radio needs besides the SPI bus:
// the GDO2 packet indicator and, when the host drives it, chip select.
package pins

import "errors"

// Direction selects whether a line is read or driven
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

var (
	// ErrPinNotOpen indicates a line was used before OpenPin
	ErrPinNotOpen = errors.New("pin not open")

	// ErrPinNotFound indicates the host has no line with that number
	ErrPinNotFound = errors.New("pin not found")

	// ErrWrongDirection indicates a write to an input or a read mode mismatch
	ErrWrongDirection = errors.New("pin opened with wrong direction")
)

// Controller opens and drives GPIO lines by BCM number
type Controller interface {
	OpenPin(pin int, dir Direction) error
	ReadLine(pin int) (bool, error)
	WriteLine(pin int, high bool) error
	IsPinOpen(pin int) bool
	Close() error
}
