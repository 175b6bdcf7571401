// Package transport provides register-level access to a CC1101 over a serial
// bus. Callers see five primitives (strobe, single read/write, burst
// read/write); the access-mode bits are added here before transmission.
package transport

import (
	"errors"
	"fmt"
)

// Header byte access-mode bits
const (
	WriteSingle = 0x00
	WriteBurst  = 0x40
	ReadSingle  = 0x80
	ReadBurst   = 0xC0
)

var (
	// ErrShortTransfer indicates the bus returned fewer bytes than clocked out
	ErrShortTransfer = errors.New("short bus transfer")

	// ErrDeviceNotFound indicates no matching bus adapter was found
	ErrDeviceNotFound = errors.New("device not found")

	// ErrClosed indicates the transport has already been released
	ErrClosed = errors.New("transport closed")
)

// Transport is the register access capability the radio packages depend on.
type Transport interface {
	Strobe(cmd byte) error
	ReadRegister(addr byte) (byte, error)
	WriteRegister(addr, value byte) error
	ReadBurst(addr byte, count int) ([]byte, error)
	WriteBurst(addr byte, data []byte) error
}

// Duplex is a single chip-select framed full-duplex exchange. r may be nil
// when the caller does not need the clocked-in bytes.
type Duplex interface {
	Tx(w, r []byte) error
}

// Bus implements Transport on top of any Duplex.
type Bus struct {
	d Duplex
}

func (b *Bus) Strobe(cmd byte) error {
	if err := b.d.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("strobe 0x%02X failed: %w", cmd, err)
	}
	return nil
}

func (b *Bus) ReadRegister(addr byte) (byte, error) {
	w := []byte{addr | ReadSingle, 0x00}
	r := make([]byte, len(w))
	if err := b.d.Tx(w, r); err != nil {
		return 0, fmt.Errorf("read 0x%02X failed: %w", addr, err)
	}
	return r[1], nil
}

func (b *Bus) WriteRegister(addr, value byte) error {
	if err := b.d.Tx([]byte{addr | WriteSingle, value}, nil); err != nil {
		return fmt.Errorf("write 0x%02X failed: %w", addr, err)
	}
	return nil
}

func (b *Bus) ReadBurst(addr byte, count int) ([]byte, error) {
	if count <= 0 {
		return nil, nil
	}
	w := make([]byte, count+1)
	w[0] = addr | ReadBurst
	r := make([]byte, len(w))
	if err := b.d.Tx(w, r); err != nil {
		return nil, fmt.Errorf("burst read 0x%02X (%d bytes) failed: %w", addr, count, err)
	}
	return r[1:], nil
}

func (b *Bus) WriteBurst(addr byte, data []byte) error {
	w := make([]byte, 1+len(data))
	w[0] = addr | WriteBurst
	copy(w[1:], data)
	if err := b.d.Tx(w, nil); err != nil {
		return fmt.Errorf("burst write 0x%02X (%d bytes) failed: %w", addr, len(data), err)
	}
	return nil
}

// New wraps a Duplex so it can be used as a Transport.
func New(d Duplex) *Bus {
	return &Bus{d: d}
}
