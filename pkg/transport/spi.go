package transport

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// DefaultSPIClock is well under the 6.5MHz burst limit of the CC1101
const DefaultSPIClock = 5 * physic.MegaHertz

// SPI is a Transport backed by a host SPI port. The kernel driver owns chip
// select, so each Tx is one CS framed transaction.
type SPI struct {
	*Bus

	port spi.PortCloser
	conn spi.Conn
	mu   sync.Mutex
}

// OpenSPI initializes the host drivers and connects to the named port, for
// example "/dev/spidev0.0" or "SPI0.0". An empty name picks the first port.
func OpenSPI(name string, clock physic.Frequency) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init failed: %w", err)
	}

	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", name, err)
	}

	if clock == 0 {
		clock = DefaultSPIClock
	}
	conn, err := port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to configure SPI port %q: %w", name, err)
	}

	s := &SPI{port: port, conn: conn}
	s.Bus = New(s)
	return s, nil
}

// Tx performs one full-duplex exchange on the port
func (s *SPI) Tx(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return ErrClosed
	}
	if r == nil {
		r = make([]byte, len(w))
	}
	return s.conn.Tx(w, r)
}

// Close releases the SPI port
func (s *SPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.conn = nil
	return err
}
