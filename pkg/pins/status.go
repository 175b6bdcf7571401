package pins

import (
	"fmt"
	"sync"

	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
)

// StatusLine stands in for a GDO2 wire on hosts without GPIO, such as a PC
// with a USB bridge. Its single input line reads the GDO2 level that the
// chip mirrors in PKTSTATUS. Pair it with IOCFG2 set to
// registers.IOCFGPacketCRCOK so the line only rises once a whole frame
// has arrived. Output lines are not available.
type StatusLine struct {
	t transport.Transport

	mu   sync.Mutex
	open map[int]bool
}

// NewStatusLine returns a controller reading PKTSTATUS through t
func NewStatusLine(t transport.Transport) *StatusLine {
	return &StatusLine{t: t, open: make(map[int]bool)}
}

func (s *StatusLine) OpenPin(pin int, dir Direction) error {
	if dir != Input {
		return fmt.Errorf("status line %d as %s: %w", pin, dir, ErrPinNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[pin] = true
	return nil
}

func (s *StatusLine) ReadLine(pin int) (bool, error) {
	if !s.IsPinOpen(pin) {
		return false, fmt.Errorf("status line %d: %w", pin, ErrPinNotOpen)
	}
	v, err := s.t.ReadRegister(registers.RegPKTSTATUS)
	if err != nil {
		return false, err
	}
	return v&registers.PKTStatusGDO2 != 0, nil
}

func (s *StatusLine) WriteLine(pin int, high bool) error {
	return fmt.Errorf("status line %d: %w", pin, ErrWrongDirection)
}

func (s *StatusLine) IsPinOpen(pin int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[pin]
}

// Close forgets the opened lines; the transport is not closed
func (s *StatusLine) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = make(map[int]bool)
	return nil
}
