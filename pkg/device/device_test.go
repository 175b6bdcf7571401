package device

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/sirupsen/logrus"
)

func TestParseBackend(t *testing.T) {
	for _, s := range []string{"spi", "CH341", "sim"} {
		if _, err := ParseBackend(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	if _, err := ParseBackend("uart"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("got %v, want ErrUnknownBackend", err)
	}
}

func TestOpenEngineSim(t *testing.T) {
	s := config.DefaultSettings()
	s.Session.Band = profiles.Band433
	s.Session.Channel = 4
	s.Session.Datarate = 38400
	s.Session.Deviation = 20000
	s.Timing.ResetLow = 0
	s.Timing.ResetHigh = 0
	s.Timing.ResetSettle = 0
	s.Timing.FIFOSettle = 0
	s.Timing.IdleSettle = 0
	s.Timing.StateTimeout = config.Duration(50 * time.Millisecond)

	log := logrus.New()
	log.SetOutput(io.Discard)

	e, h, err := OpenEngine(context.Background(), Sim, s, "", log)
	if err != nil {
		t.Fatalf("OpenEngine: %v", err)
	}
	defer e.Close()

	chip := h.Bus.(*chipsim.Chip)
	if e.Band() != profiles.Band433 || e.Channel() != 4 {
		t.Errorf("band %v channel %d", e.Band(), e.Channel())
	}
	if chip.Register(registers.RegMDMCFG3) != 131 {
		t.Errorf("datarate override not applied: MDMCFG3 = %d", chip.Register(registers.RegMDMCFG3))
	}
	if chip.Register(registers.RegIOCFG2) != registers.IOCFGSyncWord {
		t.Errorf("IOCFG2 = %02X", chip.Register(registers.RegIOCFG2))
	}
	if chip.State() != registers.StateRX {
		t.Errorf("state %v, want RX", chip.State())
	}
}
