package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
)

func TestDumpRestoresReceive(t *testing.T) {
	chip := chipsim.New("dut", 22)
	chip.SetState(registers.StateRX)

	cfg, err := DumpFromDevice(context.Background(), chip, "dut", profiles.CrystalHz)
	if err != nil {
		t.Fatalf("DumpFromDevice: %v", err)
	}
	if cfg.PartNum != registers.PartNumCC1101 || cfg.Version != registers.VersionCC1101 {
		t.Errorf("part %02X version %02X", cfg.PartNum, cfg.Version)
	}
	if got := cfg.GetRadioStateString(); got != "IDLE" {
		t.Errorf("snapshot taken in %s, want IDLE", got)
	}
	if chip.State() != registers.StateRX {
		t.Errorf("chip left in %v, want RX", chip.State())
	}
	if cfg.Registers.IOCFG2 != 0x29 {
		t.Errorf("IOCFG2 = %02X, want reset value 0x29", cfg.Registers.IOCFG2)
	}
}

func TestApplyRoundTrip(t *testing.T) {
	src := chipsim.New("src", 22)
	c := radio.NewConfigurator(src)
	if err := c.SetMode(profiles.GFSK38_4k); err != nil {
		t.Fatal(err)
	}
	if err := c.SetBand(profiles.Band433); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	cfg, err := DumpFromDevice(ctx, src, "src", profiles.CrystalHz)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "nested", "src.json")
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	dst := chipsim.New("dst", 22)
	if err := ApplyToDevice(ctx, dst, loaded); err != nil {
		t.Fatalf("ApplyToDevice: %v", err)
	}
	for addr := byte(0); addr < registers.NumConfigRegisters; addr++ {
		if got, want := dst.Register(addr), src.Register(addr); got != want {
			t.Errorf("register 0x%02X = %02X, want %02X", addr, got, want)
		}
	}
	if dst.PATable() != src.PATable() {
		t.Errorf("PA table %X, want %X", dst.PATable(), src.PATable())
	}

	if mhz := loaded.GetFrequencyMHz(); mhz < 433 || mhz > 434 {
		t.Errorf("frequency %.3f MHz, want 433.x", mhz)
	}
	if got := loaded.GetModulationString(); got != "GFSK" {
		t.Errorf("modulation %s, want GFSK", got)
	}
	baud, _ := profiles.NominalBaud(profiles.GFSK38_4k)
	if got := loaded.GetDatarate(); got < float64(baud)*0.99 || got > float64(baud)*1.01 {
		t.Errorf("datarate %.0f, want about %.0f", got, baud)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := DefaultSettings()
	s.Session.Mode = profiles.MSK250k
	s.Session.Band = profiles.Band915
	s.Session.Power = radio.Weak
	s.Session.Address = 0x21

	path := filepath.Join(t.TempDir(), "gw.settings.json")
	if err := SaveSettings(s, path); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.Session != s.Session {
		t.Errorf("session %+v, want %+v", got.Session, s.Session)
	}
	if got.Timing != s.Timing {
		t.Errorf("timing %+v, want %+v", got.Timing, s.Timing)
	}

	opts := got.EngineOptions(nil)
	if opts.Mode != profiles.MSK250k || opts.Band != profiles.Band915 || opts.Address != 0x21 {
		t.Errorf("options %+v", opts)
	}
	if opts.CSPin != radio.NoPin {
		t.Errorf("CSPin = %d, want NoPin without DriveCS", opts.CSPin)
	}
	if opts.Timing.AckWindow != got.Timing.Link().AckWindow {
		t.Errorf("ack window not carried over")
	}
}

func TestLoadSettingsHandEdited(t *testing.T) {
	const text = `{
	// node in the shed
	"session": {
		"address": 33,
		"mode": "msk-250k",
		"band": "433" // PA table follows the band
	},
	/* faster retries on a short hop */
	"timing": {"ack_window": "100ms"}
}`
	path := filepath.Join(t.TempDir(), "shed.settings.json")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.Session.Address != 33 || got.Session.Mode != profiles.MSK250k || got.Session.Band != profiles.Band433 {
		t.Errorf("session %+v", got.Session)
	}
	if time.Duration(got.Timing.AckWindow) != 100*time.Millisecond {
		t.Errorf("ack window %v", time.Duration(got.Timing.AckWindow))
	}
	// untouched sections keep their defaults
	def := DefaultSettings()
	if got.Connection != def.Connection || got.Session.Retries != def.Session.Retries {
		t.Errorf("defaults lost: %+v", got)
	}
	if got.Timing.StateTimeout != def.Timing.StateTimeout {
		t.Errorf("state timeout %v", got.Timing.StateTimeout)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Settings)
		want   error
	}{
		{"defaults", func(s *Settings) {}, nil},
		{"duplicate pin", func(s *Settings) { s.Connection.GDO2 = s.Connection.CS }, ErrInvalidPin},
		{"negative pin", func(s *Settings) { s.Connection.SO = -1 }, ErrInvalidPin},
		{"negative bus", func(s *Settings) { s.Connection.Bus = -1 }, ErrInvalidBus},
		{"unknown gpio driver", func(s *Settings) { s.Connection.GPIO = "sysfs" }, ErrUnknownDriver},
		{"unknown mode", func(s *Settings) { s.Session.Mode = profiles.Mode(42) }, profiles.ErrUnsupportedMode},
		{"unknown band", func(s *Settings) { s.Session.Band = profiles.Band(9) }, profiles.ErrUnsupportedBand},
		{"negative retries", func(s *Settings) { s.Session.Retries = -1 }, ErrInvalidSession},
		{"datarate too low", func(s *Settings) { s.Session.Datarate = 100 }, radio.ErrDatarateOutOfRange},
		{"zero ack window", func(s *Settings) { s.Timing.AckWindow = 0 }, ErrInvalidTiming},
		{"negative settle", func(s *Settings) { s.Timing.FlushSettle = -1 }, ErrInvalidTiming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewConnection(t *testing.T) {
	c, err := NewConnection(Bus1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if c.CS != 18 || c.SCLK != 21 || c.GDO2 != 5 {
		t.Errorf("bus1 = %+v", c)
	}
	if c.Port() != "SPI1.0" {
		t.Errorf("port %q", c.Port())
	}
	if _, err := NewConnection(BusPreset(7), 5); !errors.Is(err, ErrInvalidBus) {
		t.Errorf("got %v, want ErrInvalidBus", err)
	}
}
