package config

import (
	"fmt"
	"time"

	"github.com/herlein/cc1101/pkg/link"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/sirupsen/logrus"
)

// Session holds the radio settings applied after initialisation
type Session struct {
	Address    uint8             `json:"address"`
	Channel    uint8             `json:"channel"`
	Mode       profiles.Mode     `json:"mode"`
	Band       profiles.Band     `json:"band"`
	Power      radio.OutputPower `json:"power"`
	CrystalHz  int               `json:"crystal_hz"`
	Retries    int               `json:"retries"`
	RSSIOffset int               `json:"rssi_offset"`

	// Datarate and Deviation override the mode table when non-zero
	Datarate  int `json:"datarate,omitempty"`
	Deviation int `json:"deviation,omitempty"`
}

// DefaultSession matches the engine's power-on configuration
func DefaultSession() Session {
	return Session{
		Address:    link.DefaultAddress,
		Channel:    0,
		Mode:       profiles.GFSK100k,
		Band:       profiles.Band868,
		Power:      radio.Moderate,
		CrystalHz:  profiles.CrystalHz,
		Retries:    3,
		RSSIOffset: link.DefaultRSSIOffset,
	}
}

// Validate checks the session against the supported tables and ranges
func (s Session) Validate() error {
	if _, err := profiles.ModeRegisters(s.Mode); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if _, err := profiles.BandRegisters(s.Band); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if s.Power > radio.ExtremelyWeak {
		return fmt.Errorf("power %d: %w", s.Power, ErrInvalidSession)
	}
	if s.CrystalHz <= 0 {
		return fmt.Errorf("crystal %dHz: %w", s.CrystalHz, ErrInvalidSession)
	}
	if s.Retries < 0 {
		return fmt.Errorf("retries %d: %w", s.Retries, ErrInvalidSession)
	}
	if s.Datarate != 0 && (s.Datarate < radio.MinDatarate || s.Datarate > radio.MaxDatarate) {
		return fmt.Errorf("%w: %w", ErrInvalidSession, radio.ErrDatarateOutOfRange)
	}
	if s.Deviation < 0 {
		return fmt.Errorf("deviation %dHz: %w", s.Deviation, ErrInvalidSession)
	}
	return nil
}

// Apply programs the datarate and deviation overrides, if any
func (s Session) Apply(c *radio.Configurator) error {
	if s.Datarate != 0 {
		if err := c.SetDatarate(s.Datarate, s.CrystalHz); err != nil {
			return err
		}
	}
	if s.Deviation != 0 {
		if err := c.SetDeviation(s.Deviation, s.CrystalHz); err != nil {
			return err
		}
	}
	return nil
}

// Duration is a time.Duration that reads and writes as "250ms" in JSON
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Timing is the JSON form of every hardware wait
type Timing struct {
	AckWindow        Duration `json:"ack_window"`
	PacketPoll       Duration `json:"packet_poll"`
	StatePoll        Duration `json:"state_poll"`
	StateTimeout     Duration `json:"state_timeout"`
	SyncClearTimeout Duration `json:"sync_clear_timeout"`
	ResetLow         Duration `json:"reset_low"`
	ResetHigh        Duration `json:"reset_high"`
	ResetSettle      Duration `json:"reset_settle"`
	FlushSettle      Duration `json:"flush_settle"`
	FIFOSettle       Duration `json:"fifo_settle"`
	IdleSettle       Duration `json:"idle_settle"`
}

// DefaultTiming mirrors link.DefaultTiming
func DefaultTiming() Timing {
	return TimingFrom(link.DefaultTiming())
}

// TimingFrom converts engine timings to their JSON form
func TimingFrom(t link.Timing) Timing {
	return Timing{
		AckWindow:        Duration(t.AckWindow),
		PacketPoll:       Duration(t.PacketPoll),
		StatePoll:        Duration(t.Radio.PollInterval),
		StateTimeout:     Duration(t.Radio.StateTimeout),
		SyncClearTimeout: Duration(t.SyncClearTimeout),
		ResetLow:         Duration(t.Radio.ResetLow),
		ResetHigh:        Duration(t.Radio.ResetHigh),
		ResetSettle:      Duration(t.Radio.ResetSettle),
		FlushSettle:      Duration(t.FlushSettle),
		FIFOSettle:       Duration(t.FIFOSettle),
		IdleSettle:       Duration(t.Radio.IdleSettle),
	}
}

// Link converts to engine timings
func (t Timing) Link() link.Timing {
	return link.Timing{
		Radio: radio.Timing{
			PollInterval: time.Duration(t.StatePoll),
			StateTimeout: time.Duration(t.StateTimeout),
			IdleSettle:   time.Duration(t.IdleSettle),
			ResetLow:     time.Duration(t.ResetLow),
			ResetHigh:    time.Duration(t.ResetHigh),
			ResetSettle:  time.Duration(t.ResetSettle),
		},
		AckWindow:        time.Duration(t.AckWindow),
		PacketPoll:       time.Duration(t.PacketPoll),
		SyncClearTimeout: time.Duration(t.SyncClearTimeout),
		FlushSettle:      time.Duration(t.FlushSettle),
		FIFOSettle:       time.Duration(t.FIFOSettle),
	}
}

// Validate requires positive polls and timeouts; settle times may be zero
func (t Timing) Validate() error {
	positive := []struct {
		name string
		d    Duration
	}{
		{"ack_window", t.AckWindow},
		{"packet_poll", t.PacketPoll},
		{"state_poll", t.StatePoll},
		{"state_timeout", t.StateTimeout},
		{"sync_clear_timeout", t.SyncClearTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%s=%v: %w", p.name, time.Duration(p.d), ErrInvalidTiming)
		}
	}
	settle := []struct {
		name string
		d    Duration
	}{
		{"reset_low", t.ResetLow},
		{"reset_high", t.ResetHigh},
		{"reset_settle", t.ResetSettle},
		{"flush_settle", t.FlushSettle},
		{"fifo_settle", t.FIFOSettle},
		{"idle_settle", t.IdleSettle},
	}
	for _, s := range settle {
		if s.d < 0 {
			return fmt.Errorf("%s=%v: %w", s.name, time.Duration(s.d), ErrInvalidTiming)
		}
	}
	return nil
}

// Settings is the full contents of a configuration file
type Settings struct {
	Connection Connection `json:"connection"`
	Session    Session    `json:"session"`
	Timing     Timing     `json:"timing"`
}

// DefaultSettings returns Bus0 wiring with the power-on session
func DefaultSettings() *Settings {
	return &Settings{
		Connection: DefaultConnection(),
		Session:    DefaultSession(),
		Timing:     DefaultTiming(),
	}
}

// Validate checks every section
func (s *Settings) Validate() error {
	if err := s.Connection.Validate(); err != nil {
		return fmt.Errorf("connection: %w", err)
	}
	if err := s.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := s.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	return nil
}

// EngineOptions builds link.Options from the settings
func (s *Settings) EngineOptions(log logrus.FieldLogger) link.Options {
	return link.Options{
		Logger:     log,
		GDO2Pin:    s.Connection.GDO2,
		CSPin:      s.Connection.CSPin(),
		GDO2Config: registers.IOCFGSyncWord,
		Address:    s.Session.Address,
		Channel:    s.Session.Channel,
		Mode:       s.Session.Mode,
		Band:       s.Session.Band,
		Power:      s.Session.Power,
		RSSIOffset: s.Session.RSSIOffset,
		Timing:     s.Timing.Link(),
	}
}
