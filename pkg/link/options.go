package link

import (
	"time"

	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/sirupsen/logrus"
)

// Timing holds every wait the engine performs
type Timing struct {
	Radio radio.Timing

	// AckWindow is how long one send attempt waits for an acknowledgement
	AckWindow time.Duration
	// PacketPoll is the pause between GDO2 reads
	PacketPoll time.Duration
	// SyncClearTimeout bounds the wait for GDO2 to fall after a sync word
	SyncClearTimeout time.Duration
	// FlushSettle is slept after flushing the RX FIFO
	FlushSettle time.Duration
	// FIFOSettle is slept after each FIFO flush during initialisation
	FIFOSettle time.Duration
}

// DefaultTiming returns the hardware timings
func DefaultTiming() Timing {
	return Timing{
		Radio:            radio.DefaultTiming(),
		AckWindow:        250 * time.Millisecond,
		PacketPoll:       5 * time.Millisecond,
		SyncClearTimeout: 100 * time.Millisecond,
		FlushSettle:      50 * time.Millisecond,
		FIFOSettle:       50 * time.Millisecond,
	}
}

// Options configures an Engine. Start from DefaultOptions.
type Options struct {
	Logger logrus.FieldLogger

	// GDO2Pin is the input carrying the packet indicator
	GDO2Pin int
	// CSPin is driven for the reset pulse, or radio.NoPin when the SPI
	// driver owns chip select
	CSPin int
	// GDO2Config is written to IOCFG2 during initialisation
	GDO2Config uint8

	Address uint8
	Channel uint8
	Mode    profiles.Mode
	Band    profiles.Band
	Power   radio.OutputPower

	// RSSIOffset is subtracted from the RSSI reading; see DefaultRSSIOffset
	RSSIOffset int

	Timing Timing
}

// DefaultOptions returns the power-on configuration: GFSK 100kBaud at
// 868MHz, channel 0, moderate power, address 0x0F
func DefaultOptions() Options {
	return Options{
		GDO2Pin:    22,
		CSPin:      radio.NoPin,
		GDO2Config: registers.IOCFGSyncWord,
		Address:    DefaultAddress,
		Channel:    0,
		Mode:       profiles.GFSK100k,
		Band:       profiles.Band868,
		Power:      radio.Moderate,
		RSSIOffset: DefaultRSSIOffset,
		Timing:     DefaultTiming(),
	}
}

// pinsOpen opens the engine's lines unless already open
func (o Options) pinsOpen(gpio pins.Controller) error {
	if !gpio.IsPinOpen(o.GDO2Pin) {
		if err := gpio.OpenPin(o.GDO2Pin, pins.Input); err != nil {
			return err
		}
	}
	if o.CSPin != radio.NoPin && !gpio.IsPinOpen(o.CSPin) {
		if err := gpio.OpenPin(o.CSPin, pins.Output); err != nil {
			return err
		}
	}
	return nil
}
