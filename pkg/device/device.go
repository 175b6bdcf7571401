// Package device opens a CC1101 from settings: the register bus, the GPIO
// lines that go with it, and optionally a link engine on top.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/herlein/cc1101/pkg/chipsim"
	"github.com/herlein/cc1101/pkg/config"
	"github.com/herlein/cc1101/pkg/link"
	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// Backend names a way of reaching the chip
type Backend string

const (
	// SPI is a host SPI port with GPIO for GDO2
	SPI Backend = "spi"
	// CH341 is a CH341A USB-to-SPI bridge; GDO2 is replaced by RXBYTES polling
	CH341 Backend = "ch341"
	// Sim is a lone in-memory chip
	Sim Backend = "sim"
)

// ErrUnknownBackend indicates a backend name ParseBackend does not know
var ErrUnknownBackend = errors.New("unknown backend")

// ParseBackend accepts "spi", "ch341" or "sim"
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(s)); b {
	case SPI, CH341, Sim:
		return b, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownBackend)
}

// BackendFlagUsage returns usage text for a -b flag
func BackendFlagUsage() string {
	return `Backend. One of:
    "spi"   - host SPI port and GPIO from the settings connection
    "ch341" - CH341A USB-to-SPI bridge selected with -d
    "sim"   - in-memory chip, for dry runs`
}

// Handle is an opened chip
type Handle struct {
	Bus  transport.Transport
	GPIO pins.Controller
	Name string

	// GDO2Config is the IOCFG2 value that matches how GPIO reads GDO2
	GDO2Config uint8
	// CSPin is the CS line the GPIO controller can drive, or radio.NoPin
	CSPin int
}

// Open connects to the chip. selector is only used by the CH341 backend.
func Open(backend Backend, conn config.Connection, selector string) (*Handle, error) {
	switch backend {
	case SPI:
		return openSPI(conn)
	case CH341:
		bridge, err := transport.OpenCH341(transport.Selector(selector))
		if err != nil {
			return nil, err
		}
		return &Handle{
			Bus:        bridge,
			GPIO:       pins.NewStatusLine(bridge),
			Name:       bridge.String(),
			GDO2Config: registers.IOCFGPacketCRCOK,
			CSPin:      radio.NoPin,
		}, nil
	case Sim:
		chip := chipsim.New("sim", conn.GDO2)
		return &Handle{
			Bus:        chip,
			GPIO:       chip,
			Name:       chip.String(),
			GDO2Config: registers.IOCFGSyncWord,
			CSPin:      conn.CSPin(),
		}, nil
	}
	return nil, fmt.Errorf("%q: %w", backend, ErrUnknownBackend)
}

func openSPI(conn config.Connection) (*Handle, error) {
	var gpio pins.Controller
	if conn.GPIO == config.GPIOGpiod {
		gpio = pins.NewGpiod(conn.GPIOChip)
	} else {
		p, err := pins.NewPeriph()
		if err != nil {
			return nil, err
		}
		gpio = p
	}

	bus, err := transport.OpenSPI(conn.Port(), physic.Frequency(conn.SPIClockHz)*physic.Hertz)
	if err != nil {
		gpio.Close()
		return nil, err
	}
	return &Handle{
		Bus:        bus,
		GPIO:       gpio,
		Name:       conn.Port(),
		GDO2Config: registers.IOCFGSyncWord,
		CSPin:      conn.CSPin(),
	}, nil
}

// Close releases the GPIO lines and the bus
func (h *Handle) Close() error {
	var errs []error
	if err := h.GPIO.Close(); err != nil {
		errs = append(errs, err)
	}
	if c, ok := h.Bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenEngine opens the chip and starts a link engine configured from
// settings. The engine owns the handle; close the engine, not the handle.
func OpenEngine(ctx context.Context, backend Backend, settings *config.Settings, selector string, log logrus.FieldLogger) (*link.Engine, *Handle, error) {
	h, err := Open(backend, settings.Connection, selector)
	if err != nil {
		return nil, nil, err
	}

	opts := settings.EngineOptions(log)
	opts.GDO2Config = h.GDO2Config
	opts.CSPin = h.CSPin

	e, err := link.New(ctx, h.Bus, h.GPIO, opts)
	if err != nil {
		h.Close()
		return nil, nil, err
	}
	if err := e.Configure(settings.Session.Apply); err != nil {
		e.Close()
		return nil, nil, fmt.Errorf("failed to apply session: %w", err)
	}
	return e, h, nil
}
