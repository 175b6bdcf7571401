package config

import (
	"fmt"

	"github.com/herlein/cc1101/pkg/radio"
)

// BusPreset names a standard Raspberry Pi SPI wiring
type BusPreset int

const (
	Bus0 BusPreset = iota
	Bus1
)

// DefaultGDO2Pin is the GDO2 input used with the bus presets
const DefaultGDO2Pin = 22

// Connection describes how the chip is wired: SPI bus, the four SPI pins and
// GDO2, all BCM numbered
type Connection struct {
	Bus  int `json:"bus"`
	SI   int `json:"si"`
	SO   int `json:"so"`
	CS   int `json:"cs"`
	SCLK int `json:"sclk"`
	GDO2 int `json:"gdo2"`

	// SPIPort overrides the periph port name derived from Bus
	SPIPort string `json:"spi_port,omitempty"`
	// SPIClockHz is the SPI clock; zero selects the transport default
	SPIClockHz int64 `json:"spi_clock_hz,omitempty"`
	// DriveCS makes the host toggle CS as a GPIO for the reset pulse.
	// Leave false when the kernel SPI driver owns the CS line.
	DriveCS bool `json:"drive_cs,omitempty"`

	// GPIO selects the line driver, "periph" (default) or "gpiod"
	GPIO string `json:"gpio,omitempty"`
	// GPIOChip is the character device used by the gpiod driver
	GPIOChip string `json:"gpio_chip,omitempty"`
}

// GPIO line drivers
const (
	GPIOPeriph = "periph"
	GPIOGpiod  = "gpiod"
)

// NewConnection returns the wiring for a bus preset with the given GDO2 pin
func NewConnection(preset BusPreset, gdo2 int) (Connection, error) {
	switch preset {
	case Bus0:
		return Connection{Bus: 0, SI: 10, SO: 9, CS: 8, SCLK: 11, GDO2: gdo2}, nil
	case Bus1:
		return Connection{Bus: 1, SI: 20, SO: 19, CS: 18, SCLK: 21, GDO2: gdo2}, nil
	}
	return Connection{}, fmt.Errorf("preset %d: %w", preset, ErrInvalidBus)
}

// DefaultConnection is Bus0 with GDO2 on DefaultGDO2Pin
func DefaultConnection() Connection {
	c, _ := NewConnection(Bus0, DefaultGDO2Pin)
	return c
}

// Port returns the periph SPI port name
func (c Connection) Port() string {
	if c.SPIPort != "" {
		return c.SPIPort
	}
	return fmt.Sprintf("SPI%d.0", c.Bus)
}

// CSPin returns the CS pin the engine should drive, or radio.NoPin
func (c Connection) CSPin() int {
	if !c.DriveCS {
		return radio.NoPin
	}
	return c.CS
}

// Validate checks pin numbers are usable and distinct
func (c Connection) Validate() error {
	if c.Bus < 0 {
		return fmt.Errorf("bus %d: %w", c.Bus, ErrInvalidBus)
	}
	named := []struct {
		name string
		pin  int
	}{
		{"si", c.SI}, {"so", c.SO}, {"cs", c.CS}, {"sclk", c.SCLK}, {"gdo2", c.GDO2},
	}
	seen := make(map[int]string)
	for _, n := range named {
		if n.pin < 0 {
			return fmt.Errorf("%s=%d: %w", n.name, n.pin, ErrInvalidPin)
		}
		if prev, ok := seen[n.pin]; ok {
			return fmt.Errorf("%s and %s both use %d: %w", prev, n.name, n.pin, ErrInvalidPin)
		}
		seen[n.pin] = n.name
	}
	switch c.GPIO {
	case "", GPIOPeriph, GPIOGpiod:
	default:
		return fmt.Errorf("gpio driver %q: %w", c.GPIO, ErrUnknownDriver)
	}
	if c.SPIClockHz < 0 {
		return fmt.Errorf("spi clock %d: %w", c.SPIClockHz, ErrInvalidBus)
	}
	return nil
}
