package transport

import (
	"context"
	"fmt"
	"math/bits"
	"sync"
	"time"

	"github.com/google/gousb"
)

// USB identifiers of the CH341A in serial/SPI mode
const (
	CH341VendorID  = 0x1A86
	CH341ProductID = 0x5512
)

// CH341 endpoint configuration
const (
	ch341EPOut      = 0x02
	ch341EPIn       = 0x02 // IN endpoint 0x82
	ch341PacketSize = 32
)

// CH341 command stream opcodes
const (
	ch341CmdSPIStream = 0xA8
	ch341CmdI2CStream = 0xAA
	ch341CmdUIOStream = 0xAB

	ch341UIOOut = 0x80
	ch341UIODir = 0x40
	ch341UIOEnd = 0x20

	ch341I2CSet = 0x60
	ch341I2CEnd = 0x00
)

// Pin states for D0..D5. Bit 0 is CS.
const (
	ch341CSAssert   = 0x36
	ch341CSDeassert = 0x37
	ch341OutputMask = 0x3F
)

// USB timeouts
const (
	CH341WriteTimeout = 500 * time.Millisecond
	CH341ReadTimeout  = 500 * time.Millisecond
)

// CH341 is a Transport backed by a CH341A USB-to-SPI bridge
type CH341 struct {
	*Bus

	usbDevice    *gousb.Device
	usbConfig    *gousb.Config
	usbInterface *gousb.Interface
	epIn         *gousb.InEndpoint
	epOut        *gousb.OutEndpoint
	Serial       string
	Manufacturer string
	Product      string
	BusNum       int
	Address      int
	mu           sync.Mutex
	closed       bool

	// usb is closed with the bridge when OpenCH341 created it
	usb *gousb.Context
}

// FindAllCH341 finds all connected CH341A bridges
func FindAllCH341(usb *gousb.Context) ([]*CH341, error) {
	bridges := []*CH341{}

	usbDevices, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(CH341VendorID) && desc.Product == gousb.ID(CH341ProductID)
	})
	if err != nil && len(usbDevices) == 0 {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	for _, usbDev := range usbDevices {
		bridge, err := wrapCH341(usbDev)
		if err != nil {
			usbDev.Close()
			continue
		}
		bridges = append(bridges, bridge)
	}

	return bridges, nil
}

func wrapCH341(usbDev *gousb.Device) (*CH341, error) {
	manufacturer, _ := usbDev.Manufacturer()
	product, _ := usbDev.Product()
	serial, _ := usbDev.SerialNumber()

	usbDev.SetAutoDetach(true)

	config, err := usbDev.Config(1)
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	iface, err := config.Interface(0, 0)
	if err != nil {
		config.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}

	epIn, err := iface.InEndpoint(ch341EPIn)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get IN endpoint: %w", err)
	}

	epOut, err := iface.OutEndpoint(ch341EPOut)
	if err != nil {
		iface.Close()
		config.Close()
		return nil, fmt.Errorf("failed to get OUT endpoint: %w", err)
	}

	c := &CH341{
		usbDevice:    usbDev,
		usbConfig:    config,
		usbInterface: iface,
		epIn:         epIn,
		epOut:        epOut,
		Serial:       serial,
		Manufacturer: manufacturer,
		Product:      product,
		BusNum:       usbDev.Desc.Bus,
		Address:      usbDev.Desc.Address,
	}
	c.Bus = New(c)

	if err := c.enablePins(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// enablePins drives D0..D5 as outputs with CS deasserted
func (c *CH341) enablePins() error {
	cmd := []byte{ch341CmdUIOStream, ch341UIOOut | ch341CSDeassert, ch341UIODir | ch341OutputMask, ch341UIOEnd}
	if err := c.write(cmd); err != nil {
		return fmt.Errorf("failed to enable CH341 pins: %w", err)
	}
	return nil
}

// SetSPIMode selects the I2C stream speed bits, which also govern SPI clocking.
// speed ranges 0 (20kHz) to 3 (750kHz).
func (c *CH341) SetSPIMode(speed uint8) error {
	cmd := []byte{ch341CmdI2CStream, ch341I2CSet | (speed & 0x03), ch341I2CEnd}
	return c.write(cmd)
}

func (c *CH341) chipSelect(assert bool) error {
	state := byte(ch341CSDeassert)
	if assert {
		state = ch341CSAssert
	}
	return c.write([]byte{ch341CmdUIOStream, ch341UIOOut | state, ch341UIODir | ch341OutputMask, ch341UIOEnd})
}

// Tx performs one chip-select framed exchange. Bytes are sent in chunks of
// up to 31 data bytes behind a SPI_STREAM opcode.
func (c *CH341) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if r != nil && len(r) < len(w) {
		return fmt.Errorf("read buffer %d smaller than write %d: %w", len(r), len(w), ErrShortTransfer)
	}

	if err := c.chipSelect(true); err != nil {
		return err
	}
	defer c.chipSelect(false)

	chunk := make([]byte, 0, ch341PacketSize)
	in := make([]byte, ch341PacketSize)
	for off := 0; off < len(w); {
		n := len(w) - off
		if n > ch341PacketSize-1 {
			n = ch341PacketSize - 1
		}
		chunk = append(chunk[:0], ch341CmdSPIStream)
		for _, b := range w[off : off+n] {
			chunk = append(chunk, bits.Reverse8(b))
		}
		if err := c.write(chunk); err != nil {
			return err
		}

		got, err := c.read(in[:n])
		if err != nil {
			return err
		}
		if got != n {
			return fmt.Errorf("read %d of %d bytes: %w", got, n, ErrShortTransfer)
		}
		if r != nil {
			for i := 0; i < n; i++ {
				r[off+i] = bits.Reverse8(in[i])
			}
		}
		off += n
	}
	return nil
}

func (c *CH341) write(p []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), CH341WriteTimeout)
	defer cancel()
	n, err := c.epOut.WriteContext(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("write timeout: %w", err)
		}
		return fmt.Errorf("failed to write to CH341: %w", err)
	}
	if n != len(p) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(p))
	}
	return nil
}

func (c *CH341) read(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), CH341ReadTimeout)
	defer cancel()
	n, err := c.epIn.ReadContext(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return n, fmt.Errorf("read timeout: %w", err)
		}
		return n, fmt.Errorf("failed to read from CH341: %w", err)
	}
	return n, nil
}

// OpenCH341 creates a USB context and opens the bridge matching selector.
// Closing the bridge also closes the context.
func OpenCH341(selector Selector) (*CH341, error) {
	usb := gousb.NewContext()
	c, err := SelectCH341(usb, selector)
	if err != nil {
		usb.Close()
		return nil, err
	}
	c.usb = usb
	return c, nil
}

// Close releases the USB interface and device
func (c *CH341) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.usbInterface != nil {
		c.usbInterface.Close()
	}
	if c.usbConfig != nil {
		c.usbConfig.Close()
	}
	var err error
	if c.usbDevice != nil {
		err = c.usbDevice.Close()
	}
	if c.usb != nil {
		if cerr := c.usb.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// String returns a human-readable description of the bridge
func (c *CH341) String() string {
	return fmt.Sprintf("%s %s (bus %d addr %d)", c.Manufacturer, c.Product, c.BusNum, c.Address)
}
