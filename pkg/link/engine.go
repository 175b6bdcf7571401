// Package link implements addressed packet exchange over a CC1101: framing,
// acknowledged unicast with retries, broadcast, receive with automatic
// acknowledgement, and RSSI/LQI decoding.
//
// An Engine owns one chip for the lifetime of a radio session. Public
// methods serialise on an internal mutex so register read-modify-write
// sequences never interleave; the API is still blocking and single owner.
package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/radio"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
)

// Engine drives one CC1101
type Engine struct {
	mu sync.Mutex

	bus   transport.Transport
	gpio  pins.Controller
	state *radio.StateController
	power *radio.PowerController
	wor   *radio.WakeOnRadio
	cfg   *radio.Configurator
	log   logrus.FieldLogger

	gdo2       int
	rssiOffset int
	timing     Timing

	address uint8
	channel uint8
	mode    profiles.Mode
	band    profiles.Band

	partNum uint8
	version uint8

	closed bool
}

// New takes ownership of bus and gpio and initialises the chip: reset,
// FIFO flush, mode, band, channel, output power, address, then RX. If
// initialisation fails both are released before the error is returned.
func New(ctx context.Context, bus transport.Transport, gpio pins.Controller, opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.InfoLevel)
		log = l
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}

	state := radio.NewStateController(bus, opts.Timing.Radio, log)
	power := radio.NewPowerController(bus, gpio, opts.CSPin, state, opts.Timing.Radio, log)
	e := &Engine{
		bus:        bus,
		gpio:       gpio,
		state:      state,
		power:      power,
		wor:        radio.NewWakeOnRadio(bus, power),
		cfg:        radio.NewConfigurator(bus),
		log:        log,
		gdo2:       opts.GDO2Pin,
		rssiOffset: opts.RSSIOffset,
		timing:     opts.Timing,
	}

	if err := e.init(ctx, opts); err != nil {
		if rerr := e.release(); rerr != nil {
			log.WithError(rerr).Warn("release after failed init")
		}
		return nil, err
	}
	return e, nil
}

func (e *Engine) init(ctx context.Context, opts Options) error {
	if err := opts.pinsOpen(e.gpio); err != nil {
		return fmt.Errorf("failed to open pins: %w", err)
	}
	if err := e.power.Reset(ctx); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	for _, strobe := range []uint8{registers.StrobeSFTX, registers.StrobeSFRX} {
		if err := e.bus.Strobe(strobe); err != nil {
			return fmt.Errorf("FIFO flush failed: %w", err)
		}
		if err := radio.Sleep(ctx, e.timing.FIFOSettle); err != nil {
			return err
		}
	}

	e.identify()

	if err := e.setMode(opts.Mode); err != nil {
		return err
	}
	if err := e.setBand(opts.Band); err != nil {
		return err
	}
	if err := e.setChannel(opts.Channel); err != nil {
		return err
	}
	if err := e.power.SetOutputPower(opts.Power); err != nil {
		return fmt.Errorf("failed to set output power: %w", err)
	}
	if err := e.setAddress(opts.Address); err != nil {
		return err
	}
	if err := e.bus.WriteRegister(registers.RegIOCFG2, opts.GDO2Config); err != nil {
		return fmt.Errorf("failed to configure GDO2: %w", err)
	}
	if err := e.state.EnterReceive(ctx); err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"mode":    e.mode,
		"band":    e.band,
		"channel": e.channel,
		"address": fmt.Sprintf("0x%02X", e.address),
	}).Info("Radio initialised")
	return nil
}

// identify logs PARTNUM and VERSION. A mismatch is reported, not fatal.
func (e *Engine) identify() {
	part, err := e.bus.ReadRegister(registers.RegPARTNUM)
	if err == nil {
		e.version, err = e.bus.ReadRegister(registers.RegVERSION)
	}
	if err != nil {
		e.log.WithError(err).Warn("Failed to read chip identification")
		return
	}
	e.partNum = part

	fields := logrus.Fields{
		"partnum": fmt.Sprintf("0x%02X", e.partNum),
		"version": fmt.Sprintf("0x%02X", e.version),
	}
	if e.partNum != registers.PartNumCC1101 || e.version != registers.VersionCC1101 {
		e.log.WithFields(fields).Warn("Unexpected chip identification")
		return
	}
	e.log.WithFields(fields).Debug("CC1101 detected")
}

// ChipInfo returns PARTNUM and VERSION as read during initialisation
func (e *Engine) ChipInfo() (partNum, version uint8) {
	return e.partNum, e.version
}

func (e *Engine) lock() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// Address returns the local device address
func (e *Engine) Address() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.address
}

// SetAddress changes the local address and writes it to ADDR
func (e *Engine) SetAddress(addr uint8) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.setAddress(addr)
}

func (e *Engine) setAddress(addr uint8) error {
	if err := e.cfg.SetAddress(addr); err != nil {
		return fmt.Errorf("failed to set address: %w", err)
	}
	e.address = addr
	return nil
}

// Channel returns the current channel number
func (e *Engine) Channel() uint8 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channel
}

// SetChannel writes CHANNR
func (e *Engine) SetChannel(ch uint8) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.setChannel(ch)
}

func (e *Engine) setChannel(ch uint8) error {
	if err := e.cfg.SetChannel(ch); err != nil {
		return fmt.Errorf("failed to set channel: %w", err)
	}
	e.channel = ch
	return nil
}

// Mode returns the modulation mode last written
func (e *Engine) Mode() profiles.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SetMode reprograms the whole modem block. Unknown modes are rejected
// before any register is written.
func (e *Engine) SetMode(m profiles.Mode) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.setMode(m)
}

func (e *Engine) setMode(m profiles.Mode) error {
	if err := e.cfg.SetMode(m); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}
	e.mode = m
	return nil
}

// Band returns the frequency band last written
func (e *Engine) Band() profiles.Band {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.band
}

// SetBand writes the carrier frequency and PA table for b
func (e *Engine) SetBand(b profiles.Band) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.setBand(b)
}

func (e *Engine) setBand(b profiles.Band) error {
	if err := e.cfg.SetBand(b); err != nil {
		return fmt.Errorf("failed to set band: %w", err)
	}
	e.band = b
	return nil
}

// SetOutputPower selects a PA table entry
func (e *Engine) SetOutputPower(p radio.OutputPower) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.power.SetOutputPower(p)
}

// Configure runs fn with the register configurator while holding the
// engine lock. Use it for datarate, deviation, sync and coding settings.
func (e *Engine) Configure(fn func(c *radio.Configurator) error) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return fn(e.cfg)
}

// State reads MARCSTATE
func (e *Engine) State() (registers.RadioState, error) {
	if err := e.lock(); err != nil {
		return 0, err
	}
	defer e.mu.Unlock()
	return e.state.State()
}

// PowerDown puts the chip to sleep
func (e *Engine) PowerDown(ctx context.Context) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.power.PowerDown(ctx)
}

// WakeUp wakes the chip and returns to RX
func (e *Engine) WakeUp(ctx context.Context) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.power.WakeUp(ctx)
}

// EnableWakeOnRadio starts receiver duty cycling
func (e *Engine) EnableWakeOnRadio(ctx context.Context) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.wor.Enable(ctx)
}

// DisableWakeOnRadio returns to continuous receive settings
func (e *Engine) DisableWakeOnRadio(ctx context.Context) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.wor.Disable(ctx)
}

// ResetWakeOnRadio restarts duty cycling after a wake-up
func (e *Engine) ResetWakeOnRadio(ctx context.Context) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.mu.Unlock()
	return e.wor.Reset(ctx)
}

// Close powers the chip down, then releases the bus and the GPIO lines.
// It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if err := e.power.PowerDown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("power down failed: %w", err))
	}
	errs = append(errs, e.release())
	return errors.Join(errs...)
}

// release closes the bus, when it can be closed, and the GPIO lines
func (e *Engine) release() error {
	var errs []error
	if c, ok := e.bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release bus: %w", err))
		}
	}
	if err := e.gpio.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to release GPIO: %w", err))
	}
	return errors.Join(errs...)
}
