package radio

import (
	"context"
	"fmt"

	"github.com/herlein/cc1101/pkg/pins"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
	"github.com/sirupsen/logrus"
)

// OutputPower selects a PA table entry through FREND0 PA_POWER
type OutputPower uint8

const (
	MaximumStrength OutputPower = iota
	ExtremelyStrong
	VeryStrong
	Strong
	Moderate
	Weak
	VeryWeak
	ExtremelyWeak
)

var powerNames = [...]string{
	"maximum", "extremely-strong", "very-strong", "strong",
	"moderate", "weak", "very-weak", "extremely-weak",
}

func (p OutputPower) String() string {
	if int(p) < len(powerNames) {
		return powerNames[p]
	}
	return fmt.Sprintf("OutputPower(%d)", uint8(p))
}

// ParseOutputPower accepts the names printed by OutputPower.String
func ParseOutputPower(s string) (OutputPower, error) {
	for i, name := range powerNames {
		if name == s {
			return OutputPower(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrInvalidOutputPower)
}

func (p OutputPower) MarshalText() ([]byte, error) {
	if int(p) >= len(powerNames) {
		return nil, fmt.Errorf("%d: %w", uint8(p), ErrInvalidOutputPower)
	}
	return []byte(p.String()), nil
}

func (p *OutputPower) UnmarshalText(text []byte) error {
	v, err := ParseOutputPower(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// NoPin marks a GPIO that is not wired or is owned by the kernel driver
const NoPin = -1

// PowerController handles reset, sleep and output power. When CS is
// driven by the SPI driver, pass NoPin and the CS pulses are skipped.
type PowerController struct {
	t      transport.Transport
	gpio   pins.Controller
	cs     int
	state  *StateController
	timing Timing
	log    logrus.FieldLogger
}

// NewPowerController wires a power controller. gpio may be nil when cs is NoPin.
func NewPowerController(t transport.Transport, gpio pins.Controller, cs int, state *StateController, timing Timing, log logrus.FieldLogger) *PowerController {
	if gpio == nil {
		cs = NoPin
	}
	return &PowerController{
		t:      t,
		gpio:   gpio,
		cs:     cs,
		state:  state,
		timing: timing,
		log:    defaultLogger(log),
	}
}

// pulseCS drives CS low then high, which wakes the chip from SLEEP and
// starts the crystal
func (p *PowerController) pulseCS(ctx context.Context) error {
	if p.cs == NoPin {
		return nil
	}
	if err := p.gpio.WriteLine(p.cs, false); err != nil {
		return fmt.Errorf("failed to drive CS low: %w", err)
	}
	if err := Sleep(ctx, p.timing.ResetLow); err != nil {
		return err
	}
	if err := p.gpio.WriteLine(p.cs, true); err != nil {
		return fmt.Errorf("failed to drive CS high: %w", err)
	}
	return Sleep(ctx, p.timing.ResetHigh)
}

// Reset performs the manual power-on reset sequence
func (p *PowerController) Reset(ctx context.Context) error {
	if err := p.pulseCS(ctx); err != nil {
		return err
	}
	if err := p.t.Strobe(registers.StrobeSRES); err != nil {
		return fmt.Errorf("failed to reset chip: %w", err)
	}
	p.log.Debug("Chip reset")
	return Sleep(ctx, p.timing.ResetSettle)
}

// Idle brings the chip to IDLE and lets it settle
func (p *PowerController) Idle(ctx context.Context) error {
	if err := p.state.EnterIdle(ctx); err != nil {
		return err
	}
	return Sleep(ctx, p.timing.IdleSettle)
}

// PowerDown enters SLEEP; the chip stays there until CS is pulled low
func (p *PowerController) PowerDown(ctx context.Context) error {
	if err := p.Idle(ctx); err != nil {
		return err
	}
	if err := p.t.Strobe(registers.StrobeSPWD); err != nil {
		return fmt.Errorf("failed to power down: %w", err)
	}
	p.log.Debug("Chip powered down")
	return nil
}

// WakeUp leaves SLEEP and returns to RX
func (p *PowerController) WakeUp(ctx context.Context) error {
	if err := p.pulseCS(ctx); err != nil {
		return err
	}
	return p.state.EnterReceive(ctx)
}

// SetOutputPower selects a PA table entry through FREND0.PA_POWER
func (p *PowerController) SetOutputPower(power OutputPower) error {
	if power > ExtremelyWeak {
		return fmt.Errorf("%d: %w", uint8(power), ErrInvalidOutputPower)
	}
	return updateRegister(p.t, registers.RegFREND0, registers.MaskPAPower, uint8(power))
}

// OutputPower reads the PA table index currently selected
func (p *PowerController) OutputPower() (OutputPower, error) {
	v, err := p.t.ReadRegister(registers.RegFREND0)
	if err != nil {
		return 0, err
	}
	return OutputPower(v & registers.MaskPAPower), nil
}

// updateRegister rewrites only the bits in mask
func updateRegister(t transport.Transport, addr, mask, value uint8) error {
	cur, err := t.ReadRegister(addr)
	if err != nil {
		return fmt.Errorf("failed to read 0x%02X: %w", addr, err)
	}
	next := (cur &^ mask) | (value & mask)
	if err := t.WriteRegister(addr, next); err != nil {
		return fmt.Errorf("failed to write 0x%02X: %w", addr, err)
	}
	return nil
}
