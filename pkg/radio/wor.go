package radio

import (
	"context"
	"fmt"

	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
)

// Wake-on-radio register values. EVENT0 is 0xFF7F periods; EVENT1 is
// 48 clock cycles (about 1.4ms at 26MHz) with the RC oscillator enabled.
const (
	worMCSM0 = 0x18
	worMCSM2 = 0x01 // RX_TIME timeout after sync search
	worEVT1  = 0xFF
	worEVT0  = 0x7F
	worCTRL  = 0x78
	rxMCSM2  = 0x07 // stay in RX, no timeout
)

// WakeOnRadio duty-cycles the receiver with the chip's own timer
type WakeOnRadio struct {
	t     transport.Transport
	power *PowerController
}

// NewWakeOnRadio returns a wake-on-radio controller sharing power
func NewWakeOnRadio(t transport.Transport, power *PowerController) *WakeOnRadio {
	return &WakeOnRadio{t: t, power: power}
}

// Enable programs the WOR timer and starts polling
func (w *WakeOnRadio) Enable(ctx context.Context) error {
	if err := w.power.Idle(ctx); err != nil {
		return err
	}
	writes := []struct{ addr, value uint8 }{
		{registers.RegMCSM0, worMCSM0},
		{registers.RegMCSM2, worMCSM2},
		{registers.RegWOREVT1, worEVT1},
		{registers.RegWOREVT0, worEVT0},
		{registers.RegWORCTRL, worCTRL},
	}
	for _, wr := range writes {
		if err := w.t.WriteRegister(wr.addr, wr.value); err != nil {
			return fmt.Errorf("failed to configure wake-on-radio: %w", err)
		}
	}
	return w.start()
}

// Disable returns to continuous receive settings
func (w *WakeOnRadio) Disable(ctx context.Context) error {
	if err := w.power.Idle(ctx); err != nil {
		return err
	}
	return w.t.WriteRegister(registers.RegMCSM2, rxMCSM2)
}

// Reset restarts polling after a wake-up, keeping the timer settings
func (w *WakeOnRadio) Reset(ctx context.Context) error {
	if err := w.power.Idle(ctx); err != nil {
		return err
	}
	if err := w.t.WriteRegister(registers.RegMCSM2, worMCSM2); err != nil {
		return err
	}
	return w.start()
}

func (w *WakeOnRadio) start() error {
	for _, s := range []uint8{registers.StrobeSFRX, registers.StrobeSWORRST, registers.StrobeSWOR} {
		if err := w.t.Strobe(s); err != nil {
			return fmt.Errorf("failed to start wake-on-radio: %w", err)
		}
	}
	return nil
}
