package radio

import (
	"fmt"

	"github.com/herlein/cc1101/pkg/profiles"
	"github.com/herlein/cc1101/pkg/registers"
	"github.com/herlein/cc1101/pkg/transport"
)

// Configurator translates radio settings into register writes. It holds no
// state of its own; the chip's registers are the only record.
type Configurator struct {
	t transport.Transport
}

// NewConfigurator returns a Configurator writing through t
func NewConfigurator(t transport.Transport) *Configurator {
	return &Configurator{t: t}
}

// SetMode burst-writes the whole modem block for m
func (c *Configurator) SetMode(m profiles.Mode) error {
	table, err := profiles.ModeRegisters(m)
	if err != nil {
		return err
	}
	if err := c.t.WriteBurst(profiles.ModeBlockStart, table[:]); err != nil {
		return fmt.Errorf("failed to write mode %v: %w", m, err)
	}
	return nil
}

// SetBand writes FREQ2, FREQ1 and FREQ0 for b, then the band's PA table
func (c *Configurator) SetBand(b profiles.Band) error {
	freq, err := profiles.BandRegisters(b)
	if err != nil {
		return err
	}
	pa, err := profiles.PATable(b)
	if err != nil {
		return err
	}
	addrs := [3]uint8{registers.RegFREQ2, registers.RegFREQ1, registers.RegFREQ0}
	for i, addr := range addrs {
		if err := c.t.WriteRegister(addr, freq[i]); err != nil {
			return fmt.Errorf("failed to write band %v: %w", b, err)
		}
	}
	return c.SetPowerAmplifierTable(pa[:])
}

// SetChannel writes CHANNR
func (c *Configurator) SetChannel(ch uint8) error {
	return c.t.WriteRegister(registers.RegCHANNR, ch)
}

// SetAddress writes the ADDR filter register
func (c *Configurator) SetAddress(addr uint8) error {
	return c.t.WriteRegister(registers.RegADDR, addr)
}

// SetPowerAmplifierTable burst-writes up to 8 PA table entries
func (c *Configurator) SetPowerAmplifierTable(table []byte) error {
	if len(table) == 0 || len(table) > 8 {
		return fmt.Errorf("%d entries: %w", len(table), ErrInvalidPATable)
	}
	return c.t.WriteBurst(registers.RegPATABLE, table)
}

// SetPreambleLength sets MDMCFG1.NUM_PREAMBLE from a byte count
// (2, 3, 4, 6, 8, 12, 16 or 24)
func (c *Configurator) SetPreambleLength(bytes uint8) error {
	field, ok := profiles.PreambleBytesToReg(bytes)
	if !ok {
		return fmt.Errorf("%d bytes: %w", bytes, ErrInvalidPreamble)
	}
	return updateRegister(c.t, registers.RegMDMCFG1, registers.MaskPreamble, field)
}

// SetSyncMode sets MDMCFG2.SYNC_MODE
func (c *Configurator) SetSyncMode(mode uint8) error {
	return updateRegister(c.t, registers.RegMDMCFG2, registers.MaskSyncMode, mode)
}

// SetFEC toggles MDMCFG1.FEC_EN
func (c *Configurator) SetFEC(enable bool) error {
	return updateRegister(c.t, registers.RegMDMCFG1, registers.MaskFEC, flag(enable, registers.MaskFEC))
}

// SetDataWhitening toggles PKTCTRL0.WHITE_DATA
func (c *Configurator) SetDataWhitening(enable bool) error {
	return updateRegister(c.t, registers.RegPKTCTRL0, registers.MaskWhitening, flag(enable, registers.MaskWhitening))
}

// SetManchesterEncoding toggles MDMCFG2.MANCHESTER_EN
func (c *Configurator) SetManchesterEncoding(enable bool) error {
	return updateRegister(c.t, registers.RegMDMCFG2, registers.MaskManchester, flag(enable, registers.MaskManchester))
}

// SetModulationType sets MDMCFG2.MOD_FORMAT. mod is one of the
// registers.Mod* values, already in bit position.
func (c *Configurator) SetModulationType(mod uint8) error {
	return updateRegister(c.t, registers.RegMDMCFG2, registers.MaskModulation, mod)
}

// SetDatarate fits baud against the crystal and writes DRATE_E and DRATE_M.
// Out of range rates return ErrDatarateOutOfRange and touch no register.
// The channel bandwidth in MDMCFG4[7:4] is preserved.
func (c *Configurator) SetDatarate(baud, crystalHz int) error {
	exp, mant, err := DatarateRegs(baud, crystalHz)
	if err != nil {
		return err
	}
	if err := updateRegister(c.t, registers.RegMDMCFG4, registers.MaskDatarateExp, exp); err != nil {
		return err
	}
	return c.t.WriteRegister(registers.RegMDMCFG3, mant)
}

// SetDeviation writes the DEVIATN value closest to devHz
func (c *Configurator) SetDeviation(devHz, crystalHz int) error {
	exp, mant := DeviationReg(devHz, crystalHz)
	return c.t.WriteRegister(registers.RegDEVIATN, exp<<4|mant)
}

// Datarate reads back the configured baud rate
func (c *Configurator) Datarate(crystalHz int) (float64, error) {
	cfg4, err := c.t.ReadRegister(registers.RegMDMCFG4)
	if err != nil {
		return 0, err
	}
	cfg3, err := c.t.ReadRegister(registers.RegMDMCFG3)
	if err != nil {
		return 0, err
	}
	return DatarateFromRegs(cfg4&registers.MaskDatarateExp, cfg3, crystalHz), nil
}

// Deviation reads back the configured deviation in Hz
func (c *Configurator) Deviation(crystalHz int) (float64, error) {
	v, err := c.t.ReadRegister(registers.RegDEVIATN)
	if err != nil {
		return 0, err
	}
	return DeviationFromReg(v, crystalHz), nil
}

func flag(on bool, mask uint8) uint8 {
	if on {
		return mask
	}
	return 0
}
